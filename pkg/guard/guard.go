// Package guard decides whether a patch is already present in a file.
//
// The check is a plain substring search for any of the descriptor's
// markers. A differently worded patch with the same effect goes unnoticed;
// the same descriptor applied twice never does.
package guard

import (
	"strings"

	"github.com/walteh/patchrc/pkg/patch"
)

// AlreadyApplied reports whether content carries any marker of d
func AlreadyApplied(content string, d patch.Descriptor) bool {
	_, ok := Match(content, d)
	return ok
}

// Match returns the first marker of d found in content
func Match(content string, d patch.Descriptor) (string, bool) {
	for _, marker := range d.Markers {
		if marker == "" {
			continue
		}
		if strings.Contains(content, marker) {
			return marker, true
		}
	}
	return "", false
}

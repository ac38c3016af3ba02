// Package diff renders the change a plan would make: a unified patch for
// humans and character statistics for logs.
package diff

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContext is the number of context lines around a hunk
const DefaultContext = 3

// Options controls patch generation
type Options struct {
	// Context lines around each hunk, DefaultContext when zero
	Context int
	// MaxBytes caps len(a)+len(b); larger inputs get a placeholder. Zero
	// means no limit.
	MaxBytes int
}

// Unified returns a unified patch from a to b, and whether it was omitted
// because of MaxBytes. Identical inputs give an empty string.
func Unified(aName, bName string, a, b []byte, opt Options) (string, bool) {
	if opt.MaxBytes > 0 && len(a)+len(b) > opt.MaxBytes {
		return omitted(aName, bName), true
	}

	ctx := opt.Context
	if ctx <= 0 {
		ctx = DefaultContext
	}

	u := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(string(a)),
		B:        splitLinesKeepNL(string(b)),
		FromFile: aName,
		ToFile:   bName,
		Context:  ctx,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return omitted(aName, bName), false
	}
	return s, false
}

// 📊 Stats summarizes a change at character level
type Stats struct {
	Inserted int    // runes added
	Deleted  int    // runes removed
	Segments int    // diff segments, equal ones included
	Delta    string // diff-match-patch delta of a to b
}

func (s Stats) String() string {
	return fmt.Sprintf("+%d -%d", s.Inserted, s.Deleted)
}

// Changed reports whether the two inputs differ
func (s Stats) Changed() bool {
	return s.Inserted > 0 || s.Deleted > 0
}

// Compute diffs a against b
func Compute(a, b string) Stats {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	st := Stats{Segments: len(diffs), Delta: dmp.DiffToDelta(diffs)}
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			st.Inserted += len([]rune(d.Text))
		case diffmatchpatch.DiffDelete:
			st.Deleted += len([]rune(d.Text))
		}
	}
	return st
}

// splitLinesKeepNL keeps the trailing "\n" on each line so hunks render
// the way diff(1) prints them.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.SplitAfter(s, "\n")
}

func omitted(aName, bName string) string {
	return fmt.Sprintf("--- %s\n+++ %s\n@@\n# diff omitted (oversize)\n", aName, bName)
}

package validate

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/walteh/patchrc/pkg/patch"
	"gitlab.com/tozd/go/errors"
)

// 🗺️ route sends file names matching pattern to a named validator
type route struct {
	pattern string
	name    string
}

// 📚 Registry resolves validator names and picks one for a target path
type Registry struct {
	mu     sync.RWMutex
	named  map[string]Validator
	routes []route
}

// DefaultRoutes maps file name globs to validator names. Globs without a
// slash match the base name, the rest match the slash-separated path.
var DefaultRoutes = map[string]string{
	"*.{py,pyi}":           "python",
	"*.go":                 "go",
	"*.{js,mjs,cjs,jsx}":   "javascript",
	"*.{ts,mts,cts}":       "typescript",
	"*.{sh,bash}":          "bash",
	"*.{html,htm,xml,svg}": NoneName,
}

const (
	// NoneName is the validator name meaning "no validation"
	NoneName = patch.ValidatorNone
	// AutoName is the validator name meaning "pick by target path"
	AutoName = patch.ValidatorAuto
)

// 🏭 NewRegistry creates a registry with the tree-sitter languages and the
// default routes.
func NewRegistry() *Registry {
	r := &Registry{named: map[string]Validator{}}
	for _, lang := range Languages() {
		ts, err := NewTreeSitter(lang)
		if err != nil {
			continue
		}
		r.named[lang] = ts
	}

	// deterministic order: longer, more specific globs first
	patterns := make([]string, 0, len(DefaultRoutes))
	for p := range DefaultRoutes {
		patterns = append(patterns, p)
	}
	sort.Slice(patterns, func(i, j int) bool {
		if len(patterns[i]) != len(patterns[j]) {
			return len(patterns[i]) > len(patterns[j])
		}
		return patterns[i] < patterns[j]
	})
	for _, p := range patterns {
		r.routes = append(r.routes, route{pattern: p, name: DefaultRoutes[p]})
	}
	return r
}

// Register adds or replaces a named validator
func (r *Registry) Register(name string, v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.named[name] = v
}

// Route sends targets matching pattern to the named validator. Routes added
// later take precedence over earlier ones.
func (r *Registry) Route(pattern, name string) error {
	if !doublestar.ValidatePattern(pattern) {
		return errors.Errorf("invalid glob %q", pattern)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append([]route{{pattern: pattern, name: name}}, r.routes...)
	return nil
}

// Lookup returns the validator registered under name. The none name
// resolves to a nil validator.
func (r *Registry) Lookup(name string) (Validator, error) {
	if name == NoneName {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.named[name]
	if !ok {
		return nil, errors.Errorf("unknown validator %q", name)
	}
	return v, nil
}

// 🎯 For returns the validator for a descriptor's validator name and a
// target path. Auto picks the first matching route; no match means no
// validation.
func (r *Registry) For(name, target string) (Validator, error) {
	if name != "" && name != AutoName {
		return r.Lookup(name)
	}

	routed, ok := r.Match(target)
	if !ok {
		return nil, nil
	}
	return r.Lookup(routed)
}

// Match returns the validator name routed for target
func (r *Registry) Match(target string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slashed := strings.TrimPrefix(filepath.ToSlash(target), "/")
	base := filepath.Base(target)

	for _, rt := range r.routes {
		subject := base
		if strings.Contains(rt.pattern, "/") {
			subject = slashed
		}
		ok, err := doublestar.Match(rt.pattern, subject)
		if err != nil {
			continue
		}
		if ok {
			return rt.name, true
		}
	}
	return "", false
}

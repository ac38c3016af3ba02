// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/patch"
	"github.com/walteh/patchrc/pkg/validate"
	"gitlab.com/tozd/go/errors"
)

// ErrUnknownPatch is returned by Get for an id not in the catalog
var ErrUnknownPatch = errors.New("unknown patch")

// 🔌 Parser is the interface for catalog parsers
type Parser interface {
	// 📝 Parse decodes a catalog from bytes
	Parse(ctx context.Context, filename string, data []byte) (*Catalog, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📚 Catalog is a set of named patch descriptors
type Catalog struct {
	Validators []ValidatorRoute   `json:"validators,omitempty" yaml:"validators,omitempty"`
	Patches    []patch.Descriptor `json:"patches" yaml:"patches"`

	location string
}

// 🗺️ ValidatorRoute sends targets matching Pattern to a named validator
// when a patch leaves its validator on auto
type ValidatorRoute struct {
	Pattern   string `json:"pattern" yaml:"pattern"`
	Validator string `json:"validator" yaml:"validator"`
}

// 🎯 Load reads, parses and validates the catalog at path
func Load(ctx context.Context, path string) (*Catalog, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading catalog")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading catalog: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cat, err := p.Parse(ctx, path, data)
	if err != nil {
		return nil, errors.Errorf("parsing catalog: %w", err)
	}
	cat.location = path

	if err := cat.Validate(); err != nil {
		return nil, errors.Errorf("validating catalog: %w", err)
	}

	logger.Debug().Int("patches", len(cat.Patches)).Msg("catalog loaded")
	return cat, nil
}

// 🔍 Validate checks every descriptor and that ids are unique
func (c *Catalog) Validate() error {
	if len(c.Patches) == 0 {
		return errors.Errorf("catalog has no patches")
	}
	seen := make(map[string]int, len(c.Patches))
	for i, d := range c.Patches {
		if err := d.Validate(); err != nil {
			return errors.Errorf("patch %d: %w", i, err)
		}
		if prev, dup := seen[d.ID]; dup {
			return errors.Errorf("%w: duplicate id %q (patches %d and %d)", patch.ErrInvalidDescriptor, d.ID, prev, i)
		}
		seen[d.ID] = i
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	return nil
}

// 🧭 Registry returns the default validator registry extended with the
// catalog's routes. Catalog routes take precedence over the defaults and
// earlier routes over later ones.
func (c *Catalog) Registry() (*validate.Registry, error) {
	reg := validate.NewRegistry()
	for i := len(c.Validators) - 1; i >= 0; i-- {
		r := c.Validators[i]
		if r.Validator == "" {
			return nil, errors.Errorf("validator route %d (%s): validator is required", i, r.Pattern)
		}
		if _, err := reg.Lookup(r.Validator); err != nil {
			return nil, errors.Errorf("validator route %d (%s): %w", i, r.Pattern, err)
		}
		if err := reg.Route(r.Pattern, r.Validator); err != nil {
			return nil, errors.Errorf("validator route %d: %w", i, err)
		}
	}
	return reg, nil
}

// Location returns the file the catalog was loaded from
func (c *Catalog) Location() string {
	return c.location
}

// Get returns the descriptor with the given id
func (c *Catalog) Get(id string) (patch.Descriptor, error) {
	for _, d := range c.Patches {
		if d.ID == id {
			return d, nil
		}
	}
	return patch.Descriptor{}, errors.Errorf("%w %q (known: %s)", ErrUnknownPatch, id, strings.Join(c.IDs(), ", "))
}

// IDs returns the patch ids in sorted order
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.Patches))
	for _, d := range c.Patches {
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)
	return ids
}

// TargetPath resolves d.Target against the catalog directory. It returns
// "" when d has no target.
func (c *Catalog) TargetPath(d patch.Descriptor) string {
	if d.Target == "" {
		return ""
	}
	if filepath.IsAbs(d.Target) || c.location == "" {
		return filepath.Clean(d.Target)
	}
	return filepath.Join(filepath.Dir(c.location), d.Target)
}

// Targeted returns the descriptors that name a target, in catalog order
func (c *Catalog) Targeted() []patch.Descriptor {
	var out []patch.Descriptor
	for _, d := range c.Patches {
		if d.Target != "" {
			out = append(out, d)
		}
	}
	return out
}

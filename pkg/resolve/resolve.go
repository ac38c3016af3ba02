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

// Package resolve computes where a patch goes and what the patched text is.
//
// Every strategy is a small Attempter. A Chain tries its attempters in
// order and the first one that produces a plan wins; later attempters in a
// chain are more invasive and only run when the precise ones cannot.
package resolve

import (
	"strings"

	"github.com/walteh/patchrc/pkg/patch"
	"gitlab.com/tozd/go/errors"
)

// ErrNotFound is returned when no attempter in the chain matched
var ErrNotFound = patch.ErrNoInsertionPoint

// 🗺️ Plan is the result of a successful resolution
type Plan struct {
	Strategy    string // name of the attempter that matched
	Description string // where the change goes, for status output
	Content     string // full patched content
	Offset      int    // byte offset of the changed region in Content
	Length      int    // byte length of the changed region in Content
}

// Region returns the changed text
func (p *Plan) Region() string {
	return p.Content[p.Offset : p.Offset+p.Length]
}

// 🎯 Attempter tries one way of placing a patch
type Attempter interface {
	// Name identifies the attempter in plans and logs
	Name() string
	// Attempt returns a plan, or false when this attempter does not apply
	Attempt(content string) (*Plan, bool)
}

// 🔗 Chain is an ordered list of attempters
type Chain []Attempter

// Names lists the attempters in order
func (c Chain) Names() []string {
	names := make([]string, 0, len(c))
	for _, a := range c {
		names = append(names, a.Name())
	}
	return names
}

// Resolve returns the plan of the first attempter that matches
func (c Chain) Resolve(content string) (*Plan, error) {
	for _, a := range c {
		if plan, ok := a.Attempt(content); ok {
			return plan, nil
		}
	}
	return nil, errors.Errorf("%w: tried %s", ErrNotFound, strings.Join(c.Names(), ", "))
}

// 🏗️ ChainFor builds the attempter chain for a descriptor
func ChainFor(d patch.Descriptor) (Chain, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	switch d.Strategy {
	case patch.StrategyAfterLastImport:
		re, err := d.ImportRegexp()
		if err != nil {
			return nil, err
		}
		return Chain{&AfterLastImport{Payload: d.Payload, Pattern: re}}, nil

	case patch.StrategyRegexReplace:
		chain := make(Chain, 0, len(d.Regex))
		for i, rule := range d.Regex {
			re, err := patch.CompileRule(rule)
			if err != nil {
				return nil, errors.Errorf("rule %d: %w", i, err)
			}
			chain = append(chain, &RegexReplace{Index: i, Pattern: re, Template: rule.Template})
		}
		return chain, nil

	case patch.StrategyMarkupBeforeTag:
		return Chain{
			&InsertBeforeTag{Tag: d.CloseTag(), Payload: d.Payload},
			&InsertAfterTag{Tag: d.OpenTag(), Payload: d.Payload},
			&Prepend{Payload: d.Payload},
		}, nil

	case patch.StrategyMarkupAfterTag:
		return Chain{
			&InsertAfterTag{Tag: d.OpenTag(), Payload: d.Payload},
			&Prepend{Payload: d.Payload},
		}, nil

	case patch.StrategyMarkupPrepend:
		return Chain{&Prepend{Payload: d.Payload}}, nil
	}

	return nil, errors.Errorf("%w: unknown strategy %q", patch.ErrInvalidDescriptor, d.Strategy)
}

// 🔍 Resolve builds the chain for d and runs it against content
func Resolve(content string, d patch.Descriptor) (*Plan, error) {
	chain, err := ChainFor(d)
	if err != nil {
		return nil, err
	}
	return chain.Resolve(content)
}

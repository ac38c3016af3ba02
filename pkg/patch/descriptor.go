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

package patch

import (
	"fmt"
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 🧭 Strategy names how a descriptor finds the region it changes
type Strategy string

const (
	StrategyAfterLastImport Strategy = "after_last_import"
	StrategyRegexReplace    Strategy = "regex_replace"
	StrategyMarkupBeforeTag Strategy = "markup_before_tag"
	StrategyMarkupAfterTag  Strategy = "markup_after_tag"
	StrategyMarkupPrepend   Strategy = "markup_prepend"
)

// Strategies lists every known strategy in documentation order
func Strategies() []Strategy {
	return []Strategy{
		StrategyAfterLastImport,
		StrategyRegexReplace,
		StrategyMarkupBeforeTag,
		StrategyMarkupAfterTag,
		StrategyMarkupPrepend,
	}
}

// IsMarkup reports whether the strategy belongs to the markup fallback chain
func (s Strategy) IsMarkup() bool {
	switch s {
	case StrategyMarkupBeforeTag, StrategyMarkupAfterTag, StrategyMarkupPrepend:
		return true
	}
	return false
}

func (s Strategy) valid() bool {
	for _, known := range Strategies() {
		if s == known {
			return true
		}
	}
	return false
}

const (
	// DefaultCloseTag is used by markup_before_tag when no tag is configured
	DefaultCloseTag = "</head>"
	// DefaultOpenTag is used by markup_after_tag when no tag is configured
	DefaultOpenTag = "<head>"
	// DefaultImportPattern matches python style import lines
	DefaultImportPattern = `^\s*(import|from)\s`
	// ValidatorAuto selects a validator from the target file name
	ValidatorAuto = "auto"
	// ValidatorNone disables post-write validation
	ValidatorNone = "none"
)

// 🔄 RegexRule is one pattern/template pair of a regex_replace descriptor.
// Templates use Go expansion syntax ($1, ${1}, ${name}).
type RegexRule struct {
	Pattern  string `json:"pattern" yaml:"pattern"`
	Template string `json:"template" yaml:"template"`
}

// 🏷️ Markup holds the tags used by the markup strategies
type Markup struct {
	Before string `json:"before,omitempty" yaml:"before,omitempty"` // insert before this tag (closing tag)
	After  string `json:"after,omitempty" yaml:"after,omitempty"`   // insert after this tag (opening tag)
}

// 📦 Descriptor is an immutable description of one named modification.
//
// Markers are literal substrings; the presence of any of them in a target
// means the modification is already applied. Regex rules are tried in
// order: the first is the primary pattern, the rest are fallbacks.
type Descriptor struct {
	ID            string      `json:"id" yaml:"id"`
	Markers       []string    `json:"markers" yaml:"markers"`
	Strategy      Strategy    `json:"strategy" yaml:"strategy"`
	Payload       string      `json:"payload,omitempty" yaml:"payload,omitempty"`
	Regex         []RegexRule `json:"regex,omitempty" yaml:"regex,omitempty"`
	Markup        *Markup     `json:"markup,omitempty" yaml:"markup,omitempty"`
	ImportPattern string      `json:"import_pattern,omitempty" yaml:"import_pattern,omitempty"`
	Validator     string      `json:"validator,omitempty" yaml:"validator,omitempty"`
	Target        string      `json:"target,omitempty" yaml:"target,omitempty"`
	Description   string      `json:"description,omitempty" yaml:"description,omitempty"`
}

// CloseTag returns the tag markup_before_tag searches for
func (d Descriptor) CloseTag() string {
	if d.Markup != nil && d.Markup.Before != "" {
		return d.Markup.Before
	}
	return DefaultCloseTag
}

// OpenTag returns the tag markup_after_tag searches for
func (d Descriptor) OpenTag() string {
	if d.Markup != nil && d.Markup.After != "" {
		return d.Markup.After
	}
	return DefaultOpenTag
}

// ImportRegexp compiles the import line detector for after_last_import
func (d Descriptor) ImportRegexp() (*regexp.Regexp, error) {
	pattern := d.ImportPattern
	if pattern == "" {
		pattern = DefaultImportPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Errorf("compiling import pattern %q: %w", pattern, err)
	}
	return re, nil
}

// CompileRule compiles a regex rule with dot-matches-newline and
// multi-line anchors enabled.
func CompileRule(rule RegexRule) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?sm)" + rule.Pattern)
	if err != nil {
		return nil, errors.Errorf("compiling pattern %q: %w", rule.Pattern, err)
	}
	return re, nil
}

// ValidatorName returns the configured validator, defaulting to auto
func (d Descriptor) ValidatorName() string {
	if d.Validator == "" {
		return ValidatorAuto
	}
	return d.Validator
}

// 🔍 Validate checks that the descriptor can be resolved
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return errors.Errorf("%w: id is required", ErrInvalidDescriptor)
	}
	if len(d.Markers) == 0 {
		return errors.Errorf("%w: %s: at least one marker is required", ErrInvalidDescriptor, d.ID)
	}
	for i, m := range d.Markers {
		if m == "" {
			return errors.Errorf("%w: %s: marker %d is empty", ErrInvalidDescriptor, d.ID, i)
		}
	}
	if !d.Strategy.valid() {
		return errors.Errorf("%w: %s: unknown strategy %q", ErrInvalidDescriptor, d.ID, d.Strategy)
	}

	switch d.Strategy {
	case StrategyRegexReplace:
		if len(d.Regex) == 0 {
			return errors.Errorf("%w: %s: regex_replace needs at least one rule", ErrInvalidDescriptor, d.ID)
		}
		for i, rule := range d.Regex {
			if rule.Pattern == "" {
				return errors.Errorf("%w: %s: rule %d: pattern is required", ErrInvalidDescriptor, d.ID, i)
			}
			if _, err := CompileRule(rule); err != nil {
				return errors.Errorf("%w: %s: rule %d: %s", ErrInvalidDescriptor, d.ID, i, err)
			}
		}
	case StrategyAfterLastImport:
		if err := d.validatePayload(); err != nil {
			return err
		}
		if _, err := d.ImportRegexp(); err != nil {
			return errors.Errorf("%w: %s: %s", ErrInvalidDescriptor, d.ID, err)
		}
	default:
		if err := d.validatePayload(); err != nil {
			return err
		}
	}

	return nil
}

// validatePayload requires an inserted payload to carry one of the markers
func (d Descriptor) validatePayload() error {
	if d.Payload == "" {
		return errors.Errorf("%w: %s: payload is required", ErrInvalidDescriptor, d.ID)
	}
	for _, m := range d.Markers {
		if strings.Contains(d.Payload, m) {
			return nil
		}
	}
	return errors.Errorf("%w: %s: payload contains none of the markers", ErrInvalidDescriptor, d.ID)
}

// String returns a short human readable form
func (d Descriptor) String() string {
	return fmt.Sprintf("%s (%s)", d.ID, d.Strategy)
}

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

// Package validate checks a written file for structural validity.
//
// A Validator returns nil for a valid file. Syntax problems come back as a
// *SyntaxError listing positions. Markup files have no validator in the
// default registry; a missing validator is a valid configuration.
package validate

import (
	"context"
	"fmt"
	"strings"
)

// ✅ Validator checks the file at path after it has been written
type Validator interface {
	Validate(ctx context.Context, path string) error
}

// Func adapts a function to Validator
type Func func(ctx context.Context, path string) error

// Validate implements Validator
func (f Func) Validate(ctx context.Context, path string) error {
	return f(ctx, path)
}

// 📍 Problem is one syntax issue
type Problem struct {
	Line    int    // 1-based
	Column  int    // 0-based byte column
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("line %d, col %d: %s", p.Line, p.Column, p.Message)
}

// ❌ SyntaxError reports the problems found in a file
type SyntaxError struct {
	Path     string
	Language string
	Problems []Problem
}

func (e *SyntaxError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d %s syntax error(s)", e.Path, len(e.Problems), e.Language)
	for i, p := range e.Problems {
		if i >= maxReported {
			fmt.Fprintf(&sb, "; and %d more", len(e.Problems)-maxReported)
			break
		}
		sb.WriteString("; ")
		sb.WriteString(p.String())
	}
	return sb.String()
}

const maxReported = 5

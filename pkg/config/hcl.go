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
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/walteh/patchrc/pkg/patch"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

type hclCatalog struct {
	Validators []hclRoute `hcl:"validator,block"`
	Patches    []hclPatch `hcl:"patch,block"`
}

type hclRoute struct {
	Pattern string `hcl:"pattern,label"`
	Name    string `hcl:"name"`
}

type hclPatch struct {
	ID            string     `hcl:"id,label"`
	Markers       []string   `hcl:"markers"`
	Strategy      string     `hcl:"strategy"`
	Payload       string     `hcl:"payload,optional"`
	ImportPattern string     `hcl:"import_pattern,optional"`
	Validator     string     `hcl:"validator,optional"`
	Target        string     `hcl:"target,optional"`
	Description   string     `hcl:"description,optional"`
	Regex         []hclRule  `hcl:"regex,block"`
	Markup        *hclMarkup `hcl:"markup,block"`
}

type hclRule struct {
	Pattern  string `hcl:"pattern"`
	Template string `hcl:"template"`
}

type hclMarkup struct {
	Before string `hcl:"before,optional"`
	After  string `hcl:"after,optional"`
}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".hcl")
}

// 📝 Parse parses the catalog from HCL
func (p *HCLParser) Parse(ctx context.Context, filename string, data []byte) (*Catalog, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, filepath.Base(filename))
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	// Create evaluation context
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var raw hclCatalog
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &raw)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cat := &Catalog{Patches: make([]patch.Descriptor, 0, len(raw.Patches))}
	for _, r := range raw.Validators {
		cat.Validators = append(cat.Validators, ValidatorRoute{Pattern: r.Pattern, Validator: r.Name})
	}
	for _, hp := range raw.Patches {
		d := patch.Descriptor{
			ID:            hp.ID,
			Markers:       hp.Markers,
			Strategy:      patch.Strategy(hp.Strategy),
			Payload:       hp.Payload,
			ImportPattern: hp.ImportPattern,
			Validator:     hp.Validator,
			Target:        hp.Target,
			Description:   hp.Description,
		}
		for _, r := range hp.Regex {
			d.Regex = append(d.Regex, patch.RegexRule{Pattern: r.Pattern, Template: r.Template})
		}
		if hp.Markup != nil {
			d.Markup = &patch.Markup{Before: hp.Markup.Before, After: hp.Markup.After}
		}
		cat.Patches = append(cat.Patches, d)
	}

	return cat, nil
}

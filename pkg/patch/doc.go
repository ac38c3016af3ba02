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

// Package patch defines the data model shared by the patchrc packages.
//
// A Descriptor names one modification: the markers that identify it once
// applied, the strategy that locates the region to change, and the text to
// inject or the regex rules to rewrite with. Descriptors are plain values;
// nothing in patchrc mutates one after it has been loaded.
//
// 🎯 Usage:
//
//	d := patch.Descriptor{
//		ID:       "greeting-v1",
//		Markers:  []string{"# greeting-v1"},
//		Strategy: patch.StrategyAfterLastImport,
//		Payload:  "import greeting  # greeting-v1",
//	}
//	if err := d.Validate(); err != nil {
//		return err
//	}
//
// The error values in this package form the failure taxonomy of a patch
// transaction and are wrapped by every other package.
package patch

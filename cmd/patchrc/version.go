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

package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"github.com/walteh/patchrc/cmd/patchrc/opts"
	"gitlab.com/tozd/go/errors"
)

// 🏷️ buildVersion describes the running binary
type buildVersion struct {
	Version  string `json:"version"`
	Commit   string `json:"commit,omitempty"`
	Dirty    bool   `json:"dirty,omitempty"`
	Built    string `json:"built,omitempty"`
	Go       string `json:"go"`
	Platform string `json:"platform"`
}

// versionFrom reads the module version and vcs stamps out of build info
func versionFrom(info *debug.BuildInfo) buildVersion {
	v := buildVersion{
		Version:  "dev",
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info == nil {
		return v
	}
	if mv := info.Main.Version; mv != "" && mv != "(devel)" {
		v.Version = mv
	}
	for _, kv := range info.Settings {
		switch kv.Key {
		case "vcs.revision":
			v.Commit = kv.Value
		case "vcs.time":
			v.Built = kv.Value
		case "vcs.modified":
			v.Dirty = kv.Value == "true"
		}
	}
	return v
}

func currentVersion() buildVersion {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return versionFrom(nil)
	}
	return versionFrom(info)
}

// String renders one line, e.g. "patchrc v0.3.0 (1a2b3c4d5e6f, dirty) go1.23.5 linux/amd64"
func (v buildVersion) String() string {
	var sb strings.Builder
	sb.WriteString("patchrc " + v.Version)

	var stamp []string
	if v.Commit != "" {
		commit := v.Commit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		stamp = append(stamp, commit)
	}
	if v.Dirty {
		stamp = append(stamp, "dirty")
	}
	if v.Built != "" {
		stamp = append(stamp, "built "+v.Built)
	}
	if len(stamp) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(stamp, ", "))
	}

	fmt.Fprintf(&sb, " %s %s", v.Go, v.Platform)
	return sb.String()
}

// NewVersionCmd creates the version command
func NewVersionCmd(o *opts.RootOpts) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := currentVersion()
			if !asJSON {
				fmt.Fprintln(o.Out, v)
				return nil
			}
			enc := json.NewEncoder(o.Out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(v); err != nil {
				return opts.Failed(errors.Errorf("encoding version: %w", err))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print version information as JSON")

	return cmd
}

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

// Package batch applies many descriptors to their targets. Descriptors that
// share a target run one after another in catalog order; different targets
// run concurrently up to a limit.
package batch

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/config"
	"github.com/walteh/patchrc/pkg/engine"
	"github.com/walteh/patchrc/pkg/patch"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultLimit bounds how many targets are patched at once
const DefaultLimit = 4

// 🎯 Job is one descriptor applied to one target
type Job struct {
	Target     string
	Descriptor patch.Descriptor
}

// Applier runs a single transaction
type Applier interface {
	Apply(ctx context.Context, path string, d patch.Descriptor) *engine.Result
}

var _ Applier = (*engine.Engine)(nil)

// 🏃 Runner executes jobs
type Runner struct {
	applier Applier
	limit   int
}

// 🏗️ NewRunner creates a new runner. A limit below one means DefaultLimit.
func NewRunner(applier Applier, limit int) *Runner {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Runner{
		applier: applier,
		limit:   limit,
	}
}

// Jobs returns one job per catalog patch that names a target
func Jobs(cat *config.Catalog) []Job {
	targeted := cat.Targeted()
	jobs := make([]Job, 0, len(targeted))
	for _, d := range targeted {
		jobs = append(jobs, Job{Target: cat.TargetPath(d), Descriptor: d})
	}
	return jobs
}

// 🏃 Run applies every job and returns results in job order. Cancelling ctx
// stops new transactions from starting; a started one always finishes.
// Jobs that never ran have a nil result.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]*engine.Result, error) {
	logger := zerolog.Ctx(ctx)
	results := make([]*engine.Result, len(jobs))

	groups, order := group(jobs)
	logger.Debug().Int("jobs", len(jobs)).Int("targets", len(order)).Int("limit", r.limit).Msg("starting batch")

	g := new(errgroup.Group)
	g.SetLimit(r.limit)

	for _, key := range order {
		indexes := groups[key]
		g.Go(func() error {
			for _, i := range indexes {
				if err := ctx.Err(); err != nil {
					return errors.Errorf("batch cancelled before %s on %s: %w", jobs[i].Descriptor.ID, jobs[i].Target, err)
				}
				results[i] = r.applier.Apply(ctx, jobs[i].Target, jobs[i].Descriptor)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// group buckets job indexes by the file each target resolves to, keeping
// first-seen order
func group(jobs []Job) (map[string][]int, []string) {
	groups := make(map[string][]int)
	var order []string
	for i, j := range jobs {
		key := targetKey(j.Target)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}
	return groups, order
}

// targetKey is the absolute path with symlinks resolved, which is the file
// the engine writes. Targets that do not resolve fall back to the absolute
// path.
func targetKey(target string) string {
	key := filepath.Clean(target)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	if resolved, err := filepath.EvalSymlinks(key); err == nil {
		key = resolved
	}
	return key
}

// 📊 Tally counts results by outcome, skipping jobs that never ran
func Tally(results []*engine.Result) map[engine.Outcome]int {
	counts := make(map[engine.Outcome]int)
	for _, r := range results {
		if r == nil {
			continue
		}
		counts[r.Outcome]++
	}
	return counts
}

// Failed reports whether any result is a failure or any job never ran
func Failed(results []*engine.Result) bool {
	for _, r := range results {
		if r == nil || !r.OK() {
			return true
		}
	}
	return false
}

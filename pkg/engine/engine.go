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

// Package engine runs the patch-apply transaction.
//
// A transaction reads the target once, skips it when a marker is present,
// snapshots it, resolves the insertion point, writes the new content and
// validates it. Any failure after the snapshot copies it back. The engine
// holds no locks; callers serialize transactions on the same path.
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/backup"
	"github.com/walteh/patchrc/pkg/guard"
	"github.com/walteh/patchrc/pkg/patch"
	"github.com/walteh/patchrc/pkg/resolve"
	"github.com/walteh/patchrc/pkg/textfile"
	"github.com/walteh/patchrc/pkg/validate"
	"gitlab.com/tozd/go/errors"
)

// 🔧 Engine applies descriptors to files
type Engine struct {
	backups        Backupper
	writer         textfile.Writer
	registry       *validate.Registry
	validator      validate.Validator
	fixedValidator bool
	dryRun         bool
	observers      []Observer
}

// 🏭 New creates an engine with atomic writes, timestamped backups and
// the default validator registry.
func New(opts ...Option) *Engine {
	e := &Engine{
		backups:  backup.New(),
		writer:   textfile.AtomicWriter{},
		registry: validate.NewRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type transaction struct {
	*Engine
	d         patch.Descriptor
	res       *Result
	file      *textfile.File
	handle    *backup.Handle
	validator validate.Validator
}

// 🚀 Apply runs one transaction of d against path. It never returns nil
// and never panics; every failure is classified in the result.
func (e *Engine) Apply(ctx context.Context, path string, d patch.Descriptor) *Result {
	res := &Result{
		ID:           uuid.New(),
		Path:         path,
		DescriptorID: d.ID,
		State:        StateStart,
	}

	logger := zerolog.Ctx(ctx).With().
		Str("txn", res.ID.String()).
		Str("path", path).
		Str("patch", d.ID).
		Logger()
	ctx = logger.WithContext(ctx)

	t := &transaction{Engine: e, d: d, res: res}
	t.run(ctx)

	logger.Debug().
		Str("outcome", res.Outcome.String()).
		Str("state", res.State.String()).
		Str("backup", res.BackupPath).
		Err(res.Err).
		Msg("transaction finished")

	return res
}

func (t *transaction) run(ctx context.Context) {
	if err := t.prepare(); err != nil {
		t.abort(ctx, StageRead, OutcomeInvalidDescriptor, patch.ErrInvalidDescriptor, err)
		return
	}

	// read
	t.emit(ctx, StageRead, StatusRunning, "", nil)
	file, err := textfile.Read(ctx, t.res.Path)
	if err != nil {
		t.abort(ctx, StageRead, OutcomeFileNotFound, patch.ErrFileNotFound, err)
		return
	}
	t.file = file
	t.res.Original = file.Content
	t.emit(ctx, StageRead, StatusOK, fmt.Sprintf("%d bytes", len(file.Content)), nil)

	// guard
	content := string(file.Content)
	if marker, ok := guard.Match(content, t.d); ok {
		t.res.Marker = marker
		t.res.State = StateDone
		t.res.Outcome = OutcomeAlreadyPatched
		t.emit(ctx, StageGuard, StatusSkipped, "marker present: "+marker, nil)
		return
	}
	t.res.State = StateGuarded
	t.emit(ctx, StageGuard, StatusOK, "not yet applied", nil)

	if t.dryRun {
		t.plan(ctx, content)
		return
	}

	// backup
	t.emit(ctx, StageBackup, StatusRunning, "", nil)
	var handle *backup.Handle
	if err := guarded(StageBackup, func() error {
		var cerr error
		handle, cerr = t.backups.Create(ctx, t.res.Path)
		if cerr == nil && handle == nil {
			return errors.Errorf("no backup handle for %s", t.res.Path)
		}
		return cerr
	}); err != nil {
		t.abort(ctx, StageBackup, OutcomeBackupFailed, patch.ErrBackupFailed, err)
		return
	}
	t.handle = handle
	t.res.BackupPath = handle.BackupPath
	if handle.Checksum != "" && handle.Checksum != file.Checksum() {
		// the file changed between the read and the snapshot
		t.abort(ctx, StageBackup, OutcomeBackupFailed, patch.ErrBackupFailed,
			errors.Errorf("%s changed while it was being backed up", t.res.Path))
		return
	}
	t.res.State = StateBackedUp
	t.emit(ctx, StageBackup, StatusOK, handle.BackupPath, nil)

	// resolve
	t.emit(ctx, StageResolve, StatusRunning, "", nil)
	plan, err := t.resolve(content)
	if err != nil {
		t.abortResolve(ctx, err)
		return
	}
	t.res.Plan = plan
	t.res.State = StateResolved
	t.emit(ctx, StageResolve, StatusOK, plan.Strategy+": "+plan.Description, nil)

	// write
	t.emit(ctx, StageWrite, StatusRunning, "", nil)
	if err := guarded(StageWrite, func() error {
		return t.writer.WriteFile(ctx, file.Real, []byte(plan.Content), file.Mode)
	}); err != nil {
		t.abort(ctx, StageWrite, OutcomeWriteFailed, patch.ErrWriteFailed, err)
		return
	}
	t.res.State = StateWritten
	t.emit(ctx, StageWrite, StatusOK, fmt.Sprintf("%d bytes", len(plan.Content)), nil)

	// validate
	if t.validator == nil {
		t.emit(ctx, StageValidate, StatusSkipped, "no validator", nil)
	} else {
		t.emit(ctx, StageValidate, StatusRunning, "", nil)
		if err := guarded(StageValidate, func() error {
			return t.validator.Validate(ctx, file.Real)
		}); err != nil {
			t.abort(ctx, StageValidate, OutcomeValidationFailed, patch.ErrValidationFailed, err)
			return
		}
		t.emit(ctx, StageValidate, StatusOK, "valid", nil)
	}
	t.res.State = StateValidated

	// the snapshot stays on disk
	t.res.State = StateDone
	t.res.Outcome = OutcomeApplied
}

// prepare checks the descriptor and picks the validator before any file I/O
func (t *transaction) prepare() error {
	if err := t.d.Validate(); err != nil {
		return err
	}
	if t.fixedValidator {
		t.validator = t.Engine.validator
		return nil
	}
	if t.registry == nil {
		return nil
	}
	v, err := t.registry.For(t.d.ValidatorName(), t.res.Path)
	if err != nil {
		return errors.Errorf("selecting validator: %w", err)
	}
	t.validator = v
	return nil
}

func (t *transaction) plan(ctx context.Context, content string) {
	t.emit(ctx, StageResolve, StatusRunning, "", nil)
	plan, err := t.resolve(content)
	if err != nil {
		t.abortResolve(ctx, err)
		return
	}
	t.res.Plan = plan
	t.res.State = StateDone
	t.res.Outcome = OutcomePlanned
	t.emit(ctx, StageResolve, StatusOK, plan.Strategy+": "+plan.Description, nil)
}

// resolve computes the plan and rejects one whose content carries none of
// the descriptor's markers, since a second run could not detect it.
func (t *transaction) resolve(content string) (plan *resolve.Plan, err error) {
	err = guarded(StageResolve, func() error {
		var rerr error
		plan, rerr = resolve.Resolve(content, t.d)
		return rerr
	})
	if err != nil {
		return nil, err
	}
	if _, ok := guard.Match(plan.Content, t.d); !ok {
		return nil, errors.Errorf("%w: %s leaves none of the markers %q in the patched text",
			patch.ErrInvalidDescriptor, plan.Strategy, t.d.Markers)
	}
	return plan, nil
}

func (t *transaction) abortResolve(ctx context.Context, err error) {
	if errors.Is(err, patch.ErrInvalidDescriptor) {
		t.abort(ctx, StageResolve, OutcomeInvalidDescriptor, patch.ErrInvalidDescriptor, err)
		return
	}
	t.abort(ctx, StageResolve, OutcomeNoInsertionPoint, patch.ErrNoInsertionPoint, err)
}

// abort classifies a failure and rolls back when a snapshot exists
func (t *transaction) abort(ctx context.Context, stage Stage, outcome Outcome, kind, err error) {
	t.res.State = StateAborted
	t.res.Outcome = outcome
	if errors.Is(err, kind) {
		t.res.Err = err
	} else {
		t.res.Err = patch.Wrap(kind, err)
	}
	t.emit(ctx, stage, StatusFailed, "", t.res.Err)

	if t.handle == nil {
		return
	}

	t.emit(ctx, StageRollback, StatusRunning, t.handle.BackupPath, nil)
	if rerr := guarded(StageRollback, func() error {
		return t.backups.Restore(ctx, t.handle)
	}); rerr != nil {
		t.res.Outcome = OutcomeRollbackFailed
		t.res.Err = &patch.RollbackError{
			Cause:      t.res.Err,
			Restore:    rerr,
			BackupPath: t.handle.BackupPath,
		}
		t.emit(ctx, StageRollback, StatusFailed, "", t.res.Err)
		return
	}
	t.res.Restored = true
	t.emit(ctx, StageRollback, StatusOK, "original restored", nil)
}

// guarded runs fn and turns a panic into an error for stage
func guarded(stage Stage, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic during %s: %v", stage, r)
		}
	}()
	return fn()
}

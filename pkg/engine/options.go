package engine

import (
	"context"

	"github.com/walteh/patchrc/pkg/backup"
	"github.com/walteh/patchrc/pkg/textfile"
	"github.com/walteh/patchrc/pkg/validate"
)

// 📸 Backupper snapshots and restores a target
type Backupper interface {
	Create(ctx context.Context, path string) (*backup.Handle, error)
	Restore(ctx context.Context, h *backup.Handle) error
}

var _ Backupper = (*backup.Manager)(nil)

// Option configures an Engine
type Option func(*Engine)

// WithValidator uses v for every transaction, overriding the registry
func WithValidator(v validate.Validator) Option {
	return func(e *Engine) {
		e.validator = v
		e.fixedValidator = true
	}
}

// WithValidatorRegistry selects validators per descriptor and target
func WithValidatorRegistry(r *validate.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithBackupManager replaces the default backup manager
func WithBackupManager(b Backupper) Option {
	return func(e *Engine) {
		e.backups = b
	}
}

// WithWriter replaces how the patched content is written
func WithWriter(w textfile.Writer) Option {
	return func(e *Engine) {
		e.writer = w
	}
}

// WithDryRun stops after resolution without touching the disk
func WithDryRun(dry bool) Option {
	return func(e *Engine) {
		e.dryRun = dry
	}
}

// WithObserver receives a stage event for every step
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

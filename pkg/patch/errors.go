package patch

import (
	"gitlab.com/tozd/go/errors"
)

// Failure taxonomy of a patch transaction. Callers match with errors.Is.
var (
	ErrFileNotFound      = errors.New("target file not readable")
	ErrBackupFailed      = errors.New("backup failed")
	ErrNoInsertionPoint  = errors.New("no insertion point found")
	ErrWriteFailed       = errors.New("write failed")
	ErrValidationFailed  = errors.New("validation failed")
	ErrRollbackFailed    = errors.New("rollback failed")
	ErrInvalidDescriptor = errors.New("invalid descriptor")
)

// 🧱 StageError ties a taxonomy error to the cause reported by the stage
type StageError struct {
	Kind error // one of the Err* values above
	Err  error // underlying cause
}

// Wrap attaches kind to err. A nil err yields nil.
func Wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Kind: kind, Err: err}
}

func (e *StageError) Error() string {
	return e.Kind.Error() + ": " + e.Err.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// ⛔ RollbackError reports a restore that failed after another failure.
// The target may be left modified; BackupPath is the way back.
type RollbackError struct {
	Cause      error  // the failure that triggered the rollback
	Restore    error  // why the restore failed
	BackupPath string // snapshot that could not be copied back
}

func (e *RollbackError) Error() string {
	return ErrRollbackFailed.Error() + ": " + e.Restore.Error() + " (after: " + e.Cause.Error() + "); backup kept at " + e.BackupPath
}

// Unwrap exposes ErrRollbackFailed, the restore error and the original cause
func (e *RollbackError) Unwrap() []error {
	return []error{ErrRollbackFailed, e.Restore, e.Cause}
}

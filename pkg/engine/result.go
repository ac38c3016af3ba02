package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/walteh/patchrc/pkg/resolve"
)

// 🏁 Outcome is the terminal classification of a transaction
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeApplied
	OutcomeAlreadyPatched
	OutcomePlanned
	OutcomeInvalidDescriptor
	OutcomeFileNotFound
	OutcomeBackupFailed
	OutcomeNoInsertionPoint
	OutcomeWriteFailed
	OutcomeValidationFailed
	OutcomeRollbackFailed
)

var outcomeNames = map[Outcome]string{
	OutcomeUnknown:           "unknown",
	OutcomeApplied:           "applied",
	OutcomeAlreadyPatched:    "already_patched",
	OutcomePlanned:           "planned",
	OutcomeInvalidDescriptor: "invalid_descriptor",
	OutcomeFileNotFound:      "file_not_found",
	OutcomeBackupFailed:      "backup_failed",
	OutcomeNoInsertionPoint:  "no_insertion_point",
	OutcomeWriteFailed:       "write_failed",
	OutcomeValidationFailed:  "validation_failed",
	OutcomeRollbackFailed:    "rollback_failed",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// OK reports whether the outcome is a success
func (o Outcome) OK() bool {
	switch o {
	case OutcomeApplied, OutcomeAlreadyPatched, OutcomePlanned:
		return true
	}
	return false
}

// State is a step of the transaction state machine
type State int

const (
	StateStart State = iota
	StateGuarded
	StateBackedUp
	StateResolved
	StateWritten
	StateValidated
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateGuarded:
		return "guarded"
	case StateBackedUp:
		return "backed_up"
	case StateResolved:
		return "resolved"
	case StateWritten:
		return "written"
	case StateValidated:
		return "validated"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// 📋 Result describes how one transaction ended
type Result struct {
	ID           uuid.UUID
	Path         string
	DescriptorID string
	Outcome      Outcome
	State        State         // last state reached, StateDone or StateAborted
	BackupPath   string        // empty when no backup was taken
	Marker       string        // marker found by the guard, if any
	Plan         *resolve.Plan // nil unless resolution succeeded
	Original     []byte        // content read at transaction start
	Restored     bool          // a rollback ran and succeeded
	Err          error
}

// OK reports whether the transaction succeeded
func (r *Result) OK() bool {
	return r.Outcome.OK()
}

// Strategy returns the name of the strategy that matched
func (r *Result) Strategy() string {
	if r.Plan == nil {
		return ""
	}
	return r.Plan.Strategy
}

// Preserved reports whether the target holds its original bytes
func (r *Result) Preserved() bool {
	switch r.Outcome {
	case OutcomeApplied, OutcomeRollbackFailed, OutcomeUnknown:
		return false
	}
	return true
}

func (r *Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", r.DescriptorID, r.Path, r.Outcome, r.Err)
	}
	return fmt.Sprintf("%s %s: %s", r.DescriptorID, r.Path, r.Outcome)
}

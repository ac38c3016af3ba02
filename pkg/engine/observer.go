package engine

import (
	"context"

	"github.com/google/uuid"
)

// Stage names a step of a transaction
type Stage string

const (
	StageRead     Stage = "read"
	StageGuard    Stage = "guard"
	StageBackup   Stage = "backup"
	StageResolve  Stage = "resolve"
	StageWrite    Stage = "write"
	StageValidate Stage = "validate"
	StageRollback Stage = "rollback"
)

// Status is the state of a stage inside an Event
type Status int

const (
	StatusRunning Status = iota
	StatusOK
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	}
	return "unknown"
}

// 📣 Event reports progress of one stage
type Event struct {
	TxnID        uuid.UUID
	Path         string
	DescriptorID string
	Stage        Stage
	Status       Status
	Detail       string
	Err          error
}

// Observer is called synchronously for every event
type Observer func(ctx context.Context, ev Event)

func (t *transaction) emit(ctx context.Context, stage Stage, status Status, detail string, err error) {
	if len(t.observers) == 0 {
		return
	}
	ev := Event{
		TxnID:        t.res.ID,
		Path:         t.res.Path,
		DescriptorID: t.res.DescriptorID,
		Stage:        stage,
		Status:       status,
		Detail:       detail,
		Err:          err,
	}
	for _, o := range t.observers {
		o(ctx, ev)
	}
}

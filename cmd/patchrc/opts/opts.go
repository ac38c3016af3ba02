package opts

import (
	"context"
	"fmt"
	"io"

	"github.com/walteh/patchrc/pkg/config"
	"github.com/walteh/patchrc/pkg/engine"
	"gitlab.com/tozd/go/errors"
)

// Exit codes
const (
	ExitOK       = 0
	ExitFailed   = 1 // transaction failed, original preserved
	ExitUsage    = 2 // bad arguments or catalog
	ExitRollback = 3 // rollback failed, original not on disk
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	ConfigFile string
	Debug      bool
	Out        io.Writer

	catalog *config.Catalog
}

// Catalog loads the catalog named by --config once
func (o *RootOpts) Catalog(ctx context.Context) (*config.Catalog, error) {
	if o.catalog != nil {
		return o.catalog, nil
	}
	if o.ConfigFile == "" {
		return nil, Usage(errors.New("no catalog given, use --config"))
	}
	cat, err := config.Load(ctx, o.ConfigFile)
	if err != nil {
		return nil, Usage(errors.Errorf("loading catalog: %w", err))
	}
	o.catalog = cat
	return cat, nil
}

// 🚪 ExitError carries the process exit code for a command failure
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Usage marks err as a usage or configuration error
func Usage(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

// Failed marks err as a failed operation
func Failed(err error) error {
	return &ExitError{Code: ExitFailed, Err: err}
}

// ForOutcome maps a transaction outcome to its exit code
func ForOutcome(o engine.Outcome) int {
	switch {
	case o.OK():
		return ExitOK
	case o == engine.OutcomeRollbackFailed:
		return ExitRollback
	case o == engine.OutcomeInvalidDescriptor:
		return ExitUsage
	}
	return ExitFailed
}

// ResultError returns nil for a successful result and an ExitError otherwise
func ResultError(res *engine.Result) error {
	code := ForOutcome(res.Outcome)
	if code == ExitOK {
		return nil
	}
	return &ExitError{Code: code, Err: res.Err}
}

// Code returns the exit code for an error returned by a command. Errors that
// are not ExitErrors come from argument parsing.
func Code(err error) int {
	if err == nil {
		return ExitOK
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return ExitUsage
}

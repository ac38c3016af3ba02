package log

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/walteh/patchrc/pkg/engine"
	"gitlab.com/tozd/go/errors"
)

// 🧾 Summary prints the final line of a transaction, stating whether the
// original file is on disk.
func (l *Logger) Summary(ctx context.Context, res *engine.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var printer *pterm.PrefixPrinter
	var msg string
	switch res.Outcome {
	case engine.OutcomeApplied:
		printer = pterm.Success.WithPrefix(pterm.Prefix{Text: "✅"})
		msg = fmt.Sprintf("applied %s to %s via %s (backup %s)", res.DescriptorID, res.Path, res.Strategy(), res.BackupPath)
	case engine.OutcomeAlreadyPatched:
		printer = pterm.Info.WithPrefix(pterm.Prefix{Text: "•"})
		msg = fmt.Sprintf("%s already patched with %s, nothing to do", res.Path, res.DescriptorID)
	case engine.OutcomePlanned:
		printer = pterm.Info.WithPrefix(pterm.Prefix{Text: "📝"})
		msg = fmt.Sprintf("dry run: %s would be patched via %s", res.Path, res.Strategy())
	case engine.OutcomeRollbackFailed:
		printer = pterm.Error.WithPrefix(pterm.Prefix{Text: "🔥"})
		msg = fmt.Sprintf("%s: original NOT restored, recover it from %s", res.Outcome, res.BackupPath)
	default:
		printer = pterm.Error.WithPrefix(pterm.Prefix{Text: "❌"})
		msg = fmt.Sprintf("%s: original file preserved", res.Outcome)
		if res.Restored {
			msg += " (restored from " + res.BackupPath + ")"
		}
	}

	fmt.Fprint(l.console, printer.Sprintln(msg))

	l.zlog.Info().
		Str("txn", res.ID.String()).
		Str("patch", res.DescriptorID).
		Str("path", res.Path).
		Str("outcome", res.Outcome.String()).
		Bool("preserved", res.Preserved()).
		Str("backup", res.BackupPath).
		Err(res.Err).
		Msg("transaction summary")
}

// 📊 Table prints one row per result
func (l *Logger) Table(results []*engine.Result) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data := pterm.TableData{{"patch", "target", "outcome", "strategy", "backup"}}
	for _, r := range results {
		data = append(data, []string{r.DescriptorID, r.Path, r.Outcome.String(), r.Strategy(), r.BackupPath})
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Errorf("rendering table: %w", err)
	}
	fmt.Fprintln(l.console, out)
	return nil
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/walteh/patchrc/cmd/patchrc/opts"
	"github.com/walteh/patchrc/pkg/batch"
	"github.com/walteh/patchrc/pkg/engine"
	"github.com/walteh/patchrc/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// NewBatchCmd creates the batch command
func NewBatchCmd(o *opts.RootOpts) *cobra.Command {
	var (
		jobs   int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Apply every catalog patch that names a target",
		Long: `Batch applies each patch with a target to that target. Patches for the
same file run one after another in catalog order; different files are
patched concurrently.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()
			console := log.FromContext(ctx)

			cat, err := o.Catalog(ctx)
			if err != nil {
				return err
			}
			todo := batch.Jobs(cat)
			if len(todo) == 0 {
				return opts.Usage(errors.Errorf("%s has no patch with a target", cat.Location()))
			}

			registry, err := cat.Registry()
			if err != nil {
				return opts.Usage(err)
			}

			console.Header("batch of " + cat.Location())

			eng := engine.New(
				engine.WithDryRun(dryRun),
				engine.WithValidatorRegistry(registry),
			)
			runner := batch.NewRunner(eng, jobs)
			results, runErr := runner.Run(ctx, todo)

			var ran []*engine.Result
			code := opts.ExitOK
			for _, r := range results {
				if r == nil {
					code = max(code, opts.ExitFailed)
					continue
				}
				ran = append(ran, r)
				code = max(code, opts.ForOutcome(r.Outcome))
			}

			if skipped := len(results) - len(ran); skipped > 0 {
				console.Warning(fmt.Sprintf("%d of %d patches did not run", skipped, len(todo)))
			}

			if err := console.Table(ran); err != nil {
				return opts.Failed(err)
			}
			for _, r := range ran {
				if !r.OK() {
					console.Summary(ctx, r)
				}
			}

			if runErr != nil {
				return &opts.ExitError{Code: max(code, opts.ExitFailed), Err: runErr}
			}
			if code != opts.ExitOK {
				return &opts.ExitError{Code: code, Err: errors.Errorf("%d of %d patches failed", countFailed(ran), len(todo))}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", batch.DefaultLimit, "targets patched at once")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan every patch without writing")

	return cmd
}

func countFailed(results []*engine.Result) int {
	n := 0
	for _, r := range results {
		if !r.OK() {
			n++
		}
	}
	return n
}

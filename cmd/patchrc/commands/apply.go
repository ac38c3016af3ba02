package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/patchrc/cmd/patchrc/opts"
	"github.com/walteh/patchrc/pkg/diff"
	"github.com/walteh/patchrc/pkg/engine"
	"github.com/walteh/patchrc/pkg/log"
)

// NewApplyCmd creates the apply command
func NewApplyCmd(o *opts.RootOpts) *cobra.Command {
	var (
		patchID string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "apply -p <patch> <target>",
		Short: "Apply one patch to one file",
		Long: `Apply runs a single patch transaction against a file.
It will:
1. Skip the file if a marker of the patch is already present
2. Back the file up next to itself as <file>.backup_<timestamp>
3. Find where the patch goes and write the patched file
4. Validate the result and restore the backup on any failure

With --dry-run nothing is written and the planned change is shown as a diff.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()
			console := log.FromContext(ctx)

			cat, err := o.Catalog(ctx)
			if err != nil {
				return err
			}
			d, err := cat.Get(patchID)
			if err != nil {
				return opts.Usage(err)
			}

			registry, err := cat.Registry()
			if err != nil {
				return opts.Usage(err)
			}

			target := args[0]
			console.Header("applying " + d.ID)

			eng := engine.New(
				engine.WithDryRun(dryRun),
				engine.WithValidatorRegistry(registry),
				engine.WithObserver(console.Observe),
			)
			res := eng.Apply(ctx, target, d)

			if res.Outcome == engine.OutcomePlanned && res.Plan != nil {
				planned := []byte(res.Plan.Content)
				unified, _ := diff.Unified("a/"+target, "b/"+target, res.Original, planned, diff.Options{})
				console.LogNewline()
				console.Diff(unified)
				console.Infof("change %s", diff.Compute(string(res.Original), res.Plan.Content))
			}

			console.Summary(ctx, res)
			return opts.ResultError(res)
		},
	}

	cmd.Flags().StringVarP(&patchID, "patch", "p", "", "id of the patch in the catalog")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the planned change without writing")
	_ = cmd.MarkFlagRequired("patch")

	return cmd
}

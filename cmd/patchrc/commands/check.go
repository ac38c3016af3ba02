package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/patchrc/cmd/patchrc/opts"
	"github.com/walteh/patchrc/pkg/guard"
	"github.com/walteh/patchrc/pkg/log"
	"github.com/walteh/patchrc/pkg/textfile"
	"gitlab.com/tozd/go/errors"
)

// NewCheckCmd creates the check command
func NewCheckCmd(o *opts.RootOpts) *cobra.Command {
	var patchID string

	cmd := &cobra.Command{
		Use:   "check -p <patch> <target>",
		Short: "Report whether a patch is already applied",
		Long: `Check looks for the markers of a patch in a file without changing it.
Exits 0 when the file is patched and 1 when it is not.`,
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

			f, err := textfile.Read(ctx, args[0])
			if err != nil {
				return opts.Failed(errors.Errorf("reading target: %w", err))
			}

			marker, ok := guard.Match(string(f.Content), d)
			if !ok {
				console.Infof("%s is not patched with %s", args[0], d.ID)
				return &opts.ExitError{Code: opts.ExitFailed}
			}
			console.Infof("%s is patched with %s (marker %q)", args[0], d.ID, marker)
			return nil
		},
	}

	cmd.Flags().StringVarP(&patchID, "patch", "p", "", "id of the patch in the catalog")
	_ = cmd.MarkFlagRequired("patch")

	return cmd
}

package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/patchrc/cmd/patchrc/opts"
	"github.com/walteh/patchrc/pkg/backup"
	"github.com/walteh/patchrc/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// NewRestoreCmd creates the restore command
func NewRestoreCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <backup> <target>",
		Short: "Copy a backup back over its target",
		Long: `Restore replaces the target with the bytes of a backup and verifies the
result. The backup itself is kept.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()

			h, err := backup.Open(args[0], args[1])
			if err != nil {
				return opts.Failed(errors.Errorf("opening backup: %w", err))
			}
			if err := backup.New().Restore(ctx, h); err != nil {
				return opts.Failed(errors.Errorf("restoring: %w", err))
			}

			log.FromContext(ctx).Infof("restored %s from %s", h.Path, h.BackupPath)
			return nil
		},
	}

	return cmd
}

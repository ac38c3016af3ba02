package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/walteh/patchrc/cmd/patchrc/opts"
	"github.com/walteh/patchrc/pkg/backup"
	"github.com/walteh/patchrc/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// NewBackupsCmd creates the backups command
func NewBackupsCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups <target>",
		Short: "List the backups of a file, oldest first",
		Long: `Backups lists every <target>.backup_<timestamp> snapshot. patchrc never
deletes backups; use this to find the ones to clean up.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()

			handles, err := backup.List(ctx, args[0])
			if err != nil {
				return opts.Failed(errors.Errorf("listing backups: %w", err))
			}
			if len(handles) == 0 {
				log.FromContext(ctx).Infof("no backups of %s", args[0])
				return nil
			}
			for _, h := range handles {
				fmt.Fprintf(o.Out, "%s\t%s\t%d\n", h.BackupPath, h.CreatedAt.Format("2006-01-02 15:04:05"), h.Size)
			}
			return nil
		},
	}

	return cmd
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dukerupert/pixelquest/internal/server"
)

// NewBackupCommand creates the backup command.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	var passphrase string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write an encrypted snapshot of all data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				passphrase = rootOpts.cfg.Backup.Passphrase
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				mgr := server.NewBackupManager(rootOpts.cfg, a.db, nil, a.logger.With("component", "backup"))
				b, err := mgr.RunNow(ctx, passphrase)
				if err != nil {
					return err
				}
				return a.out.Success(b, func(w io.Writer) {
					fmt.Fprintf(w, "Backup %d written to %s (%d bytes)\n", b.ID, b.Location, b.SizeBytes)
				})
			})
		},
	}

	cmd.Flags().StringVar(&passphrase, "passphrase", "", "encryption passphrase (default PIXELQUEST_BACKUP_PASSPHRASE)")
	return cmd
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	var passphrase string

	cmd := &cobra.Command{
		Use:   "restore <file|backup-id>",
		Short: "Replace all data with an encrypted snapshot",
		Long: `Restore replaces every user, resolution and log with the contents of a
snapshot. The argument is either a snapshot file path or the id of a backup
listed in the database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				passphrase = rootOpts.cfg.Backup.Passphrase
			}
			if passphrase == "" {
				return errors.New("a passphrase is required: pass --passphrase")
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				mgr := server.NewBackupManager(rootOpts.cfg, a.db, nil, a.logger.With("component", "backup"))

				var err error
				if id, convErr := strconv.ParseInt(args[0], 10, 64); convErr == nil && !fileExists(args[0]) {
					err = mgr.Restore(ctx, id, passphrase)
				} else {
					err = mgr.RestoreFile(ctx, args[0], passphrase)
				}
				if err != nil {
					return err
				}
				return a.out.Success(map[string]string{"restored": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "Restored from %s\n", args[0])
				})
			})
		},
	}

	cmd.Flags().StringVar(&passphrase, "passphrase", "", "decryption passphrase (default PIXELQUEST_BACKUP_PASSPHRASE)")
	return cmd
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

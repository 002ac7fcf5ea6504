package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dvloznov/ledger-intake/internal/backup"
)

func newBackupCommand(opts *globalOptions) *cobra.Command {
	var outPath string
	var toGCS bool

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export the ledger as a JSON backup",
		Long:  "Write the ledger to --out (stdout when empty), or upload it to the configured bucket with --gcs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if toGCS {
				if a.Archiver == nil {
					return fmt.Errorf("backup.bucket is not configured")
				}
				uri, err := a.Archiver.Archive(ctx, a.Store, time.Now())
				if err != nil {
					return err
				}
				success(cmd.ErrOrStderr(), "archived to %s", uri)
				return nil
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("creating %s: %w", outPath, err)
				}
				defer f.Close()
				w = f
			}
			doc, err := backup.Export(ctx, a.Store, w, time.Now())
			if err != nil {
				return err
			}
			if outPath != "" {
				success(cmd.ErrOrStderr(), "wrote %d accounts and %d transactions to %s", len(doc.Accounts), len(doc.Transactions), outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file")
	cmd.Flags().BoolVar(&toGCS, "gcs", false, "upload to the configured backup bucket")

	return cmd
}

func newRestoreCommand(opts *globalOptions) *cobra.Command {
	var object string
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore [file]",
		Short: "Replace the ledger with a backup",
		Long:  "Restore from a backup file, or from an object in the backup bucket with --object. The current ledger is replaced.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (object == "") == (len(args) == 0) {
				return fmt.Errorf("give either a backup file or --object")
			}

			a, ctx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if !yes && !confirm(cmd.InOrStdin(), out, "This replaces the whole ledger. Continue?") {
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}

			var doc backup.Document
			if object != "" {
				if a.Archiver == nil {
					return fmt.Errorf("backup.bucket is not configured")
				}
				doc, err = a.Archiver.RestoreObject(ctx, a.Store, object)
			} else {
				var f *os.File
				f, err = os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening %s: %w", args[0], err)
				}
				defer f.Close()
				doc, err = backup.Restore(ctx, a.Store, f)
			}
			if err != nil {
				return err
			}
			success(out, "restored %d accounts and %d transactions exported at %s",
				len(doc.Accounts), len(doc.Transactions), doc.ExportedAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&object, "object", "", "object name in the backup bucket")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

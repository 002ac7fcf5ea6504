package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dvloznov/ledger-intake/internal/app"
	"github.com/dvloznov/ledger-intake/internal/logger"
)

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	var appliedBy string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the BigQuery ledger tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Ledger.BigQuery.ProjectID == "" {
				return fmt.Errorf("ledger.bigquery.project_id is required")
			}
			log, err := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
			if err != nil {
				return err
			}
			ctx := logger.WithContext(cmd.Context(), log)

			p, err := app.OpenBigQuery(ctx, cfg.Ledger.BigQuery)
			if err != nil {
				return err
			}
			defer p.Close()

			if appliedBy == "" {
				appliedBy = os.Getenv("USER")
			}
			n, err := p.EnsureSchema(ctx, appliedBy)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
				return nil
			}
			success(cmd.OutOrStdout(), "applied %d migration(s) to %s.%s", n, cfg.Ledger.BigQuery.ProjectID, cfg.Ledger.BigQuery.Dataset)
			return nil
		},
	}
	cmd.Flags().StringVar(&appliedBy, "applied-by", "", "name recorded with each migration (default $USER)")

	return cmd
}

func newSyncNotionCommand(opts *globalOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync-notion",
		Short: "Mirror accounts and transactions into Notion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			syncer, err := a.NewNotionSyncer(dryRun)
			if err != nil {
				return err
			}
			res, err := syncer.SyncLedger(ctx, a.Store.Snapshot())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				warning(out, "dry run: no changes were written")
			}
			success(out, "created %d, updated %d, archived %d", res.Created, res.Updated, res.Deleted)
			if res.Failed > 0 {
				failure(out, "%d page(s) failed, see the log", res.Failed)
				return fmt.Errorf("%d Notion page(s) failed to sync", res.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report changes without writing them")

	return cmd
}

// Package commands implements the ledger-intake command line.
package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dvloznov/ledger-intake/internal/app"
	"github.com/dvloznov/ledger-intake/internal/config"
	"github.com/dvloznov/ledger-intake/internal/logger"
)

type globalOptions struct {
	configPath string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "ledger-intake",
		Short: "Turn free text and CSV files into ledger transactions",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("LEDGER_CONFIG"), "path to ledger-intake.yaml")

	rootCmd.AddCommand(
		newIngestCommand(opts),
		newImportCommand(opts),
		newAccountsCommand(opts),
		newTransferCommand(opts),
		newBackupCommand(opts),
		newRestoreCommand(opts),
		newMigrateCommand(opts),
		newSyncNotionCommand(opts),
	)

	return rootCmd
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// open loads the config and the ledger. The returned context carries the
// configured logger.
func (o *globalOptions) open(ctx context.Context) (*app.App, context.Context, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, ctx, err
	}
	log, err := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, ctx, err
	}
	ctx = logger.WithContext(ctx, log)

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		return nil, ctx, err
	}
	return a, ctx, nil
}

// confirm asks a yes/no question on in and reports whether the answer was yes.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dvloznov/ledger-intake/internal/app"
	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/pipeline"
	"github.com/dvloznov/ledger-intake/internal/session"
)

type reviewOptions struct {
	yes     bool
	remove  []string
	timeout time.Duration
}

func (r *reviewOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&r.yes, "yes", "y", false, "commit without asking")
	cmd.Flags().StringSliceVar(&r.remove, "remove", nil, "staging ids to drop before committing")
	cmd.Flags().DurationVar(&r.timeout, "timeout", 5*time.Minute, "overall time limit")
}

func newIngestCommand(opts *globalOptions) *cobra.Command {
	var review reviewOptions
	var text string

	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Extract transactions from free text and commit them",
		Long: "Extract transactions from free text with the model, show them for review and commit them.\n" +
			"Text comes from --text, the file argument, or stdin. Reading stdin requires --yes to commit.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			interactive := true
			if text == "" {
				var data []byte
				var err error
				if len(args) == 1 && args[0] != "-" {
					data, err = os.ReadFile(args[0])
				} else {
					data, err = io.ReadAll(cmd.InOrStdin())
					interactive = false
				}
				if err != nil {
					return fmt.Errorf("reading input: %w", err)
				}
				text = string(data)
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("no input text")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), review.timeout)
			defer cancel()
			a, ctx, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			ingestor, err := a.NewIngestor(ctx)
			if err != nil {
				return err
			}
			return runReview(ctx, cmd, a, ingestor, review, interactive, func(s *session.Session) (session.IngestReport, error) {
				return s.IngestText(ctx, text)
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "text to extract from")
	review.bind(cmd)

	return cmd
}

func newImportCommand(opts *globalOptions) *cobra.Command {
	var review reviewOptions

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import transactions from a CSV file",
		Long:  "Import rows of date,description,amount,type,accountName. The first row is a header.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading CSV: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), review.timeout)
			defer cancel()
			a, ctx, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			ingestor, err := a.NewCSVIngestor()
			if err != nil {
				return err
			}
			return runReview(ctx, cmd, a, ingestor, review, true, func(s *session.Session) (session.IngestReport, error) {
				return s.ImportCSV(ctx, data)
			})
		},
	}
	review.bind(cmd)

	cmd.AddCommand(newImportTemplateCommand())
	return cmd
}

func newImportTemplateCommand() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Print a CSV template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipeline.WriteCSVTemplate(cmd.OutOrStdout(), account)
		},
	}
	cmd.Flags().StringVar(&account, "account", "Main Account", "account name for the example row")
	return cmd
}

// runReview stages candidates in a fresh session, prints them and commits
// them after confirmation.
func runReview(ctx context.Context, cmd *cobra.Command, a *app.App, ingestor *pipeline.Ingestor, review reviewOptions, interactive bool, stage func(*session.Session) (session.IngestReport, error)) error {
	out := cmd.OutOrStdout()
	s := session.New("cli", ingestor, a.Store, time.Now)

	report, err := stage(s)
	if err != nil {
		return err
	}
	for _, id := range review.remove {
		if err := s.Batch().Remove(domain.StagingID(id)); err != nil {
			return err
		}
	}

	staged := s.Batch().List()
	printReport(out, report, staged, a.Store.Accounts())
	if len(staged) == 0 {
		return nil
	}

	if !review.yes {
		if !interactive {
			warning(out, "not committed: re-run with --yes to commit input read from stdin")
			return nil
		}
		if !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Commit %d transaction(s)?", len(staged))) {
			s.Cancel()
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	txs, err := s.Commit(ctx)
	if err != nil {
		return err
	}
	success(out, "committed %d transaction(s)", len(txs))
	return nil
}

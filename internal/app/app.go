// Package app builds the ledger, ingestion and integration components from a
// Config. Both binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/dvloznov/ledger-intake/internal/backup"
	"github.com/dvloznov/ledger-intake/internal/config"
	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/gcsuploader"
	infraBQ "github.com/dvloznov/ledger-intake/internal/infra/bigquery"
	"github.com/dvloznov/ledger-intake/internal/infra/sqlite"
	"github.com/dvloznov/ledger-intake/internal/ledger"
	"github.com/dvloznov/ledger-intake/internal/notionsync"
	"github.com/dvloznov/ledger-intake/internal/pipeline"
)

// App holds the components opened from one Config.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  *ledger.Store
	// Archiver is nil unless a backup bucket is configured.
	Archiver *backup.Archiver

	closers []io.Closer
}

// OpenPersister returns the persister for the configured backend. The closer
// is nil for backends without resources to release; the persister is nil for
// the memory backend.
func OpenPersister(ctx context.Context, cfg config.LedgerConfig) (ledger.Persister, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return nil, nil, nil
	case config.BackendFile:
		return backup.NewFilePersister(cfg.Path), nil, nil
	case config.BackendSQLite:
		p, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenPersister: %w", err)
		}
		return p, p, nil
	case config.BackendBigQuery:
		p, err := OpenBigQuery(ctx, cfg.BigQuery)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenPersister: %w", err)
		}
		return p, p, nil
	default:
		return nil, nil, fmt.Errorf("OpenPersister: unknown backend %q", cfg.Backend)
	}
}

// OpenBigQuery creates the BigQuery persister for cfg.
func OpenBigQuery(ctx context.Context, cfg config.BigQueryConfig) (*infraBQ.LedgerPersister, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return infraBQ.NewLedgerPersister(ctx, cfg.ProjectID, cfg.Dataset, opts...)
}

// ledgerDirectory lets the Notion exporter read the store it observes, which
// only exists after the observer has been registered.
type ledgerDirectory struct {
	store *ledger.Store
}

func (d *ledgerDirectory) Accounts() []domain.Account {
	if d.store == nil {
		return nil
	}
	return d.store.Accounts()
}

func (d *ledgerDirectory) Settings() domain.Settings {
	if d.store == nil {
		return domain.DefaultSettings()
	}
	return d.store.Settings()
}

// Open loads the ledger and the optional backup archiver.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log}

	persister, closer, err := OpenPersister(ctx, cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	var opts []ledger.Option
	if persister != nil {
		opts = append(opts, ledger.WithPersister(persister))
	}

	dir := &ledgerDirectory{}
	if cfg.Notion.ExportOnCommit && cfg.Notion.Token != "" && cfg.Notion.TransactionsDB != "" {
		exporter := notionsync.NewExporter(notionsync.NewNotionClient(cfg.Notion.Token), cfg.Notion.TransactionsDB, dir)
		opts = append(opts, ledger.WithObserver(exporter))
		log.Info().Str("database_id", cfg.Notion.TransactionsDB).Msg("Notion export on commit enabled")
	}

	store, err := ledger.Open(ctx, opts...)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("Open: %w", err)
	}
	dir.store = store
	a.Store = store

	if cfg.Backup.Bucket != "" {
		objects, err := gcsuploader.NewGCSStore(ctx, cfg.Backup.Bucket, cfg.Backup.CredentialsFile)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("Open: %w", err)
		}
		a.closers = append(a.closers, objects)
		a.Archiver = backup.NewArchiver(objects, cfg.Backup.Prefix)
	}

	log.Info().
		Str("backend", cfg.Ledger.Backend).
		Int("accounts", len(store.Accounts())).
		Int("transactions", len(store.Transactions())).
		Msg("Ledger opened")
	return a, nil
}

// NewIngestor creates the Gemini extractor and the ingestion pipeline.
func (a *App) NewIngestor(ctx context.Context) (*pipeline.Ingestor, error) {
	tolerance, err := a.Config.Tolerance()
	if err != nil {
		return nil, fmt.Errorf("NewIngestor: %w", err)
	}
	client, err := pipeline.NewGeminiClient(ctx, a.Config.Extraction.APIKey)
	if err != nil {
		return nil, fmt.Errorf("NewIngestor: %w", err)
	}
	extractor := pipeline.NewGeminiExtractor(client.Models, a.Config.Extraction.Model)
	return pipeline.NewIngestor(extractor, pipeline.NewDuplicateDetector(tolerance)), nil
}

// NewCSVIngestor creates an ingestion pipeline without a model client. It
// can only import CSV.
func (a *App) NewCSVIngestor() (*pipeline.Ingestor, error) {
	tolerance, err := a.Config.Tolerance()
	if err != nil {
		return nil, fmt.Errorf("NewCSVIngestor: %w", err)
	}
	return pipeline.NewIngestor(nil, pipeline.NewDuplicateDetector(tolerance)), nil
}

// NewNotionSyncer creates a syncer for the configured Notion databases.
func (a *App) NewNotionSyncer(dryRun bool) (*notionsync.Syncer, error) {
	if !a.Config.Notion.Enabled() {
		return nil, errors.New("NewNotionSyncer: notion token and at least one database id are required")
	}
	return notionsync.NewSyncer(notionsync.NewNotionClient(a.Config.Notion.Token), notionsync.Databases{
		Transactions: a.Config.Notion.TransactionsDB,
		Accounts:     a.Config.Notion.AccountsDB,
	}, dryRun), nil
}

// Close releases every opened backend in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

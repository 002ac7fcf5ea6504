package main

import (
	"context"
	"flag"
	"os"
	"time"

	"google.golang.org/api/option"

	infraBQ "github.com/dvloznov/ledger-intake/internal/infra/bigquery"
	"github.com/dvloznov/ledger-intake/internal/logger"
)

var (
	projectID       = flag.String("project", os.Getenv("GCP_PROJECT"), "GCP project ID (required, or set GCP_PROJECT env)")
	datasetID       = flag.String("dataset", infraBQ.DefaultDatasetID, "BigQuery dataset ID")
	appliedBy       = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	credentialsFile = flag.String("credentials", "", "Service account key file (default: application default credentials)")
)

func main() {
	flag.Parse()

	log := logger.New()

	if *projectID == "" {
		log.Fatal().Msg("Error: -project flag is required. Please specify your GCP project ID.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var opts []option.ClientOption
	if *credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(*credentialsFile))
	}

	persister, err := infraBQ.NewLedgerPersister(ctx, *projectID, *datasetID, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer persister.Close()

	n, err := persister.EnsureSchema(ctx, *appliedBy)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	if n == 0 {
		log.Info().Str("dataset", *datasetID).Msg("No pending migrations")
		return
	}
	log.Info().Int("applied", n).Str("dataset", *datasetID).Msg("All migrations applied successfully")
}

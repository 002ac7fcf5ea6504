package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	"github.com/dvloznov/ledger-intake/internal/ledger"
)

// DefaultDatasetID is used when no dataset is configured.
const DefaultDatasetID = "ledger"

// LedgerPersister stores the ledger in a BigQuery dataset. It holds one client
// shared by every call.
type LedgerPersister struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewLedgerPersister connects to BigQuery for projectID.
func NewLedgerPersister(ctx context.Context, projectID, datasetID string, opts ...option.ClientOption) (*LedgerPersister, error) {
	if projectID == "" {
		return nil, fmt.Errorf("NewLedgerPersister: project ID is required")
	}
	if datasetID == "" {
		datasetID = DefaultDatasetID
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewLedgerPersister: creating client: %w", err)
	}
	return &LedgerPersister{client: client, projectID: projectID, datasetID: datasetID}, nil
}

// Close closes the BigQuery client connection.
func (p *LedgerPersister) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func (p *LedgerPersister) Load(ctx context.Context) (ledger.Snapshot, error) {
	return LoadLedgerWithClient(ctx, p.client, p.projectID, p.datasetID)
}

func (p *LedgerPersister) Save(ctx context.Context, snap ledger.Snapshot) error {
	return SaveLedgerWithClient(ctx, p.client, p.projectID, p.datasetID, snap)
}

// EnsureSchema applies any pending migrations.
func (p *LedgerPersister) EnsureSchema(ctx context.Context, appliedBy string) (int, error) {
	return MigrateWithClient(ctx, p.client, p.projectID, p.datasetID, appliedBy)
}

var _ ledger.Persister = (*LedgerPersister)(nil)

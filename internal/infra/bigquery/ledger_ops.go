package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/ledger-intake/internal/ledger"
	"github.com/dvloznov/ledger-intake/internal/logger"
)

const (
	accountsTable     = "accounts"
	transactionsTable = "transactions"
	categoriesTable   = "categories"
	settingsTable     = "settings"
)

// LoadLedgerWithClient reads the four ledger tables into a snapshot.
func LoadLedgerWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID string) (ledger.Snapshot, error) {
	var rows ledgerRows
	var err error

	rows.accounts, err = queryRows[AccountRow](ctx, client, fmt.Sprintf(`
		SELECT position, account_id, name, account_type,
		       CAST(opening_balance AS STRING) AS opening_balance,
		       CAST(balance AS STRING) AS balance
		FROM `+"`%s.%s.%s`"+`
		ORDER BY position
	`, projectID, datasetID, accountsTable))
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("LoadLedgerWithClient: accounts: %w", err)
	}

	rows.transactions, err = queryRows[TransactionRow](ctx, client, fmt.Sprintf(`
		SELECT position, transaction_id, transaction_date, IFNULL(description, '') AS description,
		       CAST(amount AS STRING) AS amount, type,
		       IFNULL(category_name, '') AS category_name,
		       IFNULL(subcategory_name, '') AS subcategory_name,
		       account_id,
		       IFNULL(transfer_account_id, '') AS transfer_account_id,
		       IFNULL(unit_details, '') AS unit_details,
		       IFNULL(remarks, '') AS remarks,
		       IFNULL(source, '') AS source,
		       created_ts
		FROM `+"`%s.%s.%s`"+`
		ORDER BY position
	`, projectID, datasetID, transactionsTable))
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("LoadLedgerWithClient: transactions: %w", err)
	}

	rows.categories, err = queryRows[CategoryRow](ctx, client, fmt.Sprintf(`
		SELECT position, name, subcategories
		FROM `+"`%s.%s.%s`"+`
		ORDER BY position
	`, projectID, datasetID, categoriesTable))
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("LoadLedgerWithClient: categories: %w", err)
	}

	rows.settings, err = queryRows[SettingsRow](ctx, client, fmt.Sprintf(`
		SELECT currency, default_category
		FROM `+"`%s.%s.%s`"+`
		LIMIT 1
	`, projectID, datasetID, settingsTable))
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("LoadLedgerWithClient: settings: %w", err)
	}

	snap, err := fromRows(rows)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("LoadLedgerWithClient: %w", err)
	}
	return snap, nil
}

// SaveLedgerWithClient replaces the contents of every ledger table with snap.
// Each table is written by its own load job, so a failure part way through can
// leave the tables out of step; Load validates the result on the next start.
func SaveLedgerWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID string, snap ledger.Snapshot) error {
	log := logger.FromContext(ctx)
	rows := toRows(snap)
	dataset := client.DatasetInProject(projectID, datasetID)

	if err := replaceTable(ctx, client, dataset.Table(accountsTable), rows.accounts); err != nil {
		return fmt.Errorf("SaveLedgerWithClient: accounts: %w", err)
	}
	if err := replaceTable(ctx, client, dataset.Table(categoriesTable), rows.categories); err != nil {
		return fmt.Errorf("SaveLedgerWithClient: categories: %w", err)
	}
	if err := replaceTable(ctx, client, dataset.Table(settingsTable), rows.settings); err != nil {
		return fmt.Errorf("SaveLedgerWithClient: settings: %w", err)
	}
	if err := replaceTable(ctx, client, dataset.Table(transactionsTable), rows.transactions); err != nil {
		return fmt.Errorf("SaveLedgerWithClient: transactions: %w", err)
	}

	log.Debug().
		Int("accounts", len(rows.accounts)).
		Int("transactions", len(rows.transactions)).
		Str("dataset", datasetID).
		Msg("ledger saved to BigQuery")
	return nil
}

func queryRows[T any](ctx context.Context, client *bigquery.Client, sql string) ([]T, error) {
	it, err := client.Query(sql).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("running query: %w", err)
	}
	var out []T
	for {
		var row T
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}
		out = append(out, row)
	}
	return out, nil
}

// replaceTable truncates the table and loads rows as newline-delimited JSON.
func replaceTable[T any](ctx context.Context, client *bigquery.Client, table *bigquery.Table, rows []T) error {
	if len(rows) == 0 {
		sql := fmt.Sprintf("TRUNCATE TABLE `%s.%s.%s`", table.ProjectID, table.DatasetID, table.TableID)
		return waitQuery(ctx, client.Query(sql))
	}

	data, err := encodeNDJSON(rows)
	if err != nil {
		return err
	}

	source := bigquery.NewReaderSource(bytes.NewReader(data))
	source.SourceFormat = bigquery.JSON

	loader := table.LoaderFrom(source)
	loader.WriteDisposition = bigquery.WriteTruncate
	loader.CreateDisposition = bigquery.CreateNever

	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("starting load job: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for load job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("load job error: %w", err)
	}
	return nil
}

func encodeNDJSON[T any](rows []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			return nil, fmt.Errorf("encoding row %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

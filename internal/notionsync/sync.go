package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/ledger"
	"github.com/dvloznov/ledger-intake/internal/logger"
)

// PageSize is the Notion query page size.
const PageSize = 100

// Databases names the Notion databases to write to. An empty id skips that
// part of the sync.
type Databases struct {
	Transactions string
	Accounts     string
}

// Result counts what a sync did. Failed records are logged and counted but do
// not stop the sync.
type Result struct {
	Created int
	Updated int
	Deleted int
	Failed  int
}

func (r *Result) add(o Result) {
	r.Created += o.Created
	r.Updated += o.Updated
	r.Deleted += o.Deleted
	r.Failed += o.Failed
}

// Syncer mirrors ledger state into Notion.
type Syncer struct {
	client NotionService
	dbs    Databases
	dryRun bool
}

// NewSyncer creates a Syncer. In dry-run mode nothing is written and the
// result reports what would have changed.
func NewSyncer(client NotionService, dbs Databases, dryRun bool) *Syncer {
	return &Syncer{client: client, dbs: dbs, dryRun: dryRun}
}

// SyncLedger makes the Notion databases match snap: pages for records that no
// longer exist are archived, existing pages are updated and missing ones are
// created. Pages are matched by the Transaction ID and Account ID properties.
func (s *Syncer) SyncLedger(ctx context.Context, snap ledger.Snapshot) (Result, error) {
	log := logger.FromContext(ctx)
	var total Result

	if s.dbs.Accounts != "" {
		r, err := s.SyncAccounts(ctx, snap.Accounts, snap.Settings.Currency)
		if err != nil {
			return total, fmt.Errorf("SyncLedger: %w", err)
		}
		total.add(r)
	}
	if s.dbs.Transactions != "" {
		r, err := s.SyncTransactions(ctx, snap.Transactions, accountNames(snap.Accounts), snap.Settings.Currency)
		if err != nil {
			return total, fmt.Errorf("SyncLedger: %w", err)
		}
		total.add(r)
	}

	log.Info().
		Int("created", total.Created).
		Int("updated", total.Updated).
		Int("deleted", total.Deleted).
		Int("failed", total.Failed).
		Bool("dry_run", s.dryRun).
		Msg("Notion sync completed")
	return total, nil
}

// SyncTransactions mirrors txs into the transactions database.
func (s *Syncer) SyncTransactions(ctx context.Context, txs []domain.LedgerTransaction, names map[string]string, currency string) (Result, error) {
	records := make([]record, 0, len(txs))
	for _, tx := range txs {
		records = append(records, record{key: tx.ID, props: TransactionToNotionProperties(tx, names, currency)})
	}
	r, err := s.syncRecords(ctx, s.dbs.Transactions, "transaction_id", extractTransactionID, records)
	if err != nil {
		return r, fmt.Errorf("SyncTransactions: %w", err)
	}
	return r, nil
}

// SyncAccounts mirrors accounts into the accounts database.
func (s *Syncer) SyncAccounts(ctx context.Context, accounts []domain.Account, currency string) (Result, error) {
	records := make([]record, 0, len(accounts))
	for _, a := range accounts {
		records = append(records, record{key: a.ID, props: AccountToNotionProperties(a, currency)})
	}
	r, err := s.syncRecords(ctx, s.dbs.Accounts, "account_id", extractAccountID, records)
	if err != nil {
		return r, fmt.Errorf("SyncAccounts: %w", err)
	}
	return r, nil
}

type record struct {
	key   string
	props notionapi.Properties
}

func (s *Syncer) syncRecords(ctx context.Context, databaseID, keyField string, keyOf func(notionapi.Page) string, records []record) (Result, error) {
	log := logger.FromContext(ctx)
	var res Result

	pages, err := queryAllNotionPages(ctx, s.client, databaseID)
	if err != nil {
		return res, err
	}

	want := make(map[string]bool, len(records))
	for _, r := range records {
		want[r.key] = true
	}

	existing := make(map[string]string, len(pages))
	for _, page := range pages {
		key := keyOf(page)
		_, seen := existing[key]
		// Pages without a key, stale pages and duplicate pages are archived.
		if key == "" || !want[key] || seen {
			if !s.dryRun {
				if err := s.client.DeletePage(ctx, string(page.ID)); err != nil {
					log.Warn().Err(err).Str(keyField, key).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
					res.Failed++
					continue
				}
			}
			res.Deleted++
			continue
		}
		existing[key] = string(page.ID)
	}

	for _, r := range records {
		pageID, ok := existing[r.key]
		switch {
		case s.dryRun && ok:
			res.Updated++
		case s.dryRun:
			res.Created++
		case ok:
			if _, err := s.client.UpdatePage(ctx, pageID, r.props); err != nil {
				log.Warn().Err(err).Str(keyField, r.key).Str("page_id", pageID).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			res.Updated++
		default:
			if _, err := s.client.CreatePage(ctx, databaseID, r.props); err != nil {
				log.Warn().Err(err).Str(keyField, r.key).Msg("Failed to create Notion page")
				res.Failed++
				continue
			}
			res.Created++
		}
	}
	return res, nil
}

// queryAllNotionPages follows the cursor until every page is read.
func queryAllNotionPages(ctx context.Context, client NotionService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor
	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: PageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}
		resp, err := client.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}
		all = append(all, resp.Results...)
		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return all, nil
}

func accountNames(accounts []domain.Account) map[string]string {
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	return names
}

package notionsync

import (
	"context"

	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/logger"
)

// AccountDirectory supplies display names for account ids.
type AccountDirectory interface {
	Accounts() []domain.Account
	Settings() domain.Settings
}

// Exporter creates a Notion page for every newly committed transaction. It is
// registered as a ledger observer; failures are logged and never reach the
// committer, and a later full sync repairs anything missed.
type Exporter struct {
	client     NotionService
	databaseID string
	accounts   AccountDirectory
}

// NewExporter creates an Exporter writing to databaseID. accounts may be nil,
// in which case account ids are written instead of names.
func NewExporter(client NotionService, databaseID string, accounts AccountDirectory) *Exporter {
	return &Exporter{client: client, databaseID: databaseID, accounts: accounts}
}

// OnCommitted implements ledger.Observer.
func (e *Exporter) OnCommitted(ctx context.Context, txs []domain.LedgerTransaction) {
	log := logger.FromContext(ctx)

	var names map[string]string
	var currency string
	if e.accounts != nil {
		names = accountNames(e.accounts.Accounts())
		currency = e.accounts.Settings().Currency
	}

	exported := 0
	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("remaining", len(txs)-exported).Msg("Notion export interrupted")
			return
		}
		if _, err := e.client.CreatePage(ctx, e.databaseID, TransactionToNotionProperties(tx, names, currency)); err != nil {
			log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to export transaction to Notion")
			continue
		}
		exported++
	}
	log.Debug().Int("exported", exported).Int("committed", len(txs)).Msg("Exported committed transactions to Notion")
}

// Package backup exports and restores the whole ledger as one JSON document.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/ledger"
	"github.com/dvloznov/ledger-intake/internal/logger"
)

// FormatVersion is written into every document.
const FormatVersion = 1

// ErrRestoreFailed wraps every restore error; the ledger is unchanged when
// it is returned.
var ErrRestoreFailed = errors.New("restore failed")

// Document is the backup file layout.
type Document struct {
	Version      int                        `json:"version"`
	ExportedAt   time.Time                  `json:"exportedAt"`
	Accounts     []domain.Account           `json:"accounts"`
	Transactions []domain.LedgerTransaction `json:"transactions"`
	Categories   []domain.Category          `json:"categories"`
	Settings     domain.Settings            `json:"settings"`
}

// FromSnapshot wraps a ledger snapshot into a document.
func FromSnapshot(snap ledger.Snapshot, exportedAt time.Time) Document {
	doc := Document{
		Version:      FormatVersion,
		ExportedAt:   exportedAt.UTC(),
		Accounts:     snap.Accounts,
		Transactions: snap.Transactions,
		Categories:   snap.Categories,
		Settings:     snap.Settings,
	}
	if doc.Accounts == nil {
		doc.Accounts = []domain.Account{}
	}
	if doc.Transactions == nil {
		doc.Transactions = []domain.LedgerTransaction{}
	}
	if doc.Categories == nil {
		doc.Categories = []domain.Category{}
	}
	return doc
}

// Snapshot returns the ledger contents of the document.
func (d Document) Snapshot() ledger.Snapshot {
	return ledger.Snapshot{
		Accounts:     d.Accounts,
		Transactions: d.Transactions,
		Categories:   d.Categories,
		Settings:     d.Settings,
	}
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("Encode: %w", err)
	}
	return nil
}

// Decode reads and validates a document. A document that decodes but is not
// internally consistent is rejected.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("Decode: %w", err)
	}
	if doc.Version != FormatVersion {
		return Document{}, fmt.Errorf("Decode: unsupported version %d", doc.Version)
	}
	if err := ledger.ValidateSnapshot(doc.Snapshot()); err != nil {
		return Document{}, fmt.Errorf("Decode: %w", err)
	}
	return doc, nil
}

// Export writes the current ledger to w.
func Export(ctx context.Context, store *ledger.Store, w io.Writer, now time.Time) (Document, error) {
	doc := FromSnapshot(store.Snapshot(), now)
	if err := Encode(w, doc); err != nil {
		return Document{}, fmt.Errorf("Export: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().
		Int("accounts", len(doc.Accounts)).
		Int("transactions", len(doc.Transactions)).
		Msg("ledger exported")
	return doc, nil
}

// Restore replaces the ledger with the document read from r. On any error
// the ledger keeps its previous contents.
func Restore(ctx context.Context, store *ledger.Store, r io.Reader) (Document, error) {
	doc, err := Decode(r)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrRestoreFailed, err)
	}
	if err := store.Replace(ctx, doc.Snapshot()); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrRestoreFailed, err)
	}
	return doc, nil
}

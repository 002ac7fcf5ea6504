// Package sqlite stores the ledger in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/ledger"
	"github.com/dvloznov/ledger-intake/internal/logger"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		position INTEGER NOT NULL,
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		opening_balance TEXT NOT NULL,
		balance TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		position INTEGER NOT NULL,
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		description TEXT NOT NULL,
		amount TEXT NOT NULL,
		type TEXT NOT NULL,
		category TEXT NOT NULL,
		sub_category TEXT NOT NULL,
		account_id TEXT NOT NULL,
		transfer_account_id TEXT NOT NULL,
		unit_details TEXT NOT NULL,
		remarks TEXT NOT NULL,
		source TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id)`,
	`CREATE TABLE IF NOT EXISTS categories (
		position INTEGER NOT NULL,
		name TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS subcategories (
		category TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (category, position)
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		currency TEXT NOT NULL,
		default_category TEXT NOT NULL
	)`,
}

// Persister saves snapshots inside a single SQL transaction, so a failed
// Save leaves the previous ledger in place.
type Persister struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*Persister, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: opening %s: %w", path, err)
	}
	// One writer at a time keeps SQLite away from SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite.Open: creating schema: %w", err)
		}
	}
	log := logger.FromContext(ctx)
	log.Debug().Str("path", path).Msg("sqlite ledger opened")
	return &Persister{db: db}, nil
}

// Close closes the database.
func (p *Persister) Close() error {
	return p.db.Close()
}

func (p *Persister) Load(ctx context.Context) (ledger.Snapshot, error) {
	var snap ledger.Snapshot
	var err error

	if snap.Accounts, err = p.loadAccounts(ctx); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("Persister.Load: %w", err)
	}
	if snap.Transactions, err = p.loadTransactions(ctx); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("Persister.Load: %w", err)
	}
	if snap.Categories, err = p.loadCategories(ctx); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("Persister.Load: %w", err)
	}

	row := p.db.QueryRowContext(ctx, `SELECT currency, default_category FROM settings WHERE id = 1`)
	switch err := row.Scan(&snap.Settings.Currency, &snap.Settings.DefaultCategory); {
	case err == sql.ErrNoRows:
	case err != nil:
		return ledger.Snapshot{}, fmt.Errorf("Persister.Load: settings: %w", err)
	}
	return snap, nil
}

func (p *Persister) loadAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, type, opening_balance, balance
		FROM accounts
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		var a domain.Account
		var typ, opening, balance string
		if err := rows.Scan(&a.ID, &a.Name, &typ, &opening, &balance); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Type = domain.AccountType(typ)
		if a.OpeningBalance, err = decimal.NewFromString(opening); err != nil {
			return nil, fmt.Errorf("account %s opening balance: %w", a.ID, err)
		}
		if a.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("account %s balance: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *Persister) loadTransactions(ctx context.Context) ([]domain.LedgerTransaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, date, description, amount, type, category, sub_category,
		       account_id, transfer_account_id, unit_details, remarks, source, created_at
		FROM transactions
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.LedgerTransaction
	for rows.Next() {
		var tx domain.LedgerTransaction
		var date, amount, typ, source, created string
		if err := rows.Scan(&tx.ID, &date, &tx.Description, &amount, &typ, &tx.Category, &tx.SubCategory,
			&tx.AccountID, &tx.TransferAccountID, &tx.UnitDetails, &tx.Remarks, &source, &created); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if tx.Date, err = civil.ParseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %s date: %w", tx.ID, err)
		}
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %s amount: %w", tx.ID, err)
		}
		if tx.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("transaction %s created_at: %w", tx.ID, err)
		}
		tx.Type = domain.TransactionType(typ)
		tx.Source = domain.Source(source)
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (p *Persister) loadCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT c.name, s.name
		FROM categories c
		LEFT JOIN subcategories s ON s.category = c.name
		ORDER BY c.position ASC, s.position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var name string
		var sub sql.NullString
		if err := rows.Scan(&name, &sub); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].Key != name {
			out = append(out, domain.Category{Key: name})
		}
		if sub.Valid {
			last := &out[len(out)-1]
			last.SubCategories = append(last.SubCategories, sub.String)
		}
	}
	return out, rows.Err()
}

func (p *Persister) Save(ctx context.Context, snap ledger.Snapshot) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Persister.Save: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"accounts", "transactions", "categories", "subcategories", "settings"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("Persister.Save: clearing %s: %w", table, err)
		}
	}

	for i, a := range snap.Accounts {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO accounts (position, id, name, type, opening_balance, balance) VALUES (?, ?, ?, ?, ?, ?)`,
			i, a.ID, a.Name, string(a.Type), a.OpeningBalance.String(), a.Balance.String()); err != nil {
			return fmt.Errorf("Persister.Save: account %s: %w", a.ID, err)
		}
	}

	for i, t := range snap.Transactions {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO transactions (position, id, date, description, amount, type, category, sub_category,
				account_id, transfer_account_id, unit_details, remarks, source, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, t.ID, t.Date.String(), t.Description, t.Amount.String(), string(t.Type), t.Category, t.SubCategory,
			t.AccountID, t.TransferAccountID, t.UnitDetails, t.Remarks, string(t.Source),
			t.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("Persister.Save: transaction %s: %w", t.ID, err)
		}
	}

	for i, c := range snap.Categories {
		if _, err = tx.ExecContext(ctx, `INSERT INTO categories (position, name) VALUES (?, ?)`, i, c.Key); err != nil {
			return fmt.Errorf("Persister.Save: category %s: %w", c.Key, err)
		}
		for j, sub := range c.SubCategories {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO subcategories (category, position, name) VALUES (?, ?, ?)`, c.Key, j, sub); err != nil {
				return fmt.Errorf("Persister.Save: subcategory %s/%s: %w", c.Key, sub, err)
			}
		}
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO settings (id, currency, default_category) VALUES (1, ?, ?)`,
		snap.Settings.Currency, snap.Settings.DefaultCategory); err != nil {
		return fmt.Errorf("Persister.Save: settings: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("Persister.Save: commit: %w", err)
	}
	return nil
}

var _ ledger.Persister = (*Persister)(nil)

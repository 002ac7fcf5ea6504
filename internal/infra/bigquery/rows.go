package bigquery

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/ledger"
)

// Amounts are NUMERIC in the tables and travel as decimal strings in both
// directions: queries CAST them to STRING and load jobs accept strings.

type AccountRow struct {
	Position       int64  `bigquery:"position" json:"position"`
	AccountID      string `bigquery:"account_id" json:"account_id"`
	Name           string `bigquery:"name" json:"name"`
	AccountType    string `bigquery:"account_type" json:"account_type"`
	OpeningBalance string `bigquery:"opening_balance" json:"opening_balance"`
	Balance        string `bigquery:"balance" json:"balance"`
}

type TransactionRow struct {
	Position          int64      `bigquery:"position" json:"position"`
	TransactionID     string     `bigquery:"transaction_id" json:"transaction_id"`
	TransactionDate   civil.Date `bigquery:"transaction_date" json:"transaction_date"`
	Description       string     `bigquery:"description" json:"description"`
	Amount            string     `bigquery:"amount" json:"amount"`
	Type              string     `bigquery:"type" json:"type"`
	CategoryName      string     `bigquery:"category_name" json:"category_name"`
	SubcategoryName   string     `bigquery:"subcategory_name" json:"subcategory_name"`
	AccountID         string     `bigquery:"account_id" json:"account_id"`
	TransferAccountID string     `bigquery:"transfer_account_id" json:"transfer_account_id"`
	UnitDetails       string     `bigquery:"unit_details" json:"unit_details"`
	Remarks           string     `bigquery:"remarks" json:"remarks"`
	Source            string     `bigquery:"source" json:"source"`
	CreatedTS         time.Time  `bigquery:"created_ts" json:"created_ts"`
}

type CategoryRow struct {
	Position      int64    `bigquery:"position" json:"position"`
	Name          string   `bigquery:"name" json:"name"`
	Subcategories []string `bigquery:"subcategories" json:"subcategories"`
}

type SettingsRow struct {
	Currency        string `bigquery:"currency" json:"currency"`
	DefaultCategory string `bigquery:"default_category" json:"default_category"`
}

// ledgerRows is a snapshot in table form.
type ledgerRows struct {
	accounts     []AccountRow
	transactions []TransactionRow
	categories   []CategoryRow
	settings     []SettingsRow
}

func toRows(snap ledger.Snapshot) ledgerRows {
	var rows ledgerRows
	for i, a := range snap.Accounts {
		rows.accounts = append(rows.accounts, AccountRow{
			Position:       int64(i),
			AccountID:      a.ID,
			Name:           a.Name,
			AccountType:    string(a.Type),
			OpeningBalance: a.OpeningBalance.String(),
			Balance:        a.Balance.String(),
		})
	}
	for i, tx := range snap.Transactions {
		rows.transactions = append(rows.transactions, TransactionRow{
			Position:          int64(i),
			TransactionID:     tx.ID,
			TransactionDate:   tx.Date,
			Description:       tx.Description,
			Amount:            tx.Amount.String(),
			Type:              string(tx.Type),
			CategoryName:      tx.Category,
			SubcategoryName:   tx.SubCategory,
			AccountID:         tx.AccountID,
			TransferAccountID: tx.TransferAccountID,
			UnitDetails:       tx.UnitDetails,
			Remarks:           tx.Remarks,
			Source:            string(tx.Source),
			CreatedTS:         tx.CreatedAt.UTC(),
		})
	}
	for i, c := range snap.Categories {
		subs := c.SubCategories
		if subs == nil {
			subs = []string{}
		}
		rows.categories = append(rows.categories, CategoryRow{Position: int64(i), Name: c.Key, Subcategories: subs})
	}
	rows.settings = []SettingsRow{{Currency: snap.Settings.Currency, DefaultCategory: snap.Settings.DefaultCategory}}
	return rows
}

func fromRows(rows ledgerRows) (ledger.Snapshot, error) {
	var snap ledger.Snapshot
	for _, r := range rows.accounts {
		opening, err := decimal.NewFromString(r.OpeningBalance)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("account %s: opening_balance %q: %w", r.AccountID, r.OpeningBalance, err)
		}
		balance, err := decimal.NewFromString(r.Balance)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("account %s: balance %q: %w", r.AccountID, r.Balance, err)
		}
		snap.Accounts = append(snap.Accounts, domain.Account{
			ID:             r.AccountID,
			Name:           r.Name,
			Type:           domain.AccountType(r.AccountType),
			OpeningBalance: opening,
			Balance:        balance,
		})
	}
	for _, r := range rows.transactions {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("transaction %s: amount %q: %w", r.TransactionID, r.Amount, err)
		}
		snap.Transactions = append(snap.Transactions, domain.LedgerTransaction{
			ID:                r.TransactionID,
			Date:              r.TransactionDate,
			Description:       r.Description,
			Amount:            amount,
			Type:              domain.TransactionType(r.Type),
			Category:          r.CategoryName,
			SubCategory:       r.SubcategoryName,
			AccountID:         r.AccountID,
			TransferAccountID: r.TransferAccountID,
			UnitDetails:       r.UnitDetails,
			Remarks:           r.Remarks,
			Source:            domain.Source(r.Source),
			CreatedAt:         r.CreatedTS,
		})
	}
	for _, r := range rows.categories {
		snap.Categories = append(snap.Categories, domain.Category{Key: r.Name, SubCategories: r.Subcategories})
	}
	if len(rows.settings) > 0 {
		snap.Settings = domain.Settings{Currency: rows.settings[0].Currency, DefaultCategory: rows.settings[0].DefaultCategory}
	}
	return snap, nil
}

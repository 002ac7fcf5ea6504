package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Uncategorized is used when no category or sub-category was supplied.
const Uncategorized = "Uncategorized"

// OrUncategorized trims s and replaces a blank value with Uncategorized.
func OrUncategorized(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Uncategorized
	}
	return s
}

// TransferCategory marks transactions created by an internal transfer.
const TransferCategory = "Transfer"

// TransactionType is the direction tag of a transaction. Amounts are always
// positive; the type decides the sign of the balance delta.
type TransactionType string

const (
	Expense    TransactionType = "EXPENSE"
	Income     TransactionType = "INCOME"
	Investment TransactionType = "INVESTMENT"
)

// ParseTransactionType accepts the three tags in any letter case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToUpper(strings.TrimSpace(s))); t {
	case Expense, Income, Investment:
		return t, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
}

// Valid reports whether t is one of the known tags.
func (t TransactionType) Valid() bool {
	return t == Expense || t == Income || t == Investment
}

// Delta returns the signed balance change for amount under this type.
// INCOME adds, EXPENSE and INVESTMENT subtract.
func (t TransactionType) Delta(amount decimal.Decimal) decimal.Decimal {
	if t == Income {
		return amount
	}
	return amount.Neg()
}

// Source records how a transaction entered the ledger.
type Source string

const (
	SourceAI       Source = "ai"
	SourceCSV      Source = "csv"
	SourceManual   Source = "manual"
	SourceTransfer Source = "transfer"
)

// LedgerTransaction is a committed transaction. Its ID comes from the ledger
// id space and is never reused.
type LedgerTransaction struct {
	ID                string          `json:"id"`
	Date              civil.Date      `json:"date"`
	Description       string          `json:"description"`
	Amount            decimal.Decimal `json:"amount"`
	Type              TransactionType `json:"type"`
	Category          string          `json:"category"`
	SubCategory       string          `json:"subCategory"`
	AccountID         string          `json:"accountId"`
	TransferAccountID string          `json:"transferAccountId,omitempty"`
	UnitDetails       string          `json:"unitDetails,omitempty"`
	Remarks           string          `json:"remarks,omitempty"`
	Source            Source          `json:"source,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// IsTransfer reports whether the transaction was produced by a transfer.
func (t LedgerTransaction) IsTransfer() bool {
	return t.TransferAccountID != ""
}

// Delta is the balance change this transaction applied to its account.
func (t LedgerTransaction) Delta() decimal.Decimal {
	return t.Type.Delta(t.Amount)
}

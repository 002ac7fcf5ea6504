package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// StagingID identifies a candidate inside a staging batch. It lives in a
// different id space from ledger transaction ids and is never persisted.
type StagingID string

// NewStagingID formats the n-th staging id of a batch.
func NewStagingID(n int) StagingID {
	return StagingID(fmt.Sprintf("stg-%04d", n))
}

// CandidateTransaction is a normalized, not yet committed transaction.
type CandidateTransaction struct {
	StagingID   StagingID       `json:"stagingId,omitempty"`
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	SubCategory string          `json:"subCategory"`
	UnitDetails string          `json:"unitDetails,omitempty"`
	Remarks     string          `json:"remarks,omitempty"`
	Source      Source          `json:"source"`

	// AccountHint is the free-text account name from the input.
	AccountHint string `json:"accountHint"`
	// AccountID is filled in by the resolver.
	AccountID      string `json:"accountId,omitempty"`
	AccountMatched bool   `json:"accountMatched"`

	IsDuplicate bool     `json:"isDuplicate"`
	Warnings    []string `json:"warnings,omitempty"`
}

// AddWarning appends a human readable warning.
func (c *CandidateTransaction) AddWarning(format string, args ...interface{}) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

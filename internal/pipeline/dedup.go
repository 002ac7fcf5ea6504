package pipeline

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-intake/internal/domain"
)

// DuplicateDetector flags candidates that look like an existing ledger entry.
// It only marks candidates; it never drops or blocks them.
type DuplicateDetector struct {
	// Tolerance is the allowed relative difference between two amounts.
	Tolerance decimal.Decimal
}

// NewDuplicateDetector creates a detector with the given relative tolerance.
func NewDuplicateDetector(tolerance decimal.Decimal) *DuplicateDetector {
	return &DuplicateDetector{Tolerance: tolerance}
}

// DefaultDuplicateDetector uses DefaultDuplicateTolerance.
func DefaultDuplicateDetector() *DuplicateDetector {
	return NewDuplicateDetector(decimal.RequireFromString(DefaultDuplicateTolerance))
}

// FindDuplicate returns the first existing transaction that c duplicates.
func (d *DuplicateDetector) FindDuplicate(c domain.CandidateTransaction, existing []domain.LedgerTransaction) (domain.LedgerTransaction, bool) {
	desc := normalizeDescription(c.Description)
	for _, tx := range existing {
		if tx.AccountID != c.AccountID || tx.Date != c.Date {
			continue
		}
		if !d.amountsMatch(c.Amount, tx.Amount) {
			continue
		}
		other := normalizeDescription(tx.Description)
		if strings.Contains(desc, other) || strings.Contains(other, desc) {
			return tx, true
		}
	}
	return domain.LedgerTransaction{}, false
}

// Flag marks c when it duplicates an existing transaction. It is meant to run
// once, when the candidate is staged.
func (d *DuplicateDetector) Flag(c *domain.CandidateTransaction, existing []domain.LedgerTransaction) {
	tx, ok := d.FindDuplicate(*c, existing)
	if !ok {
		return
	}
	c.IsDuplicate = true
	c.AddWarning("possible duplicate of %q on %s (%s)", tx.Description, tx.Date, tx.Amount.String())
}

// amountsMatch compares a and b relative to the larger of the two.
func (d *DuplicateDetector) amountsMatch(a, b decimal.Decimal) bool {
	diff := a.Sub(b).Abs()
	limit := decimal.Max(a.Abs(), b.Abs()).Mul(d.Tolerance)
	return diff.LessThanOrEqual(limit)
}

// normalizeDescription folds case and collapses runs of whitespace.
func normalizeDescription(s string) string {
	return strings.Join(strings.Fields(foldKey(s)), " ")
}


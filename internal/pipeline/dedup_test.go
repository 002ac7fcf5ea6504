package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dvloznov/ledger-intake/internal/domain"
)

func TestDuplicateDetector_FindDuplicate(t *testing.T) {
	existing := []domain.LedgerTransaction{
		{ID: "tx-1", AccountID: "acc-hdfc", Date: date(2024, 1, 10), Description: "Coffee at Starbucks", Amount: dec(t, "5.00"), Type: domain.Expense},
	}
	base := domain.CandidateTransaction{
		AccountID:   "acc-hdfc",
		Date:        date(2024, 1, 10),
		Description: "coffee",
		Amount:      dec(t, "5.00"),
		Type:        domain.Expense,
	}
	d := DefaultDuplicateDetector()

	tests := []struct {
		name   string
		modify func(c *domain.CandidateTransaction)
		want   bool
	}{
		{"candidate description contained in existing", func(c *domain.CandidateTransaction) {}, true},
		{"existing description contained in candidate", func(c *domain.CandidateTransaction) {
			c.Description = "Morning   COFFEE at starbucks downtown"
		}, true},
		{"amount within tolerance", func(c *domain.CandidateTransaction) { c.Amount = dec(t, "5.04") }, true},
		{"amount outside tolerance", func(c *domain.CandidateTransaction) { c.Amount = dec(t, "5.10") }, false},
		{"different date", func(c *domain.CandidateTransaction) { c.Date = date(2024, 1, 11) }, false},
		{"different account", func(c *domain.CandidateTransaction) { c.AccountID = "acc-cash" }, false},
		{"unrelated description", func(c *domain.CandidateTransaction) { c.Description = "Tea" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.modify(&c)
			tx, ok := d.FindDuplicate(c, existing)
			assert.Equal(t, tt.want, ok)
			if ok {
				assert.Equal(t, "tx-1", tx.ID)
			}
		})
	}
}

func TestDuplicateDetector_FlagOnlyMarks(t *testing.T) {
	existing := []domain.LedgerTransaction{
		{ID: "tx-1", AccountID: "acc-cash", Date: date(2024, 2, 1), Description: "Rent", Amount: dec(t, "900"), Type: domain.Expense},
	}
	c := domain.CandidateTransaction{AccountID: "acc-cash", Date: date(2024, 2, 1), Description: "rent", Amount: dec(t, "900")}

	d := NewDuplicateDetector(dec(t, "0"))
	d.Flag(&c, existing)

	assert.True(t, c.IsDuplicate)
	assert.Len(t, c.Warnings, 1)
	assert.Equal(t, "rent", c.Description)
}

func TestDuplicateDetector_EmptyLedger(t *testing.T) {
	c := domain.CandidateTransaction{AccountID: "acc-cash", Date: date(2024, 2, 1), Description: "rent", Amount: dec(t, "900")}
	DefaultDuplicateDetector().Flag(&c, nil)
	assert.False(t, c.IsDuplicate)
	assert.Empty(t, c.Warnings)
}

func TestDuplicateDetector_GroceryAtHDFC(t *testing.T) {
	existing := []domain.LedgerTransaction{
		{ID: "tx-hdfc", AccountID: "acc-hdfc", Date: date(2024, 1, 5), Description: "Grocery Shopping", Amount: dec(t, "1200"), Type: domain.Expense},
	}
	d := DefaultDuplicateDetector()

	same := domain.CandidateTransaction{
		AccountID:   "acc-hdfc",
		AccountHint: "HDFC Savings",
		Date:        date(2024, 1, 5),
		Description: "Grocery Shopping at Store",
		Amount:      dec(t, "1200"),
		Type:        domain.Expense,
	}
	d.Flag(&same, existing)
	assert.True(t, same.IsDuplicate)
	assert.Len(t, same.Warnings, 1)

	bigger := same
	bigger.IsDuplicate = false
	bigger.Warnings = nil
	bigger.Amount = dec(t, "5000")
	d.Flag(&bigger, existing)
	assert.False(t, bigger.IsDuplicate)
	assert.Empty(t, bigger.Warnings)
}

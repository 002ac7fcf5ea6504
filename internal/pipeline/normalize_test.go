package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledger-intake/internal/domain"
)

func TestNormalize_Defaults(t *testing.T) {
	today := date(2024, 3, 15)

	c, err := Normalize(RawCandidate{
		Description: "  coffee  ",
		Amount:      "4.50",
		Type:        "expense",
		AccountName: "cash",
		Source:      domain.SourceAI,
	}, today)
	require.NoError(t, err)

	assert.Equal(t, today, c.Date)
	assert.Equal(t, "coffee", c.Description)
	assert.True(t, c.Amount.Equal(dec(t, "4.5")))
	assert.Equal(t, domain.Expense, c.Type)
	assert.Equal(t, domain.Uncategorized, c.Category)
	assert.Equal(t, domain.Uncategorized, c.SubCategory)
	assert.Equal(t, "cash", c.AccountHint)
	assert.Equal(t, domain.SourceAI, c.Source)
}

func TestNormalize_KeepsExplicitFields(t *testing.T) {
	c, err := Normalize(RawCandidate{
		Date:        "2024-01-02",
		Description: "Salary",
		Amount:      "1000.123456",
		Type:        "Income",
		Category:    "Salary",
		SubCategory: "Monthly",
	}, date(2024, 3, 15))
	require.NoError(t, err)

	assert.Equal(t, date(2024, 1, 2), c.Date)
	assert.Equal(t, "1000.123456", c.Amount.String(), "amount must not be rounded")
	assert.Equal(t, domain.Income, c.Type)
	assert.Equal(t, "Salary", c.Category)
	assert.Equal(t, "Monthly", c.SubCategory)
	assert.Equal(t, domain.SourceManual, c.Source)
}

func TestNormalize_DateLayouts(t *testing.T) {
	for _, in := range []string{"2024-05-06", "2024/05/06", "2024-05-06T10:00:00Z"} {
		c, err := Normalize(RawCandidate{Date: in, Description: "x", Amount: "1", Type: "EXPENSE"}, date(2024, 1, 1))
		require.NoError(t, err, in)
		assert.Equal(t, date(2024, 5, 6), c.Date, in)
	}
}

func TestNormalize_UnparsableDateDefaultsToToday(t *testing.T) {
	today := date(2024, 3, 15)

	for _, in := range []string{"yesterday", "25/10/2023"} {
		c, err := Normalize(RawCandidate{Date: in, Description: "x", Amount: "1", Type: "EXPENSE"}, today)
		require.NoError(t, err, in)

		assert.Equal(t, today, c.Date, in)
		require.Len(t, c.Warnings, 1, in)
		assert.Equal(t, `unrecognized date "`+in+`", used 2024-03-15`, c.Warnings[0])
	}
}

func TestNormalize_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		raw       RawCandidate
		wantField string
	}{
		{"missing description", RawCandidate{Amount: "1", Type: "EXPENSE"}, fieldDescription},
		{"blank description", RawCandidate{Description: "   ", Amount: "1", Type: "EXPENSE"}, fieldDescription},
		{"missing amount", RawCandidate{Description: "x", Type: "EXPENSE"}, fieldAmount},
		{"zero amount", RawCandidate{Description: "x", Amount: "0", Type: "EXPENSE"}, fieldAmount},
		{"negative amount", RawCandidate{Description: "x", Amount: "-5", Type: "EXPENSE"}, fieldAmount},
		{"non numeric amount", RawCandidate{Description: "x", Amount: "ten", Type: "EXPENSE"}, fieldAmount},
		{"unknown type", RawCandidate{Description: "x", Amount: "1", Type: "TRANSFER"}, fieldType},
		{"missing type", RawCandidate{Description: "x", Amount: "1"}, fieldType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw, date(2024, 1, 1))
			require.Error(t, err)

			var rej *RejectionError
			require.True(t, errors.As(err, &rej))
			assert.Equal(t, tt.wantField, rej.Field)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	today := date(2024, 3, 15)
	inputs := []RawCandidate{
		{Description: "Lunch", Amount: "12.50", Type: "expense", AccountName: "HDFC"},
		{Date: "2024/02/29", Description: " Dividend ", Amount: "3", Type: "INCOME", Category: "Investments", Remarks: "q1"},
		{Description: "Buy ETF", Amount: "250.0001", Type: "investment", UnitDetails: "2 @ 125.00005"},
	}

	for _, raw := range inputs {
		first, err := Normalize(raw, today)
		require.NoError(t, err)

		second, err := Normalize(ToRaw(first), date(2030, 1, 1))
		require.NoError(t, err)

		assert.True(t, first.Amount.Equal(second.Amount))
		first.Amount, second.Amount = second.Amount, first.Amount
		assert.Equal(t, first, second)
	}
}

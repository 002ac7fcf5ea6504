package staging

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledger-intake/internal/domain"
)

func candidate(desc, amount string) domain.CandidateTransaction {
	return domain.CandidateTransaction{
		Date:        civil.Date{Year: 2024, Month: 3, Day: 1},
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Type:        domain.Expense,
		Category:    domain.Uncategorized,
		SubCategory: domain.Uncategorized,
		AccountID:   "acc-cash",
	}
}

func TestBatch_AddAssignsDistinctIDs(t *testing.T) {
	b := New()
	ids := b.Add(candidate("a", "1"), candidate("b", "2"))
	ids = append(ids, b.Add(candidate("c", "3"))...)

	assert.Equal(t, []domain.StagingID{"stg-0001", "stg-0002", "stg-0003"}, ids)

	list := b.List()
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].Description)
	assert.Equal(t, "c", list[2].Description)
}

func TestBatch_IDsNotReusedAfterClear(t *testing.T) {
	b := New()
	b.Add(candidate("a", "1"))
	b.Clear()
	ids := b.Add(candidate("b", "1"))
	assert.Equal(t, domain.StagingID("stg-0002"), ids[0])
}

func TestBatch_Edit(t *testing.T) {
	b := New()
	id := b.Add(candidate("lunch", "10"))[0]

	tests := []struct {
		field Field
		value string
		check func(t *testing.T, c domain.CandidateTransaction)
	}{
		{FieldDescription, " Team lunch ", func(t *testing.T, c domain.CandidateTransaction) { assert.Equal(t, "Team lunch", c.Description) }},
		{FieldAmount, "12.345", func(t *testing.T, c domain.CandidateTransaction) { assert.Equal(t, "12.345", c.Amount.String()) }},
		{FieldDate, "2024-02-29", func(t *testing.T, c domain.CandidateTransaction) {
			assert.Equal(t, civil.Date{Year: 2024, Month: 2, Day: 29}, c.Date)
		}},
		{FieldType, "income", func(t *testing.T, c domain.CandidateTransaction) { assert.Equal(t, domain.Income, c.Type) }},
		{FieldCategory, "Food", func(t *testing.T, c domain.CandidateTransaction) { assert.Equal(t, "Food", c.Category) }},
		{FieldSubCategory, "", func(t *testing.T, c domain.CandidateTransaction) { assert.Equal(t, domain.Uncategorized, c.SubCategory) }},
		{FieldAccount, "acc-hdfc", func(t *testing.T, c domain.CandidateTransaction) {
			assert.Equal(t, "acc-hdfc", c.AccountID)
			assert.True(t, c.AccountMatched)
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			got, err := b.Edit(id, tt.field, tt.value)
			require.NoError(t, err)
			tt.check(t, got)

			stored, err := b.Get(id)
			require.NoError(t, err)
			assert.Equal(t, got, stored)
		})
	}
}

func TestBatch_EditRejectsInvalidValues(t *testing.T) {
	b := New()
	id := b.Add(candidate("lunch", "10"))[0]
	before := b.List()

	for _, tc := range []struct {
		field Field
		value string
	}{
		{FieldAmount, "0"},
		{FieldAmount, "abc"},
		{FieldType, "refund"},
		{FieldDate, "31/31/2024"},
		{FieldDescription, "  "},
		{FieldAccount, ""},
		{Field("color"), "red"},
	} {
		_, err := b.Edit(id, tc.field, tc.value)
		assert.ErrorIs(t, err, ErrInvalidValue, "%s=%q", tc.field, tc.value)
	}
	assert.Equal(t, before, b.List())
}

func TestBatch_EditDoesNotRecomputeDuplicateFlag(t *testing.T) {
	b := New()
	c := candidate("rent", "900")
	c.IsDuplicate = true
	id := b.Add(c)[0]

	got, err := b.Edit(id, FieldAmount, "123")
	require.NoError(t, err)
	assert.True(t, got.IsDuplicate)

	c2 := candidate("coffee", "3")
	id2 := b.Add(c2)[0]
	got, err = b.Edit(id2, FieldDescription, "rent")
	require.NoError(t, err)
	assert.False(t, got.IsDuplicate)
}

func TestBatch_RemoveAndNotFound(t *testing.T) {
	b := New()
	ids := b.Add(candidate("a", "1"), candidate("b", "2"))

	require.NoError(t, b.Remove(ids[0]))
	assert.Equal(t, 1, b.Len())
	assert.True(t, errors.Is(b.Remove(ids[0]), ErrNotFound))

	_, err := b.Edit(ids[0], FieldAmount, "5")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = b.Get("stg-9999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBatch_Drain(t *testing.T) {
	b := New()
	b.Add(candidate("a", "1"), candidate("b", "2"))

	err := b.Drain(func(cands []domain.CandidateTransaction) error {
		assert.Len(t, cands, 2)
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 2, b.Len(), "failed drain keeps the batch")

	require.NoError(t, b.Drain(func([]domain.CandidateTransaction) error { return nil }))
	assert.Equal(t, 0, b.Len())
}

func TestBatch_ListIsACopy(t *testing.T) {
	b := New()
	b.Add(candidate("a", "1"))
	list := b.List()
	list[0].Description = "mutated"
	assert.Equal(t, "a", b.List()[0].Description)
}

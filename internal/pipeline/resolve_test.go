package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledger-intake/internal/domain"
)

func TestResolveAccount(t *testing.T) {
	accounts := testAccounts()

	tests := []struct {
		name        string
		hint        string
		wantID      string
		wantMatched bool
	}{
		{"hint contained in name", "hdfc", "acc-hdfc", true},
		{"name contained in hint", "paid with my amex credit card yesterday", "acc-amex", true},
		{"case insensitive", "CASH WALLET", "acc-cash", true},
		{"first match wins", "a", "acc-cash", true},
		{"no match falls back to first", "Chase", "acc-cash", false},
		{"empty hint falls back", "", "acc-cash", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct, matched, err := ResolveAccount(tt.hint, accounts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, acct.ID)
			assert.Equal(t, tt.wantMatched, matched)
		})
	}
}

func TestResolveAccount_NoAccounts(t *testing.T) {
	_, _, err := ResolveAccount("cash", nil)
	assert.ErrorIs(t, err, ErrNoAccounts)
}

func TestApplyResolution_WarnsOnFallback(t *testing.T) {
	c := domain.CandidateTransaction{AccountHint: "Revolut"}
	require.NoError(t, ApplyResolution(&c, testAccounts()))

	assert.Equal(t, "acc-cash", c.AccountID)
	assert.False(t, c.AccountMatched)
	require.Len(t, c.Warnings, 1)
	assert.Contains(t, c.Warnings[0], "Revolut")
}

func TestResolveAccount_NeverCreatesAccounts(t *testing.T) {
	accounts := testAccounts()
	before := append([]domain.Account(nil), accounts...)

	_, _, err := ResolveAccount("Brand New Bank", accounts)
	require.NoError(t, err)
	assert.Equal(t, before, accounts)
}

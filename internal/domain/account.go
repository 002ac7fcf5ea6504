package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AccountType tags what kind of account a ledger account is.
type AccountType string

const (
	AccountSavings    AccountType = "savings"
	AccountCredit     AccountType = "credit"
	AccountWallet     AccountType = "wallet"
	AccountInvestment AccountType = "investment"
	AccountOther      AccountType = "other"
)

// ParseAccountType maps a free-form tag onto a known AccountType.
// Empty input yields AccountOther.
func ParseAccountType(s string) (AccountType, error) {
	switch t := AccountType(strings.ToLower(strings.TrimSpace(s))); t {
	case AccountSavings, AccountCredit, AccountWallet, AccountInvestment, AccountOther:
		return t, nil
	case "":
		return AccountOther, nil
	default:
		return "", fmt.Errorf("unknown account type %q", s)
	}
}

// Account is a ledger account with its running balance.
// Balance always equals OpeningBalance plus the deltas of every transaction
// applied to it; only the ledger store mutates it.
type Account struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Type           AccountType     `json:"type"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	Balance        decimal.Decimal `json:"balance"`
}

// Category is a top-level spending category and its sub-categories.
type Category struct {
	Key           string   `json:"key"`
	SubCategories []string `json:"subCategories,omitempty"`
}

// Settings holds user-level ledger preferences.
type Settings struct {
	Currency        string `json:"currency"`
	DefaultCategory string `json:"defaultCategory"`
}

// DefaultSettings returns the settings used for a fresh ledger.
func DefaultSettings() Settings {
	return Settings{Currency: "USD", DefaultCategory: Uncategorized}
}

package pipeline

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"

	"github.com/dvloznov/ledger-intake/internal/domain"
)

// ErrNoAccounts is returned when there is no account to fall back to.
var ErrNoAccounts = errors.New("no accounts in directory")

// foldKey is the comparison form of a name: case folded and trimmed.
func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// ResolveAccount maps a free-text account hint to an account.
// The first account (in directory order) whose name contains the hint, or is
// contained by it, wins, ignoring case. With no match the first account is
// returned and matched is false. Accounts are never created.
func ResolveAccount(hint string, accounts []domain.Account) (acct domain.Account, matched bool, err error) {
	if len(accounts) == 0 {
		return domain.Account{}, false, ErrNoAccounts
	}

	h := foldKey(hint)
	if h != "" {
		for _, a := range accounts {
			name := foldKey(a.Name)
			if name == "" {
				continue
			}
			if strings.Contains(name, h) || strings.Contains(h, name) {
				return a, true, nil
			}
		}
	}
	return accounts[0], false, nil
}

// ApplyResolution sets the account of c from its hint and records a warning
// when the default account had to be used.
func ApplyResolution(c *domain.CandidateTransaction, accounts []domain.Account) error {
	acct, matched, err := ResolveAccount(c.AccountHint, accounts)
	if err != nil {
		return err
	}
	c.AccountID = acct.ID
	c.AccountMatched = matched
	if !matched {
		if c.AccountHint == "" {
			c.AddWarning("no account given, defaulted to %q", acct.Name)
		} else {
			c.AddWarning("account %q not found, defaulted to %q", c.AccountHint, acct.Name)
		}
	}
	return nil
}

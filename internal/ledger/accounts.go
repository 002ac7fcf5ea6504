package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/logger"
)

// CreateAccount adds an account with the given opening balance. Names are
// unique regardless of letter case.
func (s *Store) CreateAccount(ctx context.Context, name string, typ domain.AccountType, opening decimal.Decimal) (domain.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Account{}, fmt.Errorf("CreateAccount: name is required")
	}
	if typ == "" {
		typ = domain.AccountOther
	}

	var acct domain.Account
	err := s.mutate(ctx, func(next *state) error {
		if next.accountByName(name) >= 0 {
			return fmt.Errorf("%q: %w", name, ErrAccountExists)
		}
		acct = domain.Account{
			ID:             s.newID(),
			Name:           name,
			Type:           typ,
			OpeningBalance: opening,
			Balance:        opening,
		}
		next.accounts = append(next.accounts, acct)
		return nil
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("CreateAccount: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("account_id", acct.ID).Str("name", acct.Name).Msg("account created")
	return acct, nil
}

// RenameAccount changes the display name of an account.
func (s *Store) RenameAccount(ctx context.Context, id, name string) (domain.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Account{}, fmt.Errorf("RenameAccount: name is required")
	}

	var acct domain.Account
	err := s.mutate(ctx, func(next *state) error {
		i := next.accountIndex(id)
		if i < 0 {
			return fmt.Errorf("account %s: %w", id, ErrAccountNotFound)
		}
		if j := next.accountByName(name); j >= 0 && j != i {
			return fmt.Errorf("%q: %w", name, ErrAccountExists)
		}
		next.accounts[i].Name = name
		acct = next.accounts[i]
		return nil
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("RenameAccount: %w", err)
	}
	return acct, nil
}

// DeleteAccount removes an account that no transaction refers to.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(next *state) error {
		i := next.accountIndex(id)
		if i < 0 {
			return fmt.Errorf("account %s: %w", id, ErrAccountNotFound)
		}
		for _, tx := range next.transactions {
			if tx.AccountID == id || tx.TransferAccountID == id {
				return fmt.Errorf("account %s: %w", id, ErrAccountInUse)
			}
		}
		next.accounts = append(next.accounts[:i], next.accounts[i+1:]...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	return nil
}

// SetCategories replaces the category taxonomy.
func (s *Store) SetCategories(ctx context.Context, cats []domain.Category) error {
	err := s.mutate(ctx, func(next *state) error {
		seen := make(map[string]bool, len(cats))
		for _, c := range cats {
			key := strings.ToLower(strings.TrimSpace(c.Key))
			if key == "" {
				return fmt.Errorf("category with empty key")
			}
			if seen[key] {
				return fmt.Errorf("duplicate category %q", c.Key)
			}
			seen[key] = true
		}
		next.categories = cloneCategories(cats)
		return nil
	})
	if err != nil {
		return fmt.Errorf("SetCategories: %w", err)
	}
	return nil
}

// UpdateSettings replaces the ledger settings.
func (s *Store) UpdateSettings(ctx context.Context, settings domain.Settings) error {
	if settings.DefaultCategory == "" {
		settings.DefaultCategory = domain.Uncategorized
	}
	err := s.mutate(ctx, func(next *state) error {
		next.settings = settings
		return nil
	})
	if err != nil {
		return fmt.Errorf("UpdateSettings: %w", err)
	}
	return nil
}

func (st *state) accountByName(name string) int {
	for i := range st.accounts {
		if strings.EqualFold(strings.TrimSpace(st.accounts[i].Name), name) {
			return i
		}
	}
	return -1
}

package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/logger"
)

// Snapshot is a complete, self-contained copy of the ledger.
type Snapshot struct {
	Accounts     []domain.Account
	Transactions []domain.LedgerTransaction
	Categories   []domain.Category
	Settings     domain.Settings
}

type state struct {
	accounts     []domain.Account
	transactions []domain.LedgerTransaction
	categories   []domain.Category
	settings     domain.Settings
}

func stateFromSnapshot(snap Snapshot) *state {
	st := &state{
		accounts:     append([]domain.Account(nil), snap.Accounts...),
		transactions: append([]domain.LedgerTransaction(nil), snap.Transactions...),
		categories:   cloneCategories(snap.Categories),
		settings:     snap.Settings,
	}
	if st.settings == (domain.Settings{}) {
		st.settings = domain.DefaultSettings()
	}
	return st
}

func (st *state) clone() *state {
	return stateFromSnapshot(st.snapshot())
}

func (st *state) snapshot() Snapshot {
	return Snapshot{
		Accounts:     append([]domain.Account(nil), st.accounts...),
		Transactions: append([]domain.LedgerTransaction(nil), st.transactions...),
		Categories:   cloneCategories(st.categories),
		Settings:     st.settings,
	}
}

func (st *state) accountIndex(id string) int {
	for i := range st.accounts {
		if st.accounts[i].ID == id {
			return i
		}
	}
	return -1
}

func (st *state) transactionIndex(id string) int {
	for i := range st.transactions {
		if st.transactions[i].ID == id {
			return i
		}
	}
	return -1
}

// applyDeltas adds (sign=1) or reverses (sign=-1) the balance effects of tx.
func (st *state) applyDeltas(tx domain.LedgerTransaction, sign int64) error {
	for id, delta := range balanceDeltas(tx) {
		i := st.accountIndex(id)
		if i < 0 {
			return fmt.Errorf("account %s: %w", id, ErrAccountNotFound)
		}
		st.accounts[i].Balance = st.accounts[i].Balance.Add(delta.Mul(decimal.NewFromInt(sign)))
	}
	return nil
}

// balanceDeltas returns the balance change tx causes per account. A transfer
// also credits its destination account.
func balanceDeltas(tx domain.LedgerTransaction) map[string]decimal.Decimal {
	deltas := map[string]decimal.Decimal{tx.AccountID: tx.Delta()}
	if tx.IsTransfer() {
		deltas[tx.TransferAccountID] = deltas[tx.TransferAccountID].Add(tx.Amount)
	}
	return deltas
}

func cloneCategories(cats []domain.Category) []domain.Category {
	if cats == nil {
		return nil
	}
	out := make([]domain.Category, len(cats))
	for i, c := range cats {
		out[i] = domain.Category{Key: c.Key, SubCategories: append([]string(nil), c.SubCategories...)}
	}
	return out
}

// expectedBalances recomputes every balance from opening balances and the
// transaction list.
func expectedBalances(accounts []domain.Account, txs []domain.LedgerTransaction) (map[string]decimal.Decimal, error) {
	balances := make(map[string]decimal.Decimal, len(accounts))
	for _, a := range accounts {
		balances[a.ID] = a.OpeningBalance
	}
	for _, tx := range txs {
		for id, delta := range balanceDeltas(tx) {
			b, ok := balances[id]
			if !ok {
				return nil, fmt.Errorf("transaction %s references account %s: %w", tx.ID, id, ErrAccountNotFound)
			}
			balances[id] = b.Add(delta)
		}
	}
	return balances, nil
}

// ValidateSnapshot checks that a snapshot is internally consistent: unique
// ids, valid transactions that reference existing accounts, and balances
// that match opening balances plus transaction deltas.
func ValidateSnapshot(snap Snapshot) error {
	names := make(map[string]bool, len(snap.Accounts))
	ids := make(map[string]bool, len(snap.Accounts))
	for _, a := range snap.Accounts {
		if a.ID == "" {
			return fmt.Errorf("%w: account without id", ErrInvalidSnapshot)
		}
		if ids[a.ID] {
			return fmt.Errorf("%w: duplicate account id %s", ErrInvalidSnapshot, a.ID)
		}
		ids[a.ID] = true
		key := strings.ToLower(strings.TrimSpace(a.Name))
		if key == "" {
			return fmt.Errorf("%w: account %s has no name", ErrInvalidSnapshot, a.ID)
		}
		if names[key] {
			return fmt.Errorf("%w: duplicate account name %q", ErrInvalidSnapshot, a.Name)
		}
		names[key] = true
	}

	txIDs := make(map[string]bool, len(snap.Transactions))
	for _, tx := range snap.Transactions {
		if tx.ID == "" || txIDs[tx.ID] {
			return fmt.Errorf("%w: missing or duplicate transaction id %q", ErrInvalidSnapshot, tx.ID)
		}
		txIDs[tx.ID] = true
		if err := validateTransaction(tx); err != nil {
			return fmt.Errorf("%w: transaction %s: %v", ErrInvalidSnapshot, tx.ID, err)
		}
	}

	balances, err := expectedBalances(snap.Accounts, snap.Transactions)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	for _, a := range snap.Accounts {
		if !a.Balance.Equal(balances[a.ID]) {
			return fmt.Errorf("%w: account %s balance %s, expected %s", ErrInvalidSnapshot, a.ID, a.Balance, balances[a.ID])
		}
	}
	return nil
}

func validateTransaction(tx domain.LedgerTransaction) error {
	if strings.TrimSpace(tx.Description) == "" {
		return fmt.Errorf("%w: empty description", ErrInvalidTransaction)
	}
	if !tx.Amount.IsPositive() {
		return fmt.Errorf("%w: amount %s must be positive", ErrInvalidTransaction, tx.Amount)
	}
	if !tx.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, tx.Type)
	}
	if !tx.Date.IsValid() {
		return fmt.Errorf("%w: invalid date", ErrInvalidTransaction)
	}
	if tx.IsTransfer() && tx.TransferAccountID == tx.AccountID {
		return fmt.Errorf("%w: transfer to the same account", ErrInvalidTransaction)
	}
	return nil
}

// VerifyBalances recomputes every balance and reports the first mismatch.
func (s *Store) VerifyBalances() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balances, err := expectedBalances(s.st.accounts, s.st.transactions)
	if err != nil {
		return fmt.Errorf("VerifyBalances: %w", err)
	}
	for _, a := range s.st.accounts {
		if !a.Balance.Equal(balances[a.ID]) {
			return fmt.Errorf("VerifyBalances: account %s balance %s, expected %s", a.ID, a.Balance, balances[a.ID])
		}
	}
	return nil
}

// Replace swaps the whole ledger for snap. The snapshot is validated first;
// on any failure the current state is kept.
func (s *Store) Replace(ctx context.Context, snap Snapshot) error {
	if err := ValidateSnapshot(snap); err != nil {
		return fmt.Errorf("Replace: %w", err)
	}
	err := s.mutate(ctx, func(next *state) error {
		*next = *stateFromSnapshot(snap)
		return nil
	})
	if err != nil {
		return fmt.Errorf("Replace: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().
		Int("accounts", len(snap.Accounts)).
		Int("transactions", len(snap.Transactions)).
		Msg("ledger replaced")
	return nil
}

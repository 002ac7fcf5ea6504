// Package ledger owns the accounts and committed transactions. Every
// mutation goes through a single exclusive section on the Store.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/ledger-intake/internal/domain"
)

// Observer is notified after transactions have been committed and saved.
type Observer interface {
	OnCommitted(ctx context.Context, txs []domain.LedgerTransaction)
}

// Store is the in-memory ledger backed by an optional Persister.
type Store struct {
	mu        sync.RWMutex
	st        *state
	persister Persister
	observers []Observer
	newID     func() string
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPersister makes every mutation save the new state before it becomes
// visible. A failed save aborts the mutation.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithObserver registers an observer for committed transactions.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observers = append(s.observers, o) }
}

// WithIDGenerator replaces the UUID generator used for new ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

// NewStore creates an empty ledger.
func NewStore(opts ...Option) *Store {
	s := &Store{
		st:    &state{settings: domain.DefaultSettings()},
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a store and loads its state from the configured persister.
func Open(ctx context.Context, opts ...Option) (*Store, error) {
	s := NewStore(opts...)
	if s.persister == nil {
		return s, nil
	}

	snap, err := s.persister.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("Open: load ledger: %w", err)
	}
	if err := ValidateSnapshot(snap); err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	s.st = stateFromSnapshot(snap)
	return s, nil
}

// Snapshot returns a deep copy of the whole ledger.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.snapshot()
}

// Accounts returns the accounts in directory order.
func (s *Store) Accounts() []domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Account(nil), s.st.accounts...)
}

// Account returns one account by id.
func (s *Store) Account(id string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.st.accountIndex(id)
	if i < 0 {
		return domain.Account{}, fmt.Errorf("account %s: %w", id, ErrAccountNotFound)
	}
	return s.st.accounts[i], nil
}

// Transactions returns the committed transactions in commit order.
func (s *Store) Transactions() []domain.LedgerTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.LedgerTransaction(nil), s.st.transactions...)
}

// Transaction returns one committed transaction by id.
func (s *Store) Transaction(id string) (domain.LedgerTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.st.transactionIndex(id)
	if i < 0 {
		return domain.LedgerTransaction{}, fmt.Errorf("transaction %s: %w", id, ErrTransactionNotFound)
	}
	return s.st.transactions[i], nil
}

// Categories returns the category taxonomy.
func (s *Store) Categories() []domain.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCategories(s.st.categories)
}

// Settings returns the ledger settings.
func (s *Store) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.settings
}

// mutate runs fn on a copy of the state inside the exclusive section and
// publishes the copy only if fn and the save both succeed.
func (s *Store) mutate(ctx context.Context, fn func(next *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.st.clone()
	if err := fn(next); err != nil {
		return err
	}
	if s.persister != nil {
		if err := s.persister.Save(ctx, next.snapshot()); err != nil {
			return fmt.Errorf("save ledger: %w", err)
		}
	}
	s.st = next
	return nil
}

func (s *Store) notify(ctx context.Context, txs []domain.LedgerTransaction) {
	for _, o := range s.observers {
		o.OnCommitted(ctx, append([]domain.LedgerTransaction(nil), txs...))
	}
}

package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/ledger-intake/internal/pipeline"
)

// ErrNotFound is returned for an unknown session id.
var ErrNotFound = errors.New("session not found")

// Manager keeps the live sessions. It is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ingestor *pipeline.Ingestor
	store    LedgerStore
	now      func() time.Time
}

// NewManager creates a session manager sharing one ingestor and ledger.
func NewManager(ingestor *pipeline.Ingestor, store LedgerStore) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ingestor: ingestor,
		store:    store,
		now:      time.Now,
	}
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	s := New(uuid.NewString(), m.ingestor, m.store, m.now)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return s
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s, nil
}

// Close cancels a session and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	s.Cancel()
	return nil
}

// List returns the live sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

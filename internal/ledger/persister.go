package ledger

import (
	"context"
	"sync"
)

// Persister loads and saves the whole ledger. Save must either store the
// complete snapshot or return an error.
type Persister interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// MemoryPersister keeps the last saved snapshot in memory.
type MemoryPersister struct {
	mu    sync.Mutex
	snap  Snapshot
	saves int
}

// NewMemoryPersister creates a persister preloaded with snap.
func NewMemoryPersister(snap Snapshot) *MemoryPersister {
	return &MemoryPersister{snap: snap}
}

func (p *MemoryPersister) Load(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return stateFromSnapshot(p.snap).snapshot(), nil
}

func (p *MemoryPersister) Save(ctx context.Context, snap Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = stateFromSnapshot(snap).snapshot()
	p.saves++
	return nil
}

// Saves returns how many times Save was called.
func (p *MemoryPersister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

var _ Persister = (*MemoryPersister)(nil)

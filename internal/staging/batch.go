// Package staging holds candidate transactions that are waiting for the
// user to confirm them. Nothing in a batch is ever persisted.
package staging

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/pipeline"
)

var (
	// ErrNotFound is returned for an unknown staging id.
	ErrNotFound = errors.New("staged candidate not found")
	// ErrInvalidValue is returned when an edit does not pass validation.
	ErrInvalidValue = errors.New("invalid value")
)

// Field names a user-editable candidate field.
type Field string

const (
	FieldDescription Field = "description"
	FieldAmount      Field = "amount"
	FieldDate        Field = "date"
	FieldType        Field = "type"
	FieldCategory    Field = "category"
	FieldSubCategory Field = "subCategory"
	FieldAccount     Field = "account"
	FieldRemarks     Field = "remarks"
)

// Batch is an ordered, editable collection of candidates.
// It is safe for concurrent use.
type Batch struct {
	mu    sync.Mutex
	items []domain.CandidateTransaction
	seq   int
}

// New creates an empty batch.
func New() *Batch {
	return &Batch{}
}

// Add appends candidates in order, assigning each a fresh staging id.
// Ids are never reused within a batch, even after Clear.
func (b *Batch) Add(cands ...domain.CandidateTransaction) []domain.StagingID {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]domain.StagingID, 0, len(cands))
	for _, c := range cands {
		b.seq++
		c.StagingID = domain.NewStagingID(b.seq)
		c.Warnings = append([]string(nil), c.Warnings...)
		b.items = append(b.items, c)
		ids = append(ids, c.StagingID)
	}
	return ids
}

// Edit replaces one field of a staged candidate. The value is validated with
// the same rules as ingestion; on error the batch is unchanged. Duplicate
// flags are left exactly as they were computed at staging time.
func (b *Batch) Edit(id domain.StagingID, field Field, value string) (domain.CandidateTransaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(id)
	if i < 0 {
		return domain.CandidateTransaction{}, fmt.Errorf("Edit %s: %w", id, ErrNotFound)
	}
	c := b.items[i]

	switch field {
	case FieldDescription:
		v := strings.TrimSpace(value)
		if v == "" {
			return domain.CandidateTransaction{}, fmt.Errorf("Edit %s: %w: description must not be empty", id, ErrInvalidValue)
		}
		c.Description = v
	case FieldAmount:
		amount, err := pipeline.ParseAmount(value)
		if err != nil {
			return domain.CandidateTransaction{}, fmt.Errorf("Edit %s: %w: %w", id, ErrInvalidValue, err)
		}
		c.Amount = amount
	case FieldDate:
		d, err := pipeline.ParseDate(value)
		if err != nil {
			return domain.CandidateTransaction{}, fmt.Errorf("Edit %s: %w: %w", id, ErrInvalidValue, err)
		}
		c.Date = d
	case FieldType:
		t, err := domain.ParseTransactionType(value)
		if err != nil {
			return domain.CandidateTransaction{}, fmt.Errorf("Edit %s: %w: %w", id, ErrInvalidValue, err)
		}
		c.Type = t
	case FieldCategory:
		c.Category = domain.OrUncategorized(value)
	case FieldSubCategory:
		c.SubCategory = domain.OrUncategorized(value)
	case FieldAccount:
		v := strings.TrimSpace(value)
		if v == "" {
			return domain.CandidateTransaction{}, fmt.Errorf("Edit %s: %w: account must not be empty", id, ErrInvalidValue)
		}
		// Existence is checked again at commit time.
		c.AccountID = v
		c.AccountMatched = true
	case FieldRemarks:
		c.Remarks = strings.TrimSpace(value)
	default:
		return domain.CandidateTransaction{}, fmt.Errorf("Edit %s: %w: unknown field %q", id, ErrInvalidValue, field)
	}

	b.items[i] = c
	return c, nil
}

// Remove drops a candidate from the batch.
func (b *Batch) Remove(id domain.StagingID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(id)
	if i < 0 {
		return fmt.Errorf("Remove %s: %w", id, ErrNotFound)
	}
	b.items = append(b.items[:i], b.items[i+1:]...)
	return nil
}

// Get returns a copy of one staged candidate.
func (b *Batch) Get(id domain.StagingID) (domain.CandidateTransaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(id)
	if i < 0 {
		return domain.CandidateTransaction{}, fmt.Errorf("Get %s: %w", id, ErrNotFound)
	}
	return b.items[i], nil
}

// List returns a copy of the staged candidates in order.
func (b *Batch) List() []domain.CandidateTransaction {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]domain.CandidateTransaction(nil), b.items...)
}

// Len returns the number of staged candidates.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Clear discards every staged candidate.
func (b *Batch) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = nil
}

// Drain hands the staged candidates to fn while holding the batch, and
// clears the batch only if fn succeeds.
func (b *Batch) Drain(fn func([]domain.CandidateTransaction) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := fn(append([]domain.CandidateTransaction(nil), b.items...)); err != nil {
		return err
	}
	b.items = nil
	return nil
}

func (b *Batch) indexOf(id domain.StagingID) int {
	for i := range b.items {
		if b.items[i].StagingID == id {
			return i
		}
	}
	return -1
}

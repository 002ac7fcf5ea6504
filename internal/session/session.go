// Package session ties one user's ingestion runs to a staging batch and the
// shared ledger. A session runs at most one ingestion at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/ledger"
	"github.com/dvloznov/ledger-intake/internal/logger"
	"github.com/dvloznov/ledger-intake/internal/pipeline"
	"github.com/dvloznov/ledger-intake/internal/staging"
)

var (
	// ErrIngestionInProgress is returned when a session is already ingesting.
	ErrIngestionInProgress = errors.New("ingestion already in progress")
	// ErrSessionDiscarded is returned when the batch was cancelled while an
	// ingestion was running; its candidates are dropped.
	ErrSessionDiscarded = errors.New("session discarded while ingesting")
)

// LedgerStore is the part of the ledger a session needs.
type LedgerStore interface {
	Snapshot() ledger.Snapshot
	Commit(ctx context.Context, cands []domain.CandidateTransaction) ([]domain.LedgerTransaction, error)
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Outcome    pipeline.Outcome           `json:"outcome,omitempty"`
	StagingIDs []domain.StagingID         `json:"stagingIds"`
	Rejections []*pipeline.RejectionError `json:"-"`
	RowIssues  []pipeline.RowIssue        `json:"rowIssues,omitempty"`
	// Notice is a user-facing message when nothing could be extracted.
	Notice string `json:"notice,omitempty"`
}

// Rejected returns the rejection reasons as text.
func (r IngestReport) Rejected() []string {
	out := make([]string, 0, len(r.Rejections))
	for _, rej := range r.Rejections {
		out = append(out, rej.Error())
	}
	return out
}

// Session is one user's ingestion context.
type Session struct {
	ID        string
	CreatedAt time.Time

	ingestor *pipeline.Ingestor
	store    LedgerStore
	batch    *staging.Batch
	now      func() time.Time

	busy atomic.Bool

	mu         sync.Mutex // guards generation together with batch admission
	generation uint64
}

// New creates a session with an empty batch.
func New(id string, ingestor *pipeline.Ingestor, store LedgerStore, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		ID:        id,
		CreatedAt: now(),
		ingestor:  ingestor,
		store:     store,
		batch:     staging.New(),
		now:       now,
	}
}

// Batch returns the session's staging batch for listing and editing.
func (s *Session) Batch() *staging.Batch {
	return s.batch
}

// Busy reports whether an ingestion is outstanding.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// IngestText extracts candidates from text and stages them.
func (s *Session) IngestText(ctx context.Context, text string) (IngestReport, error) {
	return s.ingest(ctx, func(view pipeline.LedgerView, today civil.Date) (*pipeline.PipelineState, error) {
		return s.ingestor.IngestText(ctx, text, view, today)
	})
}

// ImportCSV parses CSV rows and stages them.
func (s *Session) ImportCSV(ctx context.Context, data []byte) (IngestReport, error) {
	return s.ingest(ctx, func(view pipeline.LedgerView, today civil.Date) (*pipeline.PipelineState, error) {
		return s.ingestor.IngestCSV(ctx, data, view, today)
	})
}

func (s *Session) ingest(ctx context.Context, run func(pipeline.LedgerView, civil.Date) (*pipeline.PipelineState, error)) (IngestReport, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return IngestReport{}, ErrIngestionInProgress
	}
	defer s.busy.Store(false)

	log := logger.FromContext(ctx).With().Str("session_id", s.ID).Logger()
	ctx = logger.WithContext(ctx, log)

	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	state, err := run(ViewOf(s.store.Snapshot()), civil.DateOf(s.now()))
	if err != nil {
		return IngestReport{}, fmt.Errorf("ingest: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		log.Info().Int("candidates", len(state.Candidates)).Msg("discarding late ingestion result")
		return IngestReport{}, ErrSessionDiscarded
	}

	report := IngestReport{
		Outcome:    state.Extraction.Outcome,
		Rejections: state.Rejections,
		RowIssues:  state.RowIssues,
	}
	if err := state.Extraction.Err(); err != nil {
		report.Notice = "Could not read any transactions from the text. Please rephrase or add them manually."
	}
	report.StagingIDs = s.batch.Add(state.Candidates...)
	return report, nil
}

// Commit applies the staged batch to the ledger. The batch is cleared only
// when the commit succeeds.
func (s *Session) Commit(ctx context.Context) ([]domain.LedgerTransaction, error) {
	if s.busy.Load() {
		return nil, ErrIngestionInProgress
	}

	var committed []domain.LedgerTransaction
	err := s.batch.Drain(func(cands []domain.CandidateTransaction) error {
		txs, err := s.store.Commit(ctx, cands)
		if err != nil {
			return err
		}
		committed = txs
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Commit: %w", err)
	}
	return committed, nil
}

// Cancel discards the staged batch. An ingestion still running will have
// its result dropped when it finishes.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.batch.Clear()
}

// ViewOf converts a ledger snapshot into the read-only view used by the
// ingestion pipeline.
func ViewOf(snap ledger.Snapshot) pipeline.LedgerView {
	return pipeline.LedgerView{
		Accounts:     snap.Accounts,
		Categories:   snap.Categories,
		Transactions: snap.Transactions,
	}
}

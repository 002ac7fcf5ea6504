package pipeline

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/logger"
)

// LedgerView is the read-only ledger snapshot an ingestion runs against.
type LedgerView struct {
	Accounts     []domain.Account
	Categories   []domain.Category
	Transactions []domain.LedgerTransaction
}

// Ingestor runs the text and CSV ingestion pipelines.
type Ingestor struct {
	extractor Extractor
	detector  *DuplicateDetector
}

// NewIngestor creates an Ingestor. A nil detector uses the default tolerance.
func NewIngestor(extractor Extractor, detector *DuplicateDetector) *Ingestor {
	if detector == nil {
		detector = DefaultDuplicateDetector()
	}
	return &Ingestor{extractor: extractor, detector: detector}
}

// IngestText extracts candidates from free text.
func (in *Ingestor) IngestText(ctx context.Context, text string, view LedgerView, today civil.Date) (*PipelineState, error) {
	if in.extractor == nil {
		return nil, fmt.Errorf("IngestText: no extractor configured")
	}
	state := newState(view, today)
	state.Text = text

	if err := NewTextIngestionPipeline(in.extractor, in.detector).Execute(ctx, state); err != nil {
		return nil, fmt.Errorf("IngestText: %w", err)
	}
	logResult(ctx, "text", state)
	return state, nil
}

// IngestCSV parses candidates from CSV bytes.
func (in *Ingestor) IngestCSV(ctx context.Context, data []byte, view LedgerView, today civil.Date) (*PipelineState, error) {
	state := newState(view, today)
	state.CSV = data

	if err := NewCSVIngestionPipeline(in.detector).Execute(ctx, state); err != nil {
		return nil, fmt.Errorf("IngestCSV: %w", err)
	}
	logResult(ctx, "csv", state)
	return state, nil
}

func newState(view LedgerView, today civil.Date) *PipelineState {
	return &PipelineState{
		Today:      today,
		Accounts:   view.Accounts,
		Categories: view.Categories,
		Existing:   view.Transactions,
	}
}

func logResult(ctx context.Context, kind string, state *PipelineState) {
	duplicates := 0
	for _, c := range state.Candidates {
		if c.IsDuplicate {
			duplicates++
		}
	}
	log := logger.FromContext(ctx)
	ev := log.Info().
		Str("input", kind).
		Int("candidates", len(state.Candidates)).
		Int("rejected", len(state.Rejections)).
		Int("duplicates", duplicates)
	if kind == "text" {
		ev = ev.Str("outcome", string(state.Extraction.Outcome))
	} else {
		ev = ev.Int("skipped_rows", len(state.RowIssues))
	}
	ev.Msg("ingestion finished")
}

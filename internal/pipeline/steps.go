package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/logger"
)

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
// Accounts, Categories and Existing are a snapshot of the ledger taken
// before the pipeline starts; steps only read them.
type PipelineState struct {
	Text  string
	CSV   []byte
	Today civil.Date

	Accounts   []domain.Account
	Categories []domain.Category
	Existing   []domain.LedgerTransaction

	Extraction ExtractionResult
	Raw        []RawCandidate
	Candidates []domain.CandidateTransaction
	Rejections []*RejectionError
	RowIssues  []RowIssue
}

// ExtractStep asks the extractor for raw candidates. A failed extraction is
// not a pipeline error: it leaves zero candidates behind.
type ExtractStep struct {
	Extractor Extractor
}

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	req := ExtractionRequest{
		Text:  state.Text,
		Today: state.Today,
	}
	for _, a := range state.Accounts {
		req.AccountNames = append(req.AccountNames, a.Name)
	}
	for _, c := range state.Categories {
		req.CategoryKeys = append(req.CategoryKeys, c.Key)
	}

	res := s.Extractor.Extract(ctx, req)
	state.Extraction = res
	state.Raw = append(state.Raw, res.Candidates...)
	state.Rejections = append(state.Rejections, res.Rejections...)

	if err := res.Err(); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("extraction produced no candidates")
	}
	return nil
}

// ParseCSVStep reads raw candidates from the CSV payload.
type ParseCSVStep struct{}

func (s *ParseCSVStep) Execute(ctx context.Context, state *PipelineState) error {
	raw, issues, err := ParseCSV(bytes.NewReader(state.CSV))
	if err != nil {
		return err
	}
	state.Raw = append(state.Raw, raw...)
	state.RowIssues = append(state.RowIssues, issues...)
	return nil
}

// NormalizeStep types every raw candidate. Rejected candidates are recorded
// and do not affect their siblings.
type NormalizeStep struct{}

func (s *NormalizeStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	for i, raw := range state.Raw {
		c, err := Normalize(raw, state.Today)
		if err != nil {
			var rej *RejectionError
			if !errors.As(err, &rej) {
				return fmt.Errorf("NormalizeStep: candidate %d: %w", i, err)
			}
			rej.Index = i
			state.Rejections = append(state.Rejections, rej)
			log.Info().Int("index", i).Str("field", rej.Field).Str("reason", rej.Reason).Msg("candidate rejected")
			continue
		}
		state.Candidates = append(state.Candidates, c)
	}
	return nil
}

// CheckCategoriesStep warns about categories outside the taxonomy.
type CheckCategoriesStep struct{}

func (s *CheckCategoriesStep) Execute(ctx context.Context, state *PipelineState) error {
	v := NewCategoryValidator(state.Categories)
	for i := range state.Candidates {
		v.Check(&state.Candidates[i])
	}
	return nil
}

// ResolveAccountsStep binds every candidate to an account.
type ResolveAccountsStep struct{}

// With an empty directory every candidate is rejected.
func (s *ResolveAccountsStep) Execute(ctx context.Context, state *PipelineState) error {
	if len(state.Accounts) == 0 {
		for i := range state.Candidates {
			state.Rejections = append(state.Rejections, &RejectionError{Index: i, Field: fieldAccount, Reason: ErrNoAccounts.Error()})
		}
		state.Candidates = nil
		return nil
	}
	for i := range state.Candidates {
		if err := ApplyResolution(&state.Candidates[i], state.Accounts); err != nil {
			return fmt.Errorf("ResolveAccountsStep: %w", err)
		}
	}
	return nil
}

// DetectDuplicatesStep flags candidates that duplicate existing transactions.
type DetectDuplicatesStep struct {
	Detector *DuplicateDetector
}

func (s *DetectDuplicatesStep) Execute(ctx context.Context, state *PipelineState) error {
	for i := range state.Candidates {
		s.Detector.Flag(&state.Candidates[i], state.Existing)
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline step %d: %w", i+1, err)
		}
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewTextIngestionPipeline creates the pipeline for free-text input.
func NewTextIngestionPipeline(extractor Extractor, detector *DuplicateDetector) *Pipeline {
	return NewPipeline(
		&ExtractStep{Extractor: extractor},
		&NormalizeStep{},
		&CheckCategoriesStep{},
		&ResolveAccountsStep{},
		&DetectDuplicatesStep{Detector: detector},
	)
}

// NewCSVIngestionPipeline creates the pipeline for CSV input.
func NewCSVIngestionPipeline(detector *DuplicateDetector) *Pipeline {
	return NewPipeline(
		&ParseCSVStep{},
		&NormalizeStep{},
		&ResolveAccountsStep{},
		&DetectDuplicatesStep{Detector: detector},
	)
}

package pipeline

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledger-intake/internal/domain"
)

// ErrExtractionFailed is reported when both extraction attempts failed.
var ErrExtractionFailed = errors.New("extraction failed")

// RawCandidate is one transaction as it came out of the model or a CSV row,
// before any typing or defaulting. Every field is kept as text.
type RawCandidate struct {
	Date        string
	Description string
	Amount      string
	Type        string
	Category    string
	SubCategory string
	AccountName string
	UnitDetails string
	Remarks     string
	Source      domain.Source
}

// ExtractionRequest carries the text to extract from and the context used to
// bias the model. Accounts and categories are read-only here.
type ExtractionRequest struct {
	Text         string
	AccountNames []string
	CategoryKeys []string
	Today        civil.Date
}

// Outcome tags how an extraction finished.
type Outcome string

const (
	OutcomePrimary  Outcome = "primary"
	OutcomeFallback Outcome = "fallback"
	OutcomeFailed   Outcome = "failed"
)

// ExtractionResult is the tagged result of the two-attempt extraction.
type ExtractionResult struct {
	Outcome    Outcome
	Candidates []RawCandidate
	// Rejections are elements of an otherwise valid response that could not
	// be read as a transaction object.
	Rejections  []*RejectionError
	PrimaryErr  error
	FallbackErr error
}

// Err returns nil unless both attempts failed.
func (r ExtractionResult) Err() error {
	if r.Outcome != OutcomeFailed {
		return nil
	}
	return fmt.Errorf("%w: primary: %v; fallback: %v", ErrExtractionFailed, r.PrimaryErr, r.FallbackErr)
}

// RejectionError explains why a raw candidate was dropped.
type RejectionError struct {
	Index  int
	Field  string
	Reason string
}

func (e *RejectionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("candidate %d rejected: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("candidate %d rejected: %s: %s", e.Index, e.Field, e.Reason)
}

// RowIssue describes a CSV row that was skipped.
type RowIssue struct {
	Line   int
	Reason string
}

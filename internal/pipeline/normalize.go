package pipeline

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-intake/internal/domain"
)

var dateLayouts = []string{"2006-01-02", "2006/01/02", time.RFC3339}

// Normalize turns a raw candidate into a typed candidate or rejects it.
// It is pure: today is the date used when the input carries no date or one
// that does not parse; the latter also leaves a warning. Only description,
// amount and type reject a candidate.
// Normalizing the Raw form of a normalized candidate yields the same value.
func Normalize(raw RawCandidate, today civil.Date) (domain.CandidateTransaction, error) {
	desc := strings.TrimSpace(raw.Description)
	if desc == "" {
		return domain.CandidateTransaction{}, &RejectionError{Field: fieldDescription, Reason: "missing"}
	}

	amount, err := ParseAmount(raw.Amount)
	if err != nil {
		return domain.CandidateTransaction{}, err
	}

	typ, err := domain.ParseTransactionType(raw.Type)
	if err != nil {
		return domain.CandidateTransaction{}, &RejectionError{Field: fieldType, Reason: err.Error()}
	}

	date := today
	var dateWarning string
	if s := strings.TrimSpace(raw.Date); s != "" {
		if parsed, err := ParseDate(s); err == nil {
			date = parsed
		} else {
			dateWarning = s
		}
	}

	source := raw.Source
	if source == "" {
		source = domain.SourceManual
	}

	c := domain.CandidateTransaction{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Type:        typ,
		Category:    domain.OrUncategorized(raw.Category),
		SubCategory: domain.OrUncategorized(raw.SubCategory),
		AccountHint: strings.TrimSpace(raw.AccountName),
		UnitDetails: strings.TrimSpace(raw.UnitDetails),
		Remarks:     strings.TrimSpace(raw.Remarks),
		Source:      source,
	}
	if dateWarning != "" {
		c.AddWarning("unrecognized date %q, used %s", dateWarning, today)
	}
	return c, nil
}

// ToRaw is the inverse view of Normalize, used when a normalized candidate
// has to be fed through the normalizer again.
func ToRaw(c domain.CandidateTransaction) RawCandidate {
	return RawCandidate{
		Date:        c.Date.String(),
		Description: c.Description,
		Amount:      c.Amount.String(),
		Type:        string(c.Type),
		Category:    c.Category,
		SubCategory: c.SubCategory,
		AccountName: c.AccountHint,
		UnitDetails: c.UnitDetails,
		Remarks:     c.Remarks,
		Source:      c.Source,
	}
}

// ParseAmount parses a strictly positive decimal amount without rounding.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, &RejectionError{Field: fieldAmount, Reason: "missing"}
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, &RejectionError{Field: fieldAmount, Reason: "not a number: " + s}
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, &RejectionError{Field: fieldAmount, Reason: "must be greater than zero"}
	}
	return amount, nil
}

// ParseDate accepts an ISO calendar date, a slash separated date, or an
// RFC 3339 timestamp (whose date part is kept).
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, &RejectionError{Field: fieldDate, Reason: "unrecognized date " + s}
}

package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/ledger-intake/internal/domain"
)

// CSV layout: date,description,amount,type,accountName. The first row is a
// header and is always ignored.
const (
	csvMinFields  = 5
	csvColDate    = 0
	csvColDesc    = 1
	csvColAmount  = 2
	csvColType    = 3
	csvColAccount = 4
)

// CSVHeader is the header row written into CSV templates.
var CSVHeader = []string{"date", "description", "amount", "type", "accountName"}

// ParseCSV reads CSV rows into raw candidates. Rows with fewer than five
// fields or a type that is not exactly EXPENSE, INCOME or INVESTMENT are
// skipped and reported as issues, as are rows the CSV reader cannot parse.
// Only a failing reader is an error.
func ParseCSV(r io.Reader) ([]RawCandidate, []RowIssue, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	var (
		cands  []RawCandidate
		issues []RowIssue
		first  = true
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			if !first {
				issues = append(issues, RowIssue{Line: pe.Line, Reason: pe.Err.Error()})
			}
			first = false
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("ParseCSV: reading CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if first {
			first = false
			continue
		}

		if len(rec) < csvMinFields {
			issues = append(issues, RowIssue{Line: line, Reason: fmt.Sprintf("expected %d fields, got %d", csvMinFields, len(rec))})
			continue
		}

		typ := strings.TrimSpace(rec[csvColType])
		if !domain.TransactionType(typ).Valid() {
			issues = append(issues, RowIssue{Line: line, Reason: fmt.Sprintf("unknown type %q", typ)})
			continue
		}

		cands = append(cands, RawCandidate{
			Date:        strings.TrimSpace(rec[csvColDate]),
			Description: strings.TrimSpace(rec[csvColDesc]),
			Amount:      strings.TrimSpace(rec[csvColAmount]),
			Type:        typ,
			AccountName: strings.TrimSpace(rec[csvColAccount]),
			Source:      domain.SourceCSV,
		})
	}
	return cands, issues, nil
}

// WriteCSVTemplate writes the header row and one example line.
func WriteCSVTemplate(w io.Writer, accountName string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("WriteCSVTemplate: %w", err)
	}
	if err := cw.Write([]string{"2024-01-31", "Groceries", "42.50", string(domain.Expense), accountName}); err != nil {
		return fmt.Errorf("WriteCSVTemplate: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

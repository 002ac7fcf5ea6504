package pipeline

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledger-intake/internal/domain"
)

func TestParseCSV(t *testing.T) {
	input := strings.Join([]string{
		"date,description,amount,type,accountName",
		"2024-01-05,Groceries,42.10,EXPENSE,HDFC",
		"2024-01-06,Salary,3000,INCOME,HDFC Savings",
		"2024-01-07,Too short,10,EXPENSE",
		"2024-01-08,Lowercase type,10,expense,Cash",
		", Index fund ,250.5,INVESTMENT,Amex",
	}, "\n")

	cands, issues, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, cands, 3)
	assert.Equal(t, RawCandidate{
		Date: "2024-01-05", Description: "Groceries", Amount: "42.10", Type: "EXPENSE", AccountName: "HDFC", Source: domain.SourceCSV,
	}, cands[0])
	assert.Equal(t, "Salary", cands[1].Description)
	assert.Equal(t, "", cands[2].Date)
	assert.Equal(t, "Index fund", cands[2].Description)

	require.Len(t, issues, 2)
	assert.Equal(t, 4, issues[0].Line)
	assert.Equal(t, 5, issues[1].Line)
	assert.Contains(t, issues[1].Reason, "expense")
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	cands, issues, err := ParseCSV(strings.NewReader("a,b,c,d,e\n"))
	require.NoError(t, err)
	assert.Empty(t, cands)
	assert.Empty(t, issues)
}

func TestParseCSV_HeaderIsNeverData(t *testing.T) {
	cands, _, err := ParseCSV(strings.NewReader("2024-01-01,Looks like data,1,EXPENSE,Cash\n"))
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestParseCSV_StrayQuoteKeepsSiblingRows(t *testing.T) {
	input := strings.Join([]string{
		"date,description,amount,type,accountName",
		"2023-10-25,Coffee,3,EXPENSE,Cash Wallet",
		`2023-10-26,12" sub,9,EXPENSE,Cash Wallet`,
		"2023-10-27,Bus,2,EXPENSE,Cash Wallet",
	}, "\n")

	cands, issues, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, issues)

	require.Len(t, cands, 3)
	assert.Equal(t, "Coffee", cands[0].Description)
	assert.Equal(t, `12" sub`, cands[1].Description)
	assert.Equal(t, "9", cands[1].Amount)
	assert.Equal(t, "Bus", cands[2].Description)
	assert.Equal(t, "2023-10-27", cands[2].Date)
}

func TestParseCSV_ReaderFailure(t *testing.T) {
	_, _, err := ParseCSV(iotest.ErrReader(errors.New("disk gone")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestWriteCSVTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSVTemplate(&buf, "Cash Wallet"))

	cands, issues, err := ParseCSV(&buf)
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, cands, 1)
	assert.Equal(t, "Cash Wallet", cands[0].AccountName)
}

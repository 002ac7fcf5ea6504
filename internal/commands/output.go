package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/session"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed)
	bold   = color.New(color.Bold)
)

func success(w io.Writer, format string, args ...interface{}) {
	green.Fprintf(w, "  → "+format+"\n", args...)
}

func warning(w io.Writer, format string, args ...interface{}) {
	yellow.Fprintf(w, "  ⚠ "+format+"\n", args...)
}

func failure(w io.Writer, format string, args ...interface{}) {
	red.Fprintf(w, "  ✗ "+format+"\n", args...)
}

func accountNames(accounts []domain.Account) map[string]string {
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	return names
}

// printReport shows the staged candidates and everything that was dropped.
func printReport(w io.Writer, report session.IngestReport, staged []domain.CandidateTransaction, accounts []domain.Account) {
	if report.Outcome != "" {
		fmt.Fprintf(w, "Extraction: %s\n", report.Outcome)
	}
	if report.Notice != "" {
		warning(w, "%s", report.Notice)
	}
	for _, issue := range report.RowIssues {
		warning(w, "line %d skipped: %s", issue.Line, issue.Reason)
	}
	for _, reason := range report.Rejected() {
		failure(w, "rejected: %s", reason)
	}
	if len(staged) == 0 {
		fmt.Fprintln(w, "Nothing staged.")
		return
	}

	names := accountNames(accounts)
	bold.Fprintf(w, "\n%d staged transaction(s):\n", len(staged))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tACCOUNT\tCATEGORY\tDESCRIPTION")
	for _, c := range staged {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s/%s\t%s\n",
			c.StagingID, c.Date, c.Type, c.Amount.StringFixed(2), names[c.AccountID], c.Category, c.SubCategory, c.Description)
	}
	tw.Flush()

	for _, c := range staged {
		if c.IsDuplicate {
			warning(w, "%s looks like a duplicate of a committed transaction", c.StagingID)
		}
		for _, msg := range c.Warnings {
			warning(w, "%s: %s", c.StagingID, msg)
		}
	}
}

func printAccounts(w io.Writer, accounts []domain.Account, currency string) {
	if len(accounts) == 0 {
		fmt.Fprintln(w, "No accounts.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tBALANCE")
	for _, a := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\n", a.ID, a.Name, a.Type, a.Balance.StringFixed(2), currency)
	}
	tw.Flush()
}

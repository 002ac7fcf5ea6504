package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/ledger-intake/internal/domain"
)

// Property names in the Notion databases.
const (
	PropTransactionID = "Transaction ID"
	PropDescription   = "Description"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropCurrency      = "Currency"
	PropType          = "Type"
	PropAccount       = "Account"
	PropTransferTo    = "Transfer To"
	PropCategory      = "Category"
	PropSubcategory   = "Subcategory"
	PropUnitDetails   = "Unit Details"
	PropRemarks       = "Remarks"
	PropSource        = "Source"
	PropImportedAt    = "Imported At"

	PropAccountID      = "Account ID"
	PropAccountName    = "Account Name"
	PropAccountType    = "Account Type"
	PropOpeningBalance = "Opening Balance"
	PropBalance        = "Balance"
)

func richText(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}}},
	}
}

func title(s string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Title: []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}}},
	}
}

func selectOption(s string) notionapi.SelectProperty {
	return notionapi.SelectProperty{Select: notionapi.Option{Name: s}}
}

// TransactionToNotionProperties converts a ledger transaction to page
// properties. accountNames maps account ids to display names; ids without a
// name are written as-is.
func TransactionToNotionProperties(tx domain.LedgerTransaction, accountNames map[string]string, currency string) notionapi.Properties {
	amount, _ := tx.Amount.Float64()
	date := notionapi.Date(time.Date(tx.Date.Year, tx.Date.Month, tx.Date.Day, 0, 0, 0, 0, time.UTC))

	props := notionapi.Properties{
		PropDescription:   title(tx.Description),
		PropTransactionID: richText(tx.ID),
		PropDate:          notionapi.DateProperty{Date: &notionapi.DateObject{Start: &date}},
		PropAmount:        notionapi.NumberProperty{Number: amount},
		PropType:          selectOption(string(tx.Type)),
		PropAccount:       richText(nameOr(accountNames, tx.AccountID)),
	}

	if currency != "" {
		props[PropCurrency] = selectOption(currency)
	}
	if tx.TransferAccountID != "" {
		props[PropTransferTo] = richText(nameOr(accountNames, tx.TransferAccountID))
	}
	if tx.Category != "" {
		props[PropCategory] = selectOption(tx.Category)
	}
	if tx.SubCategory != "" {
		props[PropSubcategory] = selectOption(tx.SubCategory)
	}
	if tx.UnitDetails != "" {
		props[PropUnitDetails] = richText(tx.UnitDetails)
	}
	if tx.Remarks != "" {
		props[PropRemarks] = richText(tx.Remarks)
	}
	if tx.Source != "" {
		props[PropSource] = selectOption(string(tx.Source))
	}
	if !tx.CreatedAt.IsZero() {
		created := notionapi.Date(tx.CreatedAt)
		props[PropImportedAt] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &created}}
	}
	return props
}

// AccountToNotionProperties converts an account to page properties.
func AccountToNotionProperties(acc domain.Account, currency string) notionapi.Properties {
	opening, _ := acc.OpeningBalance.Float64()
	balance, _ := acc.Balance.Float64()

	props := notionapi.Properties{
		PropAccountID:      title(acc.ID),
		PropAccountName:    richText(acc.Name),
		PropAccountType:    selectOption(string(acc.Type)),
		PropOpeningBalance: notionapi.NumberProperty{Number: opening},
		PropBalance:        notionapi.NumberProperty{Number: balance},
	}
	if currency != "" {
		props[PropCurrency] = selectOption(currency)
	}
	return props
}

func nameOr(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return id
}

// extractTransactionID reads the Transaction ID rich-text property.
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropTransactionID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
			return rt.RichText[0].PlainText
		}
	}
	return ""
}

// extractAccountID reads the Account ID title property.
func extractAccountID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropAccountID]; ok {
		if t, ok := prop.(*notionapi.TitleProperty); ok && len(t.Title) > 0 {
			return t.Title[0].PlainText
		}
	}
	return ""
}

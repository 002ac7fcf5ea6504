package pipeline

import (
	"strings"
)

// buildContextPrompt lists the known accounts and categories so the model
// can reuse their exact spelling.
func buildContextPrompt(req ExtractionRequest) string {
	var b strings.Builder

	b.WriteString("Today's date is " + req.Today.String() + ".\n\n")

	b.WriteString("Known accounts:\n")
	if len(req.AccountNames) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, name := range req.AccountNames {
		b.WriteString("  - " + name + "\n")
	}

	b.WriteString("\nKnown categories:\n")
	if len(req.CategoryKeys) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, key := range req.CategoryKeys {
		b.WriteString("  - " + key + "\n")
	}
	return b.String()
}

const fieldRules = "Each object must have these fields:\n" +
	"- \"date\": string, ISO format \"YYYY-MM-DD\"; resolve relative dates against today's date\n" +
	"- \"description\": string, short description of what the money was for\n" +
	"- \"amount\": number, always positive\n" +
	"- \"type\": one of \"EXPENSE\", \"INCOME\", \"INVESTMENT\"\n" +
	"- \"category\": string, one of the known categories or \"Uncategorized\"\n" +
	"- \"subCategory\": string or empty\n" +
	"- \"accountNameMatch\": string, the known account name that best matches the text\n" +
	"- \"unitDetails\": string or empty (e.g. quantity and unit price for investments)\n" +
	"- \"remarks\": string or empty\n"

// buildPrimaryPrompt is the strict instruction used with a response schema.
func buildPrimaryPrompt(req ExtractionRequest) string {
	return "You extract financial transactions from the user's text.\n\n" +
		"Task:\n" +
		"- Find EVERY transaction mentioned in the text.\n" +
		"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
		"- Output a JSON array of objects, even for a single transaction.\n\n" +
		fieldRules + "\n" +
		buildContextPrompt(req) + "\n" +
		"Text:\n" + req.Text + "\n"
}

// buildFallbackPrompt is the relaxed instruction used after the strict
// attempt failed. The response is parsed leniently.
func buildFallbackPrompt(req ExtractionRequest) string {
	return "Read the text below and list the money transactions it describes as JSON.\n" +
		"A single JSON object is fine if there is only one transaction.\n\n" +
		fieldRules + "\n" +
		buildContextPrompt(req) + "\n" +
		"Text:\n" + req.Text + "\n"
}

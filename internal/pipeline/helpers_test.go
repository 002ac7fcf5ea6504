package pipeline

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/dvloznov/ledger-intake/internal/domain"
)

func date(y int, m int, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func testAccounts() []domain.Account {
	return []domain.Account{
		{ID: "acc-cash", Name: "Cash Wallet", Type: domain.AccountWallet},
		{ID: "acc-hdfc", Name: "HDFC Savings", Type: domain.AccountSavings},
		{ID: "acc-amex", Name: "Amex Credit Card", Type: domain.AccountCredit},
	}
}

// MockModelClient is a mock implementation of ModelClient for testing.
type MockModelClient struct {
	GenerateContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Calls               []*genai.GenerateContentConfig
	Prompts             []string
}

func (m *MockModelClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.Calls = append(m.Calls, config)
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		m.Prompts = append(m.Prompts, contents[0].Parts[0].Text)
	}
	return m.GenerateContentFunc(ctx, model, contents, config)
}

// scriptedModel answers each call with the next response in order.
func scriptedModel(responses ...interface{}) *MockModelClient {
	n := 0
	return &MockModelClient{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			r := responses[n]
			n++
			if err, ok := r.(error); ok {
				return nil, err
			}
			return textResponse(r.(string)), nil
		},
	}
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

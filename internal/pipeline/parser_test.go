package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func testRequest() ExtractionRequest {
	return ExtractionRequest{
		Text:         "spent 12.50 on lunch with my hdfc card and got 3000 salary",
		AccountNames: []string{"Cash Wallet", "HDFC Savings"},
		CategoryKeys: []string{"Food", "Salary"},
		Today:        date(2024, 3, 15),
	}
}

func TestGeminiExtractor_PrimarySuccess(t *testing.T) {
	model := scriptedModel(`[
		{"date":"2024-03-14","description":"Lunch","amount":12.50,"type":"EXPENSE","category":"Food","subCategory":"","accountNameMatch":"HDFC Savings"},
		{"description":"Salary","amount":3000,"type":"INCOME","accountNameMatch":"HDFC Savings"}
	]`)
	ex := NewGeminiExtractor(model, "")

	res := ex.Extract(context.Background(), testRequest())

	require.NoError(t, res.Err())
	assert.Equal(t, OutcomePrimary, res.Outcome)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "12.50", res.Candidates[0].Amount)
	assert.Equal(t, "HDFC Savings", res.Candidates[0].AccountName)
	assert.Equal(t, "", res.Candidates[1].Date)

	require.Len(t, model.Calls, 1, "fallback must not run after a primary success")
	require.NotNil(t, model.Calls[0])
	assert.Equal(t, "application/json", model.Calls[0].ResponseMIMEType)
	assert.Equal(t, genai.TypeArray, model.Calls[0].ResponseSchema.Type)
	assert.Contains(t, model.Prompts[0], "2024-03-15")
	assert.Contains(t, model.Prompts[0], "HDFC Savings")
	assert.Contains(t, model.Prompts[0], "Salary")
}

func TestGeminiExtractor_FallbackOnMalformedPrimary(t *testing.T) {
	model := scriptedModel(
		`{"description": "Lunch", "amount": 12.5`,
		"```json\n{\"description\":\"Lunch\",\"amount\":\"12.5\",\"type\":\"expense\"}\n```",
	)
	res := NewGeminiExtractor(model, "gemini-test").Extract(context.Background(), testRequest())

	require.NoError(t, res.Err())
	assert.Equal(t, OutcomeFallback, res.Outcome)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "Lunch", res.Candidates[0].Description)
	assert.Error(t, res.PrimaryErr)

	require.Len(t, model.Calls, 2)
	assert.Nil(t, model.Calls[1], "fallback runs without a response schema")
}

func TestGeminiExtractor_FallbackOnSingleObjectPrimary(t *testing.T) {
	// A single object is not acceptable on the strict attempt.
	obj := `{"description":"Taxi","amount":20,"type":"EXPENSE"}`
	model := scriptedModel(obj, obj)

	res := NewGeminiExtractor(model, "").Extract(context.Background(), testRequest())

	assert.Equal(t, OutcomeFallback, res.Outcome)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "20", res.Candidates[0].Amount)
}

func TestGeminiExtractor_FallbackOnTransportError(t *testing.T) {
	model := scriptedModel(errors.New("deadline exceeded"), `[{"description":"Taxi","amount":20,"type":"EXPENSE"}]`)

	res := NewGeminiExtractor(model, "").Extract(context.Background(), testRequest())

	assert.Equal(t, OutcomeFallback, res.Outcome)
	assert.Len(t, res.Candidates, 1)
}

func TestGeminiExtractor_BothFail(t *testing.T) {
	model := scriptedModel("not json at all", "still not json")

	res := NewGeminiExtractor(model, "").Extract(context.Background(), testRequest())

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Empty(t, res.Candidates)
	assert.ErrorIs(t, res.Err(), ErrExtractionFailed)
	assert.Len(t, model.Calls, 2, "exactly one fallback attempt")
}

func TestGeminiExtractor_EmptyModelText(t *testing.T) {
	model := scriptedModel("", "   ")

	res := NewGeminiExtractor(model, "").Extract(context.Background(), testRequest())

	assert.Equal(t, OutcomeFailed, res.Outcome)
}

func TestGeminiExtractor_EmptyInputSkipsModel(t *testing.T) {
	model := scriptedModel()
	req := testRequest()
	req.Text = "  "

	res := NewGeminiExtractor(model, "").Extract(context.Background(), req)

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Empty(t, model.Calls)
}

func TestGeminiExtractor_RejectsBadElements(t *testing.T) {
	model := scriptedModel(`[{"description":"ok","amount":1,"type":"EXPENSE"}, 42, {"description":["x"],"amount":1,"type":"EXPENSE"}]`)

	res := NewGeminiExtractor(model, "").Extract(context.Background(), testRequest())

	assert.Equal(t, OutcomePrimary, res.Outcome)
	assert.Len(t, res.Candidates, 1)
	require.Len(t, res.Rejections, 2)
	assert.Equal(t, 1, res.Rejections[0].Index)
	assert.Equal(t, 2, res.Rejections[1].Index)
	assert.Equal(t, fieldDescription, res.Rejections[1].Field)
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain array", `[1,2]`, `[1,2]`},
		{"fenced json", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"fenced bare", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around object", `Here you go: {"a":1} hope it helps`, `{"a":1}`},
		{"no json", `nothing here`, `nothing here`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanModelJSON(tt.in))
		})
	}
}

func TestDecodeStrict_TrailingData(t *testing.T) {
	_, _, err := decodeStrict(`[] []`)
	assert.Error(t, err)
}

package pipeline

import (
	"context"

	"google.golang.org/genai"
)

// ModelClient is the subset of the genai models service used for extraction.
// *genai.Models satisfies it; tests supply a fake.
type ModelClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Extractor turns free text into raw candidates. Implementations never
// return an error: failure is reported through the result's Outcome.
type Extractor interface {
	Extract(ctx context.Context, req ExtractionRequest) ExtractionResult
}

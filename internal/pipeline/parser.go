package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/ledger-intake/internal/logger"
)

// GeminiExtractor extracts transactions from free text with a Gemini model.
// It makes at most two calls per request: a strict schema-constrained call
// and, if that fails for any reason, one relaxed call with lenient parsing.
type GeminiExtractor struct {
	client ModelClient
	model  string
}

// NewGeminiExtractor creates an extractor around client. An empty model name
// selects DefaultModelName.
func NewGeminiExtractor(client ModelClient, model string) *GeminiExtractor {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiExtractor{client: client, model: model}
}

// NewGeminiClient creates a genai client. With an empty apiKey the client
// configuration is taken from the environment (Vertex AI project/location).
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	cfg := &genai.ClientConfig{}
	if apiKey != "" {
		cfg.APIKey = apiKey
		cfg.Backend = genai.BackendGeminiAPI
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClient: create genai client: %w", err)
	}
	return client, nil
}

// Extract runs the primary attempt and, on failure, exactly one fallback.
func (e *GeminiExtractor) Extract(ctx context.Context, req ExtractionRequest) ExtractionResult {
	log := logger.FromContext(ctx)

	if strings.TrimSpace(req.Text) == "" {
		err := errors.New("empty input text")
		return ExtractionResult{Outcome: OutcomeFailed, PrimaryErr: err, FallbackErr: err}
	}

	var res ExtractionResult

	raw, err := e.generate(ctx, buildPrimaryPrompt(req), primaryConfig())
	if err == nil {
		res.Candidates, res.Rejections, err = decodeStrict(raw)
	}
	if err == nil {
		res.Outcome = OutcomePrimary
		log.Debug().Int("candidates", len(res.Candidates)).Msg("primary extraction succeeded")
		return res
	}
	res.PrimaryErr = err
	log.Warn().Err(err).Msg("primary extraction failed, trying fallback")

	raw, err = e.generate(ctx, buildFallbackPrompt(req), nil)
	if err == nil {
		res.Candidates, res.Rejections, err = decodeLenient(raw)
	}
	if err != nil {
		res.FallbackErr = err
		res.Outcome = OutcomeFailed
		res.Candidates, res.Rejections = nil, nil
		log.Error().Err(err).Msg("fallback extraction failed")
		return res
	}
	res.Outcome = OutcomeFallback
	log.Debug().Int("candidates", len(res.Candidates)).Msg("fallback extraction succeeded")
	return res
}

func (e *GeminiExtractor) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := e.client.GenerateContent(ctx, e.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return "", errors.New("nil response from model")
	}

	rawText := resp.Text()
	if strings.TrimSpace(rawText) == "" {
		return "", errors.New("empty response from model")
	}
	return rawText, nil
}

// primaryConfig constrains the model to a JSON array of transaction objects.
func primaryConfig() *genai.GenerateContentConfig {
	str := &genai.Schema{Type: genai.TypeString}
	return &genai.GenerateContentConfig{
		ResponseMIMEType: jsonMIMEType,
		ResponseSchema: &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					fieldDate:        {Type: genai.TypeString, Description: "YYYY-MM-DD"},
					fieldDescription: str,
					fieldAmount:      {Type: genai.TypeNumber, Description: "positive amount"},
					fieldType: {
						Type: genai.TypeString,
						Enum: []string{"EXPENSE", "INCOME", "INVESTMENT"},
					},
					fieldCategory:    str,
					fieldSubCategory: str,
					fieldAccount:     str,
					fieldUnitDetails: str,
					fieldRemarks:     str,
				},
				Required: []string{fieldDescription, fieldAmount, fieldType},
			},
		},
	}
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return strings.Trim(s, "`")
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only the outermost array or object if there is prose around it.
	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	closer := "]"
	if s[start] == '{' {
		closer = "}"
	}
	if end := strings.LastIndex(s, closer); end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}

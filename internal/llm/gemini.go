package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	genai "google.golang.org/genai"

	"github.com/season-qa/backend/internal/query"
	"github.com/season-qa/backend/pkg/circuitbreaker"
	"github.com/season-qa/backend/pkg/logger"
)

// GeminiClient enriches answers through the Gemini API.
type GeminiClient struct {
	cli         *genai.Client
	model       string
	temperature float32
	cb          *circuitbreaker.CircuitBreaker
}

func NewGeminiClient(ctx context.Context, apiKey, model string, temperature float32) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger.Info("LLM client initialized",
		zap.String("provider", "gemini"),
		zap.String("model", model),
	)

	return &GeminiClient{cli: cli, model: model, temperature: temperature, cb: newBreaker("gemini")}, nil
}

// Enrich implements query.Enricher.
func (g *GeminiClient) Enrich(ctx context.Context, req query.EnrichmentRequest) (string, error) {
	payload, err := BuildPayload(req)
	if err != nil {
		return "", err
	}

	temperature := g.temperature
	var text string

	err = g.cb.Execute(ctx, func() error {
		resp, err := g.cli.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: payload}}}},
			&genai.GenerateContentConfig{
				SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: SystemInstruction}}},
				Temperature:       &temperature,
			},
		)
		if err != nil {
			return fmt.Errorf("failed to generate content: %w", err)
		}

		text = candidateText(resp)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to enrich answer: %w", err)
	}

	return text, nil
}

// candidateText concatenates the text parts of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

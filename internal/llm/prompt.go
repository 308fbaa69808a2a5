package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/season-qa/backend/internal/query"
)

// SystemInstruction is the fixed contract every provider is called with.
const SystemInstruction = `You are an assistant coach summarizing a team's season for the coaching staff.

Rules:
1. Answer ONLY from the facts and notes in the JSON payload. Do not invent players, numbers or opponents.
2. When a fact needed for the answer is missing, write "insufficient data" for it.
3. Bold every player name, e.g. **Jordan Lee**.
4. Do not add citations, source markers, footnotes or links.

Be concise and practical.`

// BuildPayload renders the {question, facts, notes} user message.
func BuildPayload(req query.EnrichmentRequest) (string, error) {
	if req.Notes == nil {
		req.Notes = []query.NoteSnippet{}
	}

	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal enrichment payload: %w", err)
	}
	return string(data), nil
}

type Settings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
}

// NewEnricher builds the configured provider. It returns
// query.ErrEnrichmentUnavailable when no provider can be used; callers treat
// that as "always deterministic".
func NewEnricher(ctx context.Context, s Settings) (query.Enricher, error) {
	provider := strings.ToLower(strings.TrimSpace(s.Provider))
	if provider == "" || provider == "none" || strings.TrimSpace(s.APIKey) == "" {
		return nil, query.ErrEnrichmentUnavailable
	}

	switch provider {
	case "openai":
		return NewClient(s.APIKey, s.BaseURL, s.Model, s.Temperature, s.MaxTokens), nil
	case "gemini":
		client, err := NewGeminiClient(ctx, s.APIKey, s.Model, s.Temperature)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, fmt.Errorf("unsupported llm provider %q", s.Provider)
}

package llm

import (
	"context"
	"encoding/json"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"

	"github.com/season-qa/backend/internal/query"
)

func TestBuildPayload(t *testing.T) {
	payload, err := BuildPayload(query.EnrichmentRequest{
		Question: "Summarize our season",
		Facts:    query.CompactFacts{Team: "varsity", Season: "2025", Record: query.RecordFacts{Wins: 1, Losses: 2}},
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))

	assert.Equal(t, "Summarize our season", decoded["question"])
	assert.Equal(t, []any{}, decoded["notes"])
	facts := decoded["facts"].(map[string]any)
	assert.Equal(t, "varsity", facts["team"])
	assert.Equal(t, 2.0, facts["record"].(map[string]any)["losses"])
}

func TestSystemInstruction(t *testing.T) {
	assert.Contains(t, SystemInstruction, "insufficient data")
	assert.Contains(t, SystemInstruction, "Bold every player name")
	assert.Contains(t, SystemInstruction, "citations")
}

func TestNewEnricher_NotConfigured(t *testing.T) {
	for _, s := range []Settings{
		{Provider: "", APIKey: "key"},
		{Provider: "none", APIKey: "key"},
		{Provider: "openai", APIKey: "  "},
	} {
		enricher, err := NewEnricher(context.Background(), s)
		assert.ErrorIs(t, err, query.ErrEnrichmentUnavailable)
		assert.Nil(t, enricher)
	}

	_, err := NewEnricher(context.Background(), Settings{Provider: "cohere", APIKey: "key"})
	assert.Error(t, err)

	enricher, err := NewEnricher(context.Background(), Settings{Provider: "OpenAI", APIKey: "key", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.IsType(t, &Client{}, enricher)
}

func TestCompletionText(t *testing.T) {
	assert.Empty(t, completionText(openai.ChatCompletionResponse{}))

	flat := openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Content: "flat text"}},
	}}
	assert.Equal(t, "flat text", completionText(flat))

	parts := openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: "**Avery** "},
			{Type: openai.ChatMessagePartTypeImageURL},
			{Type: openai.ChatMessagePartTypeText, Text: "leads."},
		}}},
	}}
	assert.Equal(t, "**Avery** leads.", completionText(parts))
}

func TestCandidateText(t *testing.T) {
	assert.Empty(t, candidateText(nil))
	assert.Empty(t, candidateText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []*genai.Part{{Text: "one "}, nil, {Text: "two"}}}},
	}}
	assert.Equal(t, "one two", candidateText(resp))
}

package query

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/season-qa/backend/internal/metrics"
	"github.com/season-qa/backend/pkg/circuitbreaker"
	"github.com/season-qa/backend/pkg/logger"
)

// Source records which path produced an answer.
type Source string

const (
	SourceEnriched      Source = "enriched"
	SourceDeterministic Source = "deterministic"
)

// Answer is the internal result of the enrichment step. Both sources render
// to the same response shape.
type Answer struct {
	Text   string
	Source Source
	// Reason explains a deterministic answer on a broad question, e.g.
	// "timeout" or "empty_response".
	Reason string
}

// EnrichmentRequest is the payload for one enrichment call.
type EnrichmentRequest struct {
	Question string        `json:"question"`
	Facts    CompactFacts  `json:"facts"`
	Notes    []NoteSnippet `json:"notes"`
}

// Enricher rewrites already-correct facts into prose.
type Enricher interface {
	Enrich(ctx context.Context, req EnrichmentRequest) (string, error)
}

// Orchestrator makes at most one enrichment attempt and falls back to the
// deterministic text on any failure.
type Orchestrator struct {
	enricher Enricher
	timeout  time.Duration
}

// NewOrchestrator accepts a nil enricher, in which case every answer is
// deterministic.
func NewOrchestrator(enricher Enricher, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Orchestrator{enricher: enricher, timeout: timeout}
}

func (o *Orchestrator) Resolve(ctx context.Context, req EnrichmentRequest, fallback string) Answer {
	if o.enricher == nil {
		return o.deterministic(fallback, "not_configured", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	text, err := o.enricher.Enrich(ctx, req)
	if err != nil {
		return o.deterministic(fallback, failureReason(err), err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return o.deterministic(fallback, "empty_response", nil)
	}

	return Answer{Text: text, Source: SourceEnriched}
}

func (o *Orchestrator) deterministic(fallback, reason string, err error) Answer {
	metrics.EnrichmentFailures.WithLabelValues(reason).Inc()

	fields := []zap.Field{zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logger.Debug("Serving deterministic answer", fields...)

	return Answer{Text: fallback, Source: SourceDeterministic, Reason: reason}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrEnrichmentUnavailable):
		return "not_configured"
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "error"
}

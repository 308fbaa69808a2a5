package query

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/season-qa/backend/internal/metrics"
	"github.com/season-qa/backend/internal/storage/models"
	"github.com/season-qa/backend/pkg/logger"
)

// AnswerLog receives one record per served answer.
type AnswerLog interface {
	InsertAnswerRecord(ctx context.Context, record *models.AnswerRecord) error
}

// PathCounter counts served answers outside the process, e.g. in Redis.
type PathCounter interface {
	IncrementMetric(ctx context.Context, metricName string) error
}

type EngineConfig struct {
	DefaultScope      Scope
	MinPasserAttempts int
}

type Engine struct {
	selector     *Selector
	narrator     *Narrator
	orchestrator *Orchestrator
	history      AnswerLog
	counter      PathCounter
	defaults     Scope
	minPasser    float64
}

type AskRequest struct {
	Question string
	TeamID   string
	Season   string
}

type AskResponse struct {
	ID        string
	Answer    string
	Intent    Intent
	Source    Source
	LatencyMS int
}

// NewEngine wires the pipeline. history and counter are optional.
func NewEngine(selector *Selector, orchestrator *Orchestrator, history AnswerLog, counter PathCounter, cfg EngineConfig) *Engine {
	narrator := NewNarrator(cfg.MinPasserAttempts)
	return &Engine{
		selector:     selector,
		narrator:     narrator,
		orchestrator: orchestrator,
		history:      history,
		counter:      counter,
		defaults:     cfg.DefaultScope,
		minPasser:    narrator.minPasserAttempts,
	}
}

func (e *Engine) Answer(ctx context.Context, req AskRequest) (*AskResponse, error) {
	startTime := time.Now()

	question := strings.TrimSpace(req.Question)
	if question == "" {
		metrics.AnswerErrors.WithLabelValues("validation").Inc()
		return nil, ErrEmptyQuestion
	}

	scope := e.scopeFor(req)
	answerID := uuid.New().String()
	class := Classify(question)
	log := logger.With(zap.String("answer_id", answerID))

	log.Info("Answering question",
		zap.String("team_id", scope.TeamID),
		zap.String("season", scope.Season),
		zap.String("intent", string(class.Intent)),
		zap.String("matched", class.Matched),
	)

	data, err := e.selector.Fetch(ctx, scope, question, Needs(class.Intent), class.Narrow)
	if err != nil {
		metrics.AnswerErrors.WithLabelValues("data_unavailable").Inc()
		log.Error("Mandatory season data fetch failed",
			zap.String("intent", string(class.Intent)),
			zap.Error(err),
		)
		return nil, err
	}

	facts := BuildSeasonFacts(scope, data)
	fallback := e.narrator.Narrate(class.Intent, facts)

	answer := Answer{Text: fallback, Source: SourceDeterministic}
	switch {
	case class.Narrow:
	case !facts.hasMatches() && !facts.hasStats():
		// Nothing to enrich; the fixed insufficient-data text is the answer.
		answer.Reason = "no_data"
	default:
		answer = e.orchestrator.Resolve(ctx, EnrichmentRequest{
			Question: question,
			Facts:    Compact(facts, data.Notes, e.minPasser),
			Notes:    Snippets(data.Notes),
		}, fallback)
	}

	latency := time.Since(startTime)
	metrics.AnswerDuration.WithLabelValues(string(class.Intent)).Observe(latency.Seconds())
	metrics.AnswersTotal.WithLabelValues(string(class.Intent), string(answer.Source)).Inc()

	log.Info("Question answered",
		zap.String("intent", string(class.Intent)),
		zap.String("source", string(answer.Source)),
		zap.String("fallback_reason", answer.Reason),
		zap.Int("matches", len(data.Matches)),
		zap.Int("stat_rows", len(data.Stats)),
		zap.Int("notes", len(data.Notes)),
		zap.Duration("latency", latency),
	)

	e.record(ctx, &models.AnswerRecord{
		ID:        answerID,
		TeamID:    scope.TeamID,
		Season:    scope.Season,
		Question:  question,
		Intent:    string(class.Intent),
		Source:    string(answer.Source),
		Answer:    answer.Text,
		LatencyMS: int(latency.Milliseconds()),
		CreatedAt: time.Now(),
	})

	return &AskResponse{
		ID:        answerID,
		Answer:    answer.Text,
		Intent:    class.Intent,
		Source:    answer.Source,
		LatencyMS: int(latency.Milliseconds()),
	}, nil
}

func (e *Engine) scopeFor(req AskRequest) Scope {
	scope := Scope{TeamID: strings.TrimSpace(req.TeamID), Season: strings.TrimSpace(req.Season)}
	if scope.TeamID == "" {
		scope.TeamID = e.defaults.TeamID
	}
	if scope.Season == "" {
		scope.Season = e.defaults.Season
	}
	return scope
}

// record is best effort: the answer has already been produced.
func (e *Engine) record(ctx context.Context, record *models.AnswerRecord) {
	if e.history != nil {
		if err := e.history.InsertAnswerRecord(ctx, record); err != nil {
			logger.Warn("Failed to record answer", zap.String("answer_id", record.ID), zap.Error(err))
		}
	}
	if e.counter != nil {
		if err := e.counter.IncrementMetric(ctx, "answers:"+record.Source); err != nil {
			logger.Warn("Failed to count answer", zap.String("answer_id", record.ID), zap.Error(err))
		}
	}
}

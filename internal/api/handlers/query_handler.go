package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/season-qa/backend/internal/query"
	"github.com/season-qa/backend/internal/storage/models"
	"github.com/season-qa/backend/pkg/logger"
)

// Answerer is the engine as seen by the HTTP layer.
type Answerer interface {
	Answer(ctx context.Context, req query.AskRequest) (*query.AskResponse, error)
}

type AnswerHistory interface {
	GetAnswerHistory(ctx context.Context, teamID string, limit int) ([]models.AnswerRecord, error)
}

// CounterReader exposes the shared answer counters; it may be nil.
type CounterReader interface {
	Metrics(ctx context.Context, prefix string) (map[string]int64, error)
}

type QueryHandler struct {
	engine      Answerer
	history     AnswerHistory
	counters    CounterReader
	defaultTeam string
}

func NewQueryHandler(engine Answerer, history AnswerHistory, counters CounterReader, defaultTeam string) *QueryHandler {
	return &QueryHandler{
		engine:      engine,
		history:     history,
		counters:    counters,
		defaultTeam: defaultTeam,
	}
}

func (h *QueryHandler) HandleAsk(c *fiber.Ctx) error {
	var req struct {
		Question string `json:"question"`
		TeamID   string `json:"team_id"`
		Season   string `json:"season"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Warn("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	response, err := h.engine.Answer(c.UserContext(), query.AskRequest{
		Question: req.Question,
		TeamID:   req.TeamID,
		Season:   req.Season,
	})
	if err != nil {
		return answerError(c, err)
	}

	return c.JSON(fiber.Map{
		"answer": response.Answer,
	})
}

func answerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, query.ErrEmptyQuestion):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question is required",
		})
	case errors.Is(err, query.ErrDataUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Season data is temporarily unavailable",
		})
	}

	logger.Error("Failed to answer question", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to answer question",
	})
}

func (h *QueryHandler) GetAnswerHistory(c *fiber.Ctx) error {
	teamID := c.Query("team_id", h.defaultTeam)
	if teamID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "team_id is required",
		})
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 || limit > 200 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must be between 1 and 200",
		})
	}

	records, err := h.history.GetAnswerHistory(c.UserContext(), teamID, limit)
	if err != nil {
		logger.Error("Failed to load answer history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load answer history",
		})
	}

	history := make([]fiber.Map, 0, len(records))
	for _, r := range records {
		history = append(history, fiber.Map{
			"id":         r.ID,
			"question":   r.Question,
			"intent":     r.Intent,
			"source":     r.Source,
			"season":     r.Season,
			"latency_ms": r.LatencyMS,
			"created_at": r.CreatedAt.Unix(),
		})
	}

	return c.JSON(fiber.Map{
		"history": history,
	})
}

func (h *QueryHandler) GetAnswerCounts(c *fiber.Ctx) error {
	if h.counters == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Shared counters are not enabled",
		})
	}

	counts, err := h.counters.Metrics(c.UserContext(), "answers:")
	if err != nil {
		logger.Error("Failed to read answer counters", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read answer counters",
		})
	}

	return c.JSON(fiber.Map{
		"counts": counts,
	})
}

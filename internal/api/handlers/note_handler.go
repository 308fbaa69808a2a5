package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/season-qa/backend/internal/ingestion"
	"github.com/season-qa/backend/pkg/logger"
)

type NoteHandler struct {
	processor   *ingestion.Processor
	defaultTeam string
}

func NewNoteHandler(processor *ingestion.Processor, defaultTeam string) *NoteHandler {
	return &NoteHandler{
		processor:   processor,
		defaultTeam: defaultTeam,
	}
}

func (h *NoteHandler) SaveNote(c *fiber.Ctx) error {
	var req struct {
		ID     string   `json:"id"`
		TeamID string   `json:"team_id"`
		Title  string   `json:"title"`
		Body   string   `json:"body"`
		Tags   []string `json:"tags"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Warn("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.TeamID == "" {
		req.TeamID = h.defaultTeam
	}

	note, err := h.processor.ProcessNote(c.UserContext(), ingestion.NoteInput{
		ID:     req.ID,
		TeamID: req.TeamID,
		Title:  req.Title,
		Body:   req.Body,
		Tags:   req.Tags,
	})
	if errors.Is(err, ingestion.ErrEmptyNote) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title and body are required",
		})
	}
	if err != nil {
		logger.Error("Failed to save note", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save note",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":   note.ID,
		"tags": note.Tags,
	})
}

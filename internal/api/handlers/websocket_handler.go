package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/season-qa/backend/internal/query"
	"github.com/season-qa/backend/pkg/logger"
)

type WebSocketHandler struct {
	engine Answerer
}

func NewWebSocketHandler(engine Answerer) *WebSocketHandler {
	return &WebSocketHandler{
		engine: engine,
	}
}

// jsonConn is the part of a websocket connection the handler uses.
type jsonConn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
}

type clientQuery struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	TeamID  string `json:"team_id"`
	Season  string `json:"season"`
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Debug("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Debug("WebSocket connection closed")
	}()

	h.serve(c)
}

// serve answers queries until the client goes away. Reads happen on their
// own goroutine so a closed socket cancels the answer in flight.
func (h *WebSocketHandler) serve(c jsonConn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs := make(chan clientQuery, 1)
	go func() {
		defer close(msgs)
		defer cancel()
		for {
			var msg clientQuery
			if err := c.ReadJSON(&msg); err != nil {
				logger.Debug("WebSocket read ended", zap.Error(err))
				return
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for msg := range msgs {
		if msg.Type != "query" {
			continue
		}

		err := h.streamResponse(ctx, c, query.AskRequest{
			Question: msg.Content,
			TeamID:   msg.TeamID,
			Season:   msg.Season,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("Failed to stream answer", zap.Error(err))
			h.sendError(c, clientMessage(err))
		}
	}
}

func (h *WebSocketHandler) streamResponse(ctx context.Context, c jsonConn, req query.AskRequest) error {
	if err := h.sendChunk(c, "status", "Processing question..."); err != nil {
		return err
	}

	response, err := h.engine.Answer(ctx, req)
	if err != nil {
		return err
	}

	words := splitIntoWords(response.Answer)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 && word != "\n" {
			chunk += " "
		}

		if err := h.sendChunk(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":       "complete",
		"message_id": response.ID,
		"answer":     response.Answer,
	})
}

func (h *WebSocketHandler) sendChunk(c jsonConn, msgType, content string) error {
	msg := map[string]interface{}{
		"type":    msgType,
		"content": content,
	}

	return c.WriteJSON(msg)
}

func (h *WebSocketHandler) sendError(c jsonConn, errorMsg string) {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	c.WriteJSON(msg)
}

func clientMessage(err error) string {
	switch {
	case errors.Is(err, query.ErrEmptyQuestion):
		return "Question is required"
	case errors.Is(err, query.ErrDataUnavailable):
		return "Season data is temporarily unavailable"
	}
	return "Failed to answer question"
}

// splitIntoWords keeps newlines as their own tokens so clients can rebuild
// the answer's line structure.
func splitIntoWords(text string) []string {
	var words []string
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			words = append(words, "\n")
		}
		words = append(words, strings.Fields(line)...)
	}
	return words
}

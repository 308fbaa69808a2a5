package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Config struct {
	MaxQuestionLength   int
	MaxNoteBodyLength   int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware rejects malformed bodies before they reach the handlers. It
// checks the content type of every write and the size of questions and
// notes. The handlers still own the "required field" checks.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxQuestionLength <= 0 {
		cfg.MaxQuestionLength = 1000
	}
	if cfg.MaxNoteBodyLength <= 0 {
		cfg.MaxNoteBodyLength = 100000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost && c.Method() != fiber.MethodPut {
			return c.Next()
		}

		contentType := c.Get(fiber.HeaderContentType)
		if contentType != "" && !allowedType(contentType, cfg.AllowedContentTypes) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Unsupported content type",
			})
		}

		switch {
		case strings.HasSuffix(c.Path(), "/ask"):
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			if raw, present := req["question"]; present {
				question, ok := raw.(string)
				if !ok {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Question must be a string",
					})
				}
				if utf8.RuneCountInString(question) > cfg.MaxQuestionLength {
					cfg.Logger.Warn("Question too long",
						zap.String("ip", c.IP()),
						zap.Int("length", utf8.RuneCountInString(question)),
					)
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Question exceeds maximum length",
					})
				}
			}

		case strings.HasSuffix(c.Path(), "/notes"):
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			if body, ok := req["body"].(string); ok && len(body) > cfg.MaxNoteBodyLength {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Note body exceeds maximum size",
				})
			}
		}

		return c.Next()
	}
}

func allowedType(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}

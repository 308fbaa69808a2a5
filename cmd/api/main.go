package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/season-qa/backend/internal/api/handlers"
	"github.com/season-qa/backend/internal/cache/redis"
	"github.com/season-qa/backend/internal/ingestion"
	"github.com/season-qa/backend/internal/llm"
	"github.com/season-qa/backend/internal/metrics"
	"github.com/season-qa/backend/internal/middleware/ratelimit"
	"github.com/season-qa/backend/internal/middleware/security"
	"github.com/season-qa/backend/internal/middleware/validation"
	"github.com/season-qa/backend/internal/query"
	"github.com/season-qa/backend/internal/storage/sqlite"
	"github.com/season-qa/backend/pkg/config"
	appLogger "github.com/season-qa/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Season Q&A API Server",
		zap.String("default_team", cfg.Engine.DefaultTeam),
		zap.String("default_season", cfg.Engine.DefaultSeason),
	)

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	// Redis is optional. The interfaces stay nil when it is off so the
	// engine and handlers can tell.
	var counter query.PathCounter
	var counterReader handlers.CounterReader
	if cfg.Redis.Host != "" {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, answer counters disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			counter = redisClient
			counterReader = redisClient
		}
	}

	var enricher query.Enricher
	if !cfg.Engine.EnrichmentDisabled {
		enricher, err = llm.NewEnricher(context.Background(), llm.Settings{
			Provider:    cfg.LLM.Provider,
			Model:       cfg.LLM.Model,
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		})
		switch {
		case errors.Is(err, query.ErrEnrichmentUnavailable):
			appLogger.Warn("No LLM provider configured, answers will be deterministic")
			enricher = nil
		case err != nil:
			appLogger.Fatal("Failed to create LLM client", zap.Error(err))
		}
	}

	selector := query.NewSelector(sqliteClient, query.SelectorConfig{
		NoteTags:      cfg.Engine.NoteTags,
		MaxNotes:      cfg.Engine.MaxNotes,
		FetchAttempts: cfg.Engine.FetchAttempts,
		IsTransient:   sqlite.IsTransient,
	})
	orchestrator := query.NewOrchestrator(enricher, cfg.Engine.EnrichmentDeadline())
	queryEngine := query.NewEngine(selector, orchestrator, sqliteClient, counter, query.EngineConfig{
		DefaultScope: query.Scope{
			TeamID: cfg.Engine.DefaultTeam,
			Season: cfg.Engine.DefaultSeason,
		},
		MinPasserAttempts: cfg.Engine.MinPasserAttempts,
	})
	processor := ingestion.NewProcessor(sqliteClient)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	allowOrigins := "*"
	if len(cfg.Server.AllowedOrigins) > 0 {
		allowOrigins = strings.Join(cfg.Server.AllowedOrigins, ",")
	}

	rateLimiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer rateLimiter.Stop()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, X-Client-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IsDevelopment:  cfg.Server.Development,
	}))

	queryHandler := handlers.NewQueryHandler(queryEngine, sqliteClient, counterReader, cfg.Engine.DefaultTeam)
	noteHandler := handlers.NewNoteHandler(processor, cfg.Engine.DefaultTeam)
	wsHandler := handlers.NewWebSocketHandler(queryEngine)

	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api/v1")
	api.Use(rateLimiter.Middleware())
	api.Use(validation.Middleware(validation.Config{
		MaxQuestionLength: cfg.Engine.MaxQuestionLength,
		Logger:            appLogger.GetLogger(),
	}))

	api.Post("/ask", queryHandler.HandleAsk)
	api.Get("/answers", queryHandler.GetAnswerHistory)
	api.Get("/answers/counts", queryHandler.GetAnswerCounts)

	api.Post("/notes", noteHandler.SaveNote)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws", websocket.New(wsHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if err := sqliteClient.Ping(ctx); err != nil {
			appLogger.Warn("Readiness check failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
			})
		}
		return c.JSON(fiber.Map{
			"status":     "ready",
			"enrichment": enricher != nil,
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Warn("Shutdown did not complete cleanly", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

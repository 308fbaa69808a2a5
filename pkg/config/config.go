package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Engine    EngineConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins []string
	Development    bool
}

type SQLiteConfig struct {
	Path string
}

// RedisConfig is optional; an empty Host disables the shared answer counters.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
}

// EngineConfig holds the request defaults and tuning knobs of the answer engine.
// DefaultTeam and DefaultSeason are only used when a request omits them.
type EngineConfig struct {
	DefaultTeam        string
	DefaultSeason      string
	MinPasserAttempts  int
	NoteTags           []string
	MaxNotes           int
	FetchAttempts      int
	EnrichmentTimeout  int
	EnrichmentDisabled bool
	MaxQuestionLength  int
}

// EnrichmentDeadline bounds the single enrichment attempt per answer.
func (e EngineConfig) EnrichmentDeadline() time.Duration {
	return time.Duration(e.EnrichmentTimeout) * time.Second
}

type RateLimitConfig struct {
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/season-qa")

	viper.SetEnvPrefix("SEASONQA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.MinPasserAttempts < 0 {
		return fmt.Errorf("engine.minPasserAttempts must not be negative")
	}
	if c.Engine.EnrichmentTimeout < 1 {
		return fmt.Errorf("engine.enrichmentTimeout must be at least 1 second")
	}
	if c.Engine.FetchAttempts < 1 {
		return fmt.Errorf("engine.fetchAttempts must be at least 1")
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "", "none", "openai", "gemini":
	default:
		return fmt.Errorf("unsupported llm.provider %q", c.LLM.Provider)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 60)
	viper.SetDefault("server.bodyLimit", 1048576)
	viper.SetDefault("server.allowedOrigins", []string{})
	viper.SetDefault("server.development", false)

	viper.SetDefault("sqlite.path", "./data/season.db")

	viper.SetDefault("redis.host", "")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 900)

	viper.SetDefault("engine.defaultTeam", "varsity")
	viper.SetDefault("engine.defaultSeason", "2025")
	viper.SetDefault("engine.minPasserAttempts", 25)
	viper.SetDefault("engine.noteTags", []string{"roster"})
	viper.SetDefault("engine.maxNotes", 8)
	viper.SetDefault("engine.fetchAttempts", 2)
	viper.SetDefault("engine.enrichmentTimeout", 20)
	viper.SetDefault("engine.enrichmentDisabled", false)
	viper.SetDefault("engine.maxQuestionLength", 1000)

	viper.SetDefault("ratelimit.maxRequestsPerMinute", 60)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		LLM:    LLMConfig{Provider: "openai"},
		Engine: EngineConfig{MinPasserAttempts: 25, FetchAttempts: 2, EnrichmentTimeout: 20},
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	for _, provider := range []string{"", "none", "Gemini"} {
		cfg := validConfig()
		cfg.LLM.Provider = provider
		assert.NoError(t, cfg.Validate(), provider)
	}

	cfg = validConfig()
	cfg.LLM.Provider = "mistral"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Engine.FetchAttempts = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Engine.EnrichmentTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Engine.MinPasserAttempts = -1
	assert.Error(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SEASONQA_ENGINE_DEFAULTTEAM", "jv")

	cfg, err := Load()
	if !assert.NoError(t, err) {
		return
	}

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "jv", cfg.Engine.DefaultTeam)
	assert.Equal(t, "2025", cfg.Engine.DefaultSeason)
	assert.Equal(t, 25, cfg.Engine.MinPasserAttempts)
	assert.Equal(t, []string{"roster"}, cfg.Engine.NoteTags)
	assert.Empty(t, cfg.Redis.Host)
}

func TestLoadEnrichmentTimeoutFromEnv(t *testing.T) {
	t.Setenv("SEASONQA_ENGINE_ENRICHMENTTIMEOUT", "5")

	cfg, err := Load()
	if !assert.NoError(t, err) {
		return
	}

	assert.Equal(t, 5*time.Second, cfg.Engine.EnrichmentDeadline())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedEnv = []string{
	"APP_ENV", "PORT", "DB_URL", "REDIS_URL", "QUOTA_BACKEND", "DAILY_QUESTION_LIMIT",
	"DEFAULT_QUESTION_COUNT", "SCORING_PROVIDER", "OPENAI_API_KEY", "OPENROUTER_API_KEY",
	"ANTHROPIC_API_KEY", "GEMINI_API_KEY", "KAFKA_BROKERS", "METRICS_USERNAME",
	"METRICS_PASSWORD_HASH", "HTTP_READ_TIMEOUT", "OTEL_SERVICE_NAME", "AUTH_JWT_SECRET",
}

// clearEnvVars unsets variables for the duration of the test; t.Setenv restores them.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, k := range managedEnv {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnvVars(t)

	cfg, err := LoadFiles()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "postgres", cfg.QuotaBackend)
	assert.Equal(t, 20, cfg.DailyQuestionLimit)
	assert.Equal(t, 5, cfg.DefaultQuestionCount)
	assert.Equal(t, "interview-coach", cfg.OTELServiceName)
	assert.Equal(t, 20*time.Second, cfg.ScoringTimeout)
	assert.Equal(t, 3000, cfg.ScoringMaxPromptTokens)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.ScoringEnabled())
	assert.False(t, cfg.EventsEnabled())
	assert.False(t, cfg.RedisQuota())
	assert.False(t, cfg.MetricsAuthEnabled())
	assert.True(t, cfg.IsDev())
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("DAILY_QUESTION_LIMIT", "12")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("SCORING_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("QUOTA_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadFiles()
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 12, cfg.DailyLimit())
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.ScoringEnabled())
	assert.True(t, cfg.EventsEnabled())
	assert.True(t, cfg.RedisQuota())
}

func TestLoad_ErrorOnBadDuration(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("HTTP_READ_TIMEOUT", "bad")

	_, err := LoadFiles()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=config.Load")
}

func TestLoadFiles_DotenvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnvVars(t)
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(p, []byte("PORT=7070\nOTEL_SERVICE_NAME=from-file\n"), 0o600))
	t.Setenv("PORT", "9191")

	cfg, err := LoadFiles(p, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Port)
	assert.Equal(t, "from-file", cfg.OTELServiceName)
	// godotenv sets process env; drop it so later tests see defaults
	require.NoError(t, os.Unsetenv("OTEL_SERVICE_NAME"))
}

func TestDailyLimit_InvalidFallsBackToDefault(t *testing.T) {
	for _, v := range []int{0, -3} {
		assert.Equal(t, DefaultDailyQuestionLimit, Config{DailyQuestionLimit: v}.DailyLimit())
	}
	assert.Equal(t, 7, Config{DailyQuestionLimit: 7}.DailyLimit())
	assert.Equal(t, DefaultQuestionCount, Config{}.QuestionCount())
}

func TestScoringEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"none", Config{}, false},
		{"openai without key", Config{ScoringProvider: "openai"}, false},
		{"openai", Config{ScoringProvider: "OpenAI", OpenAIAPIKey: "k"}, true},
		{"openrouter", Config{ScoringProvider: "openrouter", OpenRouterAPIKey: "k"}, true},
		{"gemini", Config{ScoringProvider: "gemini", GeminiAPIKey: "k"}, true},
		{"unknown", Config{ScoringProvider: "llama.cpp", OpenAIAPIKey: "k"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ScoringEnabled())
		})
	}
}

func TestGetAIBackoffConfig_TestEnvIsShort(t *testing.T) {
	maxElapsed, initial, _, _ := Config{AppEnv: "test"}.GetAIBackoffConfig()
	assert.LessOrEqual(t, maxElapsed, 2*time.Second)
	assert.Equal(t, 10*time.Millisecond, initial)

	cfg := Config{AppEnv: "prod", AIBackoffMaxElapsedTime: time.Minute, AIBackoffMultiplier: 3}
	maxElapsed, _, _, mult := cfg.GetAIBackoffConfig()
	assert.Equal(t, time.Minute, maxElapsed)
	assert.Equal(t, 3.0, mult)
}

func TestLocalUser(t *testing.T) {
	assert.Equal(t, "dev-user", Config{}.LocalUser())
	assert.Equal(t, "dev-user", Config{DevUserID: "  "}.LocalUser())
	assert.Equal(t, "alice", Config{DevUserID: " alice "}.LocalUser())
}

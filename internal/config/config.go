// Package config reads harness settings from the environment.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/openshift/lightspeed-eval/internal/query"
)

const (
	DefaultQueryURL       = "https://127.0.0.1:8080/v1/query"
	DefaultQueryTimeout   = 60 * time.Second
	DefaultJudgeModel     = "gpt-4o"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultJudgeRPM       = 60
	DefaultJudgeTimeout   = 60 * time.Second
)

// Config holds every setting the CLI and the live eval tests need.
type Config struct {
	Query query.Config

	OpenAIAPIKey   string
	OpenAIBaseURL  string
	JudgeModel     string
	EmbeddingModel string
	JudgeRPM       int
	JudgeRetries   int
	JudgeTimeout   time.Duration

	CacheDir      string
	CacheDisabled bool
	HistoryDB     string

	LogLevel slog.Level
}

// FromEnv builds a Config from LS_* and EVAL_* environment variables.
// Unset or unparsable values fall back to defaults.
func FromEnv() Config {
	apiKey := os.Getenv("EVAL_OPENAI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	return Config{
		Query: query.Config{
			Endpoint:      envString("LS_QUERY_URL", DefaultQueryURL),
			Credential:    os.Getenv("LS_API_KEY"),
			SkipTLSVerify: envBool("LS_SKIP_TLS_VERIFY", false),
			Timeout:       envDuration("LS_QUERY_TIMEOUT", DefaultQueryTimeout),
		},
		OpenAIAPIKey:   apiKey,
		OpenAIBaseURL:  os.Getenv("EVAL_OPENAI_BASE_URL"),
		JudgeModel:     envString("EVAL_JUDGE_MODEL", DefaultJudgeModel),
		EmbeddingModel: envString("EVAL_EMBEDDING_MODEL", DefaultEmbeddingModel),
		JudgeRPM:       envPositiveInt("EVAL_JUDGE_RPM", DefaultJudgeRPM),
		JudgeRetries:   envInt("EVAL_JUDGE_RETRIES", 0),
		JudgeTimeout:   time.Duration(envInt("EVAL_JUDGE_TIMEOUT_S", int(DefaultJudgeTimeout/time.Second))) * time.Second,
		CacheDir:       envString("EVAL_CACHE_DIR", defaultCacheDir()),
		CacheDisabled:  envBool("EVAL_CACHE_DISABLED", false),
		HistoryDB:      os.Getenv("EVAL_HISTORY_DB"),
		LogLevel:       parseLevel(os.Getenv("EVAL_LOG_LEVEL")),
	}
}

// JudgeEnabled reports whether a judge credential is configured.
func (c Config) JudgeEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// CachePath returns the SQLite file shared by the judge and embedding caches.
func (c Config) CachePath() string {
	return filepath.Join(c.CacheDir, "lightspeed-eval.db")
}

func defaultCacheDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".lightspeed-eval", "cache")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt reads an int from an env var with a fallback default.
func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// envPositiveInt is envInt for settings where zero is meaningless.
func envPositiveInt(key string, fallback int) int {
	if n := envInt(key, fallback); n > 0 {
		return n
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	// Bare integers are seconds.
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}

// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string

	MirrorDSN     string
	HistoryDBPath string

	OpenAIAPIKey  string
	OpenAIBaseURL string

	GenerationModel       string
	GenerationMaxTokens   int
	GenerationTemperature float64
	SynthesisModel        string
	SynthesisMaxTokens    int
	SynthesisTemperature  float64
	EmbeddingModel        string

	StatementTimeout time.Duration
	SessionTTL       time.Duration

	TranscriptSource string
	TranscriptLimit  int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),

		MirrorDSN:     getEnv("MIRROR_DATABASE_URL", ""),
		HistoryDBPath: getEnv("HISTORY_DB_PATH", "./data/history.db"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com"),

		GenerationModel:       getEnv("GENERATION_MODEL", "gpt-4.1-mini"),
		GenerationMaxTokens:   getEnvInt("GENERATION_MAX_TOKENS", 500),
		GenerationTemperature: getEnvFloat("GENERATION_TEMPERATURE", 0),
		SynthesisModel:        getEnv("SYNTHESIS_MODEL", "gpt-4.1-mini"),
		SynthesisMaxTokens:    getEnvInt("SYNTHESIS_MAX_TOKENS", 800),
		SynthesisTemperature:  getEnvFloat("SYNTHESIS_TEMPERATURE", 0.3),
		EmbeddingModel:        getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),

		StatementTimeout: time.Duration(getEnvInt("STATEMENT_TIMEOUT_SECONDS", 15)) * time.Second,
		SessionTTL:       time.Duration(getEnvInt("SESSION_TTL_MINUTES", 60)) * time.Minute,

		TranscriptSource: getEnv("TRANSCRIPT_SOURCE", "salesforce"),
		TranscriptLimit:  getEnvInt("TRANSCRIPT_LIMIT", 15),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.MirrorDSN == "" {
		return fmt.Errorf("MIRROR_DATABASE_URL cannot be empty")
	}
	if c.HistoryDBPath == "" {
		return fmt.Errorf("HISTORY_DB_PATH cannot be empty")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY cannot be empty")
	}
	if c.GenerationMaxTokens <= 0 {
		return fmt.Errorf("GENERATION_MAX_TOKENS must be > 0")
	}
	if c.SynthesisMaxTokens <= 0 {
		return fmt.Errorf("SYNTHESIS_MAX_TOKENS must be > 0")
	}
	if c.StatementTimeout <= 0 {
		return fmt.Errorf("STATEMENT_TIMEOUT_SECONDS must be > 0")
	}
	if c.TranscriptLimit <= 0 {
		return fmt.Errorf("TRANSCRIPT_LIMIT must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

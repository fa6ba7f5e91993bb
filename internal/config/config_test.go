package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MIRROR_DATABASE_URL", "postgres://localhost/mirror")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.GenerationModel != "gpt-4.1-mini" {
		t.Errorf("generation model = %q", cfg.GenerationModel)
	}
	if cfg.GenerationTemperature != 0 {
		t.Errorf("generation temperature = %v", cfg.GenerationTemperature)
	}
	if cfg.SynthesisTemperature != 0.3 {
		t.Errorf("synthesis temperature = %v", cfg.SynthesisTemperature)
	}
	if cfg.StatementTimeout != 15*time.Second {
		t.Errorf("statement timeout = %v", cfg.StatementTimeout)
	}
	if cfg.TranscriptSource != "salesforce" || cfg.TranscriptLimit != 15 {
		t.Errorf("transcript defaults = (%q, %d)", cfg.TranscriptSource, cfg.TranscriptLimit)
	}
	if !cfg.IsDevelopment() {
		t.Error("empty FRONTEND_URL should mean development mode")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SYNTHESIS_MAX_TOKENS", "1200")
	t.Setenv("STATEMENT_TIMEOUT_SECONDS", "30")
	t.Setenv("FRONTEND_URL", "https://insights.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.SynthesisMaxTokens != 1200 {
		t.Errorf("synthesis max tokens = %d", cfg.SynthesisMaxTokens)
	}
	if cfg.StatementTimeout != 30*time.Second {
		t.Errorf("statement timeout = %v", cfg.StatementTimeout)
	}
	if cfg.IsDevelopment() {
		t.Error("production frontend URL should not be development mode")
	}
}

func TestLoadRequiresMirrorDSN(t *testing.T) {
	t.Setenv("MIRROR_DATABASE_URL", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing mirror DSN")
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("MIRROR_DATABASE_URL", "postgres://localhost/mirror")
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestGetEnvIntMalformed(t *testing.T) {
	t.Setenv("GENERATION_MAX_TOKENS", "not-a-number")
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GenerationMaxTokens != 500 {
		t.Errorf("malformed int should fall back, got %d", cfg.GenerationMaxTokens)
	}
}

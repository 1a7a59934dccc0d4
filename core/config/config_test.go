package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tailored-agentic-units/percept/core/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	if cfg.Session.FrameLimit != 200 {
		t.Errorf("FrameLimit = %d, want 200", cfg.Session.FrameLimit)
	}
	if cfg.Session.StepLimit != 1000 {
		t.Errorf("StepLimit = %d, want 1000", cfg.Session.StepLimit)
	}
	if cfg.Locate.TimeoutSeconds != 10 {
		t.Errorf("TimeoutSeconds = %d, want 10", cfg.Locate.TimeoutSeconds)
	}
	if cfg.Session.IdleTTLSeconds != 0 {
		t.Error("idle eviction should be disabled by default")
	}
	if cfg.Agent.Name != "Assistant" {
		t.Errorf("Agent.Name = %q, want Assistant", cfg.Agent.Name)
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Merge(&config.Config{
		Session: config.SessionConfig{FrameLimit: 50},
		Agent:   config.AgentConfig{Model: "qwen2.5vl:7b"},
	})

	if cfg.Session.FrameLimit != 50 {
		t.Errorf("FrameLimit = %d, want 50", cfg.Session.FrameLimit)
	}
	if cfg.Agent.Model != "qwen2.5vl:7b" {
		t.Errorf("Agent.Model = %q", cfg.Agent.Model)
	}
	// Untouched fields keep their defaults.
	if cfg.Session.StepLimit != 1000 {
		t.Errorf("StepLimit = %d, want 1000", cfg.Session.StepLimit)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := config.DefaultConfig()

	if err := cfg.Validate(); !errors.Is(err, config.ErrMissingAPIKey) {
		t.Errorf("error = %v, want ErrMissingAPIKey", err)
	}

	cfg.Completion.APIKey = "k"
	if err := cfg.Validate(); !errors.Is(err, config.ErrMissingTaskURL) {
		t.Errorf("error = %v, want ErrMissingTaskURL", err)
	}

	cfg.Locate.URL = "http://localhost:9000/task"
	if err := cfg.Validate(); err != nil {
		t.Errorf("complete config should validate, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "percept.json")
	body := `{"session":{"frame_limit":25},"locate":{"url":"http://tasks.local/run"}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(config.EnvAPIKey, "env-key")
	t.Setenv(config.EnvTaskURL, "")
	t.Setenv(config.EnvLangURL, "http://llm.local/v1")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Session.FrameLimit != 25 {
		t.Errorf("FrameLimit = %d, want 25", cfg.Session.FrameLimit)
	}
	if cfg.Completion.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.Completion.APIKey)
	}
	if cfg.Completion.BaseURL != "http://llm.local/v1" {
		t.Errorf("BaseURL = %q", cfg.Completion.BaseURL)
	}
	if cfg.Locate.URL != "http://tasks.local/run" {
		t.Errorf("Locate.URL = %q", cfg.Locate.URL)
	}
}

func TestLoad_MissingCredentialsFailsFast(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvTaskURL, "")

	if _, err := config.Load(""); err == nil {
		t.Error("Load without credentials should fail")
	}
}

// Package config holds initialization parameters for all subsystems.
// Values merge in three layers: defaults, an optional JSON config file,
// and environment variables for service credentials.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Environment variables carrying service credentials. Credentials never
// live in config files.
const (
	EnvAPIKey  = "PERCEPT_API_KEY"
	EnvTaskURL = "PERCEPT_TASK_URL"
	EnvLangURL = "PERCEPT_LANG_URL"
)

// Configuration errors are fatal at startup: the process serves no session
// without its external services.
var (
	ErrMissingAPIKey  = errors.New("missing API key: set " + EnvAPIKey)
	ErrMissingTaskURL = errors.New("missing localization endpoint: set " + EnvTaskURL + " or locate.url")
)

// CompletionConfig points at the OpenAI-compatible vision-completion
// service shared by the reasoning runtime and the vision tools.
type CompletionConfig struct {
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model,omitempty"`

	// APIKey comes from the environment, never from the file.
	APIKey string `json:"-"`
}

// LocateConfig points at the object-localization task-dispatch service.
type LocateConfig struct {
	URL            string `json:"url,omitempty"`
	Task           string `json:"task,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// Timeout returns the request timeout as a duration.
func (c LocateConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SessionConfig bounds the per-session buffers and the intake queue.
// IdleTTLSeconds enables idle-session eviction when positive; zero keeps
// sessions for the process lifetime.
type SessionConfig struct {
	FrameLimit     int `json:"frame_limit,omitempty"`
	StepLimit      int `json:"step_limit,omitempty"`
	IntakeBuffer   int `json:"intake_buffer,omitempty"`
	FPS            int `json:"fps,omitempty"`
	IdleTTLSeconds int `json:"idle_ttl_seconds,omitempty"`

	// ArchiveDir, when set together with IdleTTLSeconds, persists evicted
	// sessions as JSON files under this directory.
	ArchiveDir string `json:"archive_dir,omitempty"`
}

// IdleTTL returns the idle eviction window, zero when eviction is disabled.
func (c SessionConfig) IdleTTL() time.Duration {
	return time.Duration(c.IdleTTLSeconds) * time.Second
}

// AgentConfig describes the conversational agent bound to each session.
type AgentConfig struct {
	Name          string `json:"name,omitempty"`
	Model         string `json:"model,omitempty"`
	Instructions  string `json:"instructions,omitempty"`
	MaxIterations int    `json:"max_iterations,omitempty"`
}

// ServerConfig holds the HTTP boundary parameters.
type ServerConfig struct {
	Addr string `json:"addr,omitempty"`
}

// Config aggregates all subsystem sections.
type Config struct {
	Completion CompletionConfig `json:"completion"`
	Locate     LocateConfig     `json:"locate"`
	Session    SessionConfig    `json:"session"`
	Agent      AgentConfig      `json:"agent"`
	Server     ServerConfig     `json:"server"`
}

const defaultInstructions = "As a helpful assistant, your functions include answering questions, " +
	"Optical Character Recognition (OCR), image caption generation, and object localization " +
	"within images. Additionally, you can set reminders based on user requests. A key " +
	"requirement for setting reminders is to phrase the reminder check as a question that " +
	"verifies the condition."

// DefaultConfig returns a Config with sensible defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Completion: CompletionConfig{
			Model: "gemma3:4b",
		},
		Locate: LocateConfig{
			Task:           "grounding-dino",
			TimeoutSeconds: 10,
		},
		Session: SessionConfig{
			FrameLimit:   200,
			StepLimit:    1000,
			IntakeBuffer: 64,
			FPS:          10,
		},
		Agent: AgentConfig{
			Name:          "Assistant",
			Model:         "gemma3:4b",
			Instructions:  defaultInstructions,
			MaxIterations: 10,
		},
		Server: ServerConfig{
			Addr: ":17788",
		},
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	mergeString(&c.Completion.BaseURL, source.Completion.BaseURL)
	mergeString(&c.Completion.Model, source.Completion.Model)
	mergeString(&c.Completion.APIKey, source.Completion.APIKey)

	mergeString(&c.Locate.URL, source.Locate.URL)
	mergeString(&c.Locate.Task, source.Locate.Task)
	mergeInt(&c.Locate.TimeoutSeconds, source.Locate.TimeoutSeconds)

	mergeInt(&c.Session.FrameLimit, source.Session.FrameLimit)
	mergeInt(&c.Session.StepLimit, source.Session.StepLimit)
	mergeInt(&c.Session.IntakeBuffer, source.Session.IntakeBuffer)
	mergeInt(&c.Session.FPS, source.Session.FPS)
	mergeInt(&c.Session.IdleTTLSeconds, source.Session.IdleTTLSeconds)
	mergeString(&c.Session.ArchiveDir, source.Session.ArchiveDir)

	mergeString(&c.Agent.Name, source.Agent.Name)
	mergeString(&c.Agent.Model, source.Agent.Model)
	mergeString(&c.Agent.Instructions, source.Agent.Instructions)
	mergeInt(&c.Agent.MaxIterations, source.Agent.MaxIterations)

	mergeString(&c.Server.Addr, source.Server.Addr)
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func mergeInt(dst *int, src int) {
	if src > 0 {
		*dst = src
	}
}

// FromEnv overlays service credentials and endpoints from the environment.
func (c *Config) FromEnv() {
	mergeString(&c.Completion.APIKey, os.Getenv(EnvAPIKey))
	mergeString(&c.Locate.URL, os.Getenv(EnvTaskURL))
	mergeString(&c.Completion.BaseURL, os.Getenv(EnvLangURL))
}

// Validate reports the first missing required external-service parameter.
func (c *Config) Validate() error {
	if c.Completion.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Locate.URL == "" {
		return ErrMissingTaskURL
	}
	return nil
}

// Load reads a JSON config file, merges it over defaults, overlays the
// environment, and validates the result. An empty filename skips the file
// layer.
func Load(filename string) (*Config, error) {
	cfg := DefaultConfig()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		var loaded Config
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		cfg.Merge(&loaded)
	}

	cfg.FromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

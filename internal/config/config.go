// Package config assembles the agent's settings from defaults, a .env file,
// an optional config file and AGT_ environment variables.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/petasbytes/agentloop/internal/checkpoint"
	"github.com/petasbytes/agentloop/internal/provider"
)

type Config struct {
	Provider         string `mapstructure:"provider"`
	ProviderEndpoint string `mapstructure:"provider_endpoint"`
	APIKey           string `mapstructure:"api_key"`
	ModelID          string `mapstructure:"model_id"`
	MaxTokens        int    `mapstructure:"max_tokens"`
	RetryBound       int    `mapstructure:"retry_bound"`
	IterationBound   int    `mapstructure:"iteration_bound"`
	// TokenBudget caps the estimated size of the context sent per model call; 0 disables windowing.
	TokenBudget  int    `mapstructure:"token_budget"`
	SystemPrompt string `mapstructure:"system_prompt"`
	SessionID    string `mapstructure:"session_id"`

	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Tools      ToolsConfig      `mapstructure:"tools"`
	Log        LogConfig        `mapstructure:"log"`

	ObserveJSON  bool   `mapstructure:"observe_json"`
	ArtifactsDir string `mapstructure:"artifacts_dir"`
}

type CheckpointConfig struct {
	Backend       string        `mapstructure:"backend"`
	Path          string        `mapstructure:"path"`
	SaveAttempts  int           `mapstructure:"save_attempts"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	RedisTTL      time.Duration `mapstructure:"redis_ttl"`
	RedisPrefix   string        `mapstructure:"redis_prefix"`
}

type ToolsConfig struct {
	// Root is the sandbox directory for the file tools.
	Root         string        `mapstructure:"root"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	SerperURL    string        `mapstructure:"serper_url"`
	NWSBaseURL   string        `mapstructure:"nws_base_url"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	File   string `mapstructure:"file"`
	Pretty bool   `mapstructure:"pretty"`
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Config {
	return Config{
		Provider:       provider.NameOpenAI,
		MaxTokens:      1024,
		RetryBound:     3,
		IterationBound: 8,
		SessionID:      "1",
		Checkpoint: CheckpointConfig{
			Backend:      checkpoint.BackendFile,
			SaveAttempts: 3,
			RedisAddr:    "localhost:6379",
			RedisPrefix:  "agentloop",
		},
		Tools: ToolsConfig{
			Root:        "output",
			HTTPTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
		ArtifactsDir: ".agent",
	}
}

// Model returns ModelID, or the provider's default model when unset.
func (c *Config) Model() string {
	if c.ModelID != "" {
		return c.ModelID
	}
	return provider.DefaultModel(c.Provider)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(provider.Names(), strings.ToLower(c.Provider)) {
		errs = append(errs, fmt.Errorf("provider %q: must be one of %s", c.Provider, strings.Join(provider.Names(), ", ")))
	}
	if !slices.Contains(checkpoint.Backends(), strings.ToLower(c.Checkpoint.Backend)) {
		errs = append(errs, fmt.Errorf("checkpoint.backend %q: must be one of %s", c.Checkpoint.Backend, strings.Join(checkpoint.Backends(), ", ")))
	}
	for _, b := range []struct {
		name string
		v    int
	}{
		{"max_tokens", c.MaxTokens},
		{"retry_bound", c.RetryBound},
		{"iteration_bound", c.IterationBound},
		{"token_budget", c.TokenBudget},
		{"checkpoint.save_attempts", c.Checkpoint.SaveAttempts},
		{"checkpoint.redis_db", c.Checkpoint.RedisDB},
	} {
		if b.v < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative, got %d", b.name, b.v))
		}
	}
	if c.Checkpoint.RedisTTL < 0 {
		errs = append(errs, fmt.Errorf("checkpoint.redis_ttl: must not be negative"))
	}
	if c.Tools.HTTPTimeout < 0 {
		errs = append(errs, fmt.Errorf("tools.http_timeout: must not be negative"))
	}
	if err := checkpoint.ValidateSessionID(c.SessionID); err != nil {
		errs = append(errs, fmt.Errorf("session_id: %w", err))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level %q: %w", c.Log.Level, err))
	}
	return errors.Join(errs...)
}

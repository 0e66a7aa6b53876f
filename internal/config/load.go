package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/petasbytes/agentloop/internal/provider"
)

// EnvPrefix prefixes every environment override, e.g. AGT_CHECKPOINT_BACKEND.
const EnvPrefix = "AGT"

// DefaultEnvFile is read unless WithEnvFiles says otherwise.
const DefaultEnvFile = ".env"

// providerKeyEnv names the vendor variable consulted when api_key is unset.
var providerKeyEnv = map[string][]string{
	provider.NameAnthropic: {"ANTHROPIC_API_KEY"},
	provider.NameOpenAI:    {"OPENAI_API_KEY"},
	provider.NameGemini:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"session":   "session_id",
	"provider":  "provider",
	"model":     "model_id",
	"log-level": "log.level",
}

type loadOptions struct {
	envFiles []string
	flags    *pflag.FlagSet
}

type LoadOption func(*loadOptions)

// WithEnvFiles replaces the default .env lookup.
func WithEnvFiles(files ...string) LoadOption {
	return func(o *loadOptions) { o.envFiles = files }
}

// WithFlags lets explicitly set flags override every other source.
func WithFlags(flags *pflag.FlagSet) LoadOption {
	return func(o *loadOptions) { o.flags = flags }
}

// Load builds a Config. Later sources win: defaults, config file at path
// (optional, yaml/json/toml by extension), environment, then flags. Env files
// are loaded into the environment first without overriding variables that
// are already set; missing env files are ignored.
func Load(path string, opts ...LoadOption) (*Config, error) {
	o := loadOptions{envFiles: []string{DefaultEnvFile}}
	for _, opt := range opts {
		opt(&o)
	}
	for _, f := range o.envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("tools.serper_api_key", EnvPrefix+"_TOOLS_SERPER_API_KEY", "SERPER_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if o.flags != nil {
		for name, key := range flagKeys {
			if f := o.flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.Checkpoint.Backend = strings.ToLower(strings.TrimSpace(cfg.Checkpoint.Backend))

	if cfg.APIKey == "" {
		for _, name := range providerKeyEnv[cfg.Provider] {
			if k := os.Getenv(name); k != "" {
				cfg.APIKey = k
				break
			}
		}
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("provider", d.Provider)
	v.SetDefault("provider_endpoint", d.ProviderEndpoint)
	v.SetDefault("api_key", d.APIKey)
	v.SetDefault("model_id", d.ModelID)
	v.SetDefault("max_tokens", d.MaxTokens)
	v.SetDefault("retry_bound", d.RetryBound)
	v.SetDefault("iteration_bound", d.IterationBound)
	v.SetDefault("token_budget", d.TokenBudget)
	v.SetDefault("system_prompt", d.SystemPrompt)
	v.SetDefault("session_id", d.SessionID)

	v.SetDefault("checkpoint.backend", d.Checkpoint.Backend)
	v.SetDefault("checkpoint.path", d.Checkpoint.Path)
	v.SetDefault("checkpoint.save_attempts", d.Checkpoint.SaveAttempts)
	v.SetDefault("checkpoint.redis_addr", d.Checkpoint.RedisAddr)
	v.SetDefault("checkpoint.redis_password", d.Checkpoint.RedisPassword)
	v.SetDefault("checkpoint.redis_db", d.Checkpoint.RedisDB)
	v.SetDefault("checkpoint.redis_ttl", d.Checkpoint.RedisTTL)
	v.SetDefault("checkpoint.redis_prefix", d.Checkpoint.RedisPrefix)

	v.SetDefault("tools.root", d.Tools.Root)
	v.SetDefault("tools.serper_url", d.Tools.SerperURL)
	v.SetDefault("tools.nws_base_url", d.Tools.NWSBaseURL)
	v.SetDefault("tools.http_timeout", d.Tools.HTTPTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.pretty", d.Log.Pretty)

	v.SetDefault("observe_json", d.ObserveJSON)
	v.SetDefault("artifacts_dir", d.ArtifactsDir)
}

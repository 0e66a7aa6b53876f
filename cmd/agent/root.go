package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/petasbytes/agentloop/internal/checkpoint"
	"github.com/petasbytes/agentloop/internal/config"
	"github.com/petasbytes/agentloop/internal/fsops"
	"github.com/petasbytes/agentloop/internal/provider"
	"github.com/petasbytes/agentloop/internal/runner"
	"github.com/petasbytes/agentloop/internal/session"
	"github.com/petasbytes/agentloop/internal/telemetry"
	"github.com/petasbytes/agentloop/tools"
)

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Chat with a tool-using model; sessions are checkpointed between turns",
		Long: `agent reads one line at a time from stdin, lets the model call tools
(files under the sandbox root, web search, weather alerts) until it answers,
and saves the transcript under the session id after every turn.

Type exit or bye to quit.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile, config.WithFlags(cmd.Flags()))
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
				return err
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "invalid configuration:", err)
				return err
			}
			err = run(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
			}
			return err
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	pf.String("session", "", "session id to resume or create (default \"1\")")
	pf.String("provider", "", "model provider: "+strings.Join(provider.Names(), ", "))
	pf.String("model", "", "model id (default depends on provider)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

// run wires the configured components and serves the session until exit.
func run(ctx context.Context, cfg *config.Config, in io.Reader, out, errOut io.Writer) error {
	lg, err := telemetry.NewLogger(telemetry.LogConfig{
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		Pretty: cfg.Log.Pretty,
		Out:    errOut,
	})
	if err != nil {
		return err
	}
	defer lg.Close()
	log.Logger = lg.Logger
	logger := lg.With().Str("session_id", cfg.SessionID).Logger()

	events := telemetry.NewEmitter(cfg.ArtifactsDir, cfg.ObserveJSON, logger)
	defer events.Close()

	if cfg.APIKey == "" && cfg.Provider != provider.NameOllama {
		logger.Warn().Str("provider", cfg.Provider).Msg("no API key configured; the provider SDK will look for its own environment variable")
	}
	gen, err := provider.New(ctx, provider.Options{
		Name:     cfg.Provider,
		Endpoint: cfg.ProviderEndpoint,
		APIKey:   cfg.APIKey,
	})
	if err != nil {
		return fmt.Errorf("provider: %w", err)
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	store, err := checkpoint.Open(ctx, checkpoint.Options{
		Backend:       cfg.Checkpoint.Backend,
		Path:          cfg.Checkpoint.Path,
		RedisAddr:     cfg.Checkpoint.RedisAddr,
		RedisPassword: cfg.Checkpoint.RedisPassword,
		RedisDB:       cfg.Checkpoint.RedisDB,
		RedisTTL:      cfg.Checkpoint.RedisTTL,
		RedisPrefix:   cfg.Checkpoint.RedisPrefix,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn().Err(err).Str("backend", cfg.Checkpoint.Backend).Msg("checkpoint store unavailable")
		fmt.Fprintf(out, "warning: checkpoint store unavailable (%v); continuing in memory-only mode\n", err)
		store = nil
	} else {
		defer closeStore(store, logger)
	}

	r := runner.New(gen, reg,
		runner.WithModel(cfg.Model()),
		runner.WithMaxTokens(cfg.MaxTokens),
		runner.WithSystemPrompt(cfg.SystemPrompt),
		runner.WithRetryBound(cfg.RetryBound),
		runner.WithIterationBound(cfg.IterationBound),
		runner.WithTokenBudget(cfg.TokenBudget),
		runner.WithEmitter(events),
		runner.WithLogger(logger),
	)

	ckpt := session.NewCheckpointer(store, cfg.SessionID,
		session.WithSaveAttempts(cfg.Checkpoint.SaveAttempts),
		session.WithCheckpointLogger(logger),
	)
	loop := session.New(cfg.SessionID, r, ckpt,
		session.WithIO(in, out),
		session.WithLogger(logger),
		session.WithEmitter(events),
	)

	logger.Debug().
		Str("provider", gen.Name()).
		Str("model", cfg.Model()).
		Str("backend", cfg.Checkpoint.Backend).
		Int("tools", len(reg.List())).
		Msg("agent ready")

	if err := loop.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(out, "Exiting...")
			return nil
		}
		return err
	}
	return nil
}

func buildRegistry(cfg *config.Config) (*tools.Registry, error) {
	sb, err := fsops.New(cfg.Tools.Root, "")
	if err != nil {
		return nil, fmt.Errorf("tool sandbox: %w", err)
	}
	reg, err := tools.NewBuiltinRegistry(tools.BuiltinOptions{
		Sandbox:      sb,
		SerperAPIKey: cfg.Tools.SerperAPIKey,
		SerperURL:    cfg.Tools.SerperURL,
		NWSBaseURL:   cfg.Tools.NWSBaseURL,
		HTTPTimeout:  cfg.Tools.HTTPTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}
	return reg, nil
}

func closeStore(s checkpoint.Store, logger zerolog.Logger) {
	if err := s.Close(); err != nil {
		logger.Warn().Err(err).Msg("close checkpoint store")
	}
}

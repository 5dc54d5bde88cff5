package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/cv-match/internal/artifact"
	"github.com/jonathan/cv-match/internal/config"
	"github.com/jonathan/cv-match/internal/cvfile"
	"github.com/jonathan/cv-match/internal/llm"
	"github.com/jonathan/cv-match/internal/pipeline"
	"github.com/jonathan/cv-match/internal/stages"
)

// loadConfig loads the optional config file, overlays the environment, and
// fills the remaining gaps with defaults.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Config{}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	cfg = cfg.MergeWithDefaults(config.DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func llmConfig(cfg config.Config) *llm.Config {
	return &llm.Config{
		Provider: llm.ProviderGemini,
		Models: map[llm.ModelTier]string{
			llm.TierLite:     cfg.ModelLite,
			llm.TierStandard: cfg.ModelStandard,
			llm.TierAdvanced: cfg.ModelAdvanced,
		},
	}
}

// buildClient creates the provider client from configuration.
func buildClient(ctx context.Context, cfg config.Config) (llm.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required (set GEMINI_API_KEY or api_key in config)")
	}
	client, err := llm.NewClient(ctx, llmConfig(cfg), cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider client: %w", err)
	}
	return client, nil
}

func runnerConfig(cfg config.Config) *stages.RunnerConfig {
	return &stages.RunnerConfig{
		MaxAttempts:   cfg.MaxAttempts,
		RetryInterval: cfg.RetryInterval(),
		CallTimeout:   cfg.CallTimeout(),
	}
}

// buildOrchestrator wires the single-user pipeline for CLI runs, rooted
// directly at the data root. The returned closer releases the provider
// client.
func buildOrchestrator(ctx context.Context, cfg config.Config, log *zap.Logger) (*pipeline.Orchestrator, *artifact.Store, func() error, error) {
	client, err := buildClient(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	store := artifact.NewStore(cfg.DataRoot)
	cache := artifact.NewCache(store, nil)
	runner := stages.NewRunner(client, cache, log, runnerConfig(cfg))
	orch := pipeline.NewOrchestrator(cvfile.NewSelector(store), runner, cache, log)

	return orch, store, client.Close, nil
}

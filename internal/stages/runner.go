package stages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/jonathan/cv-match/internal/artifact"
	"github.com/jonathan/cv-match/internal/llm"
	"github.com/jonathan/cv-match/internal/prompts"
	"github.com/jonathan/cv-match/internal/schemas"
)

const promptFile = "analysis.json"

// RunnerConfig holds tuning knobs for stage execution.
type RunnerConfig struct {
	// MaxAttempts bounds provider calls per stage, including the first.
	MaxAttempts int
	// RetryInterval is the fixed wait between attempts.
	RetryInterval time.Duration
	// CallTimeout bounds a single provider call.
	CallTimeout time.Duration
}

// DefaultRunnerConfig returns the default execution settings.
func DefaultRunnerConfig() *RunnerConfig {
	return &RunnerConfig{
		MaxAttempts:   3,
		RetryInterval: 2 * time.Second,
		CallTimeout:   45 * time.Second,
	}
}

// Runner executes stages against an LLM client and the artifact cache.
type Runner struct {
	client llm.Client
	cache  *artifact.Cache
	log    *zap.Logger
	cfg    *RunnerConfig
}

// NewRunner creates a stage runner.
func NewRunner(client llm.Client, cache *artifact.Cache, log *zap.Logger, cfg *RunnerConfig) *Runner {
	if cfg == nil {
		cfg = DefaultRunnerConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{client: client, cache: cache, log: log, cfg: cfg}
}

// WithForceRefresh returns a runner that never reuses cached artifacts.
// Recomputed results are still persisted through the shared store.
func (r *Runner) WithForceRefresh() *Runner {
	return &Runner{client: r.client, cache: r.cache.WithForceRefresh(), log: r.log, cfg: r.cfg}
}

// spec describes one stage's static execution parameters.
type spec struct {
	stage      artifact.Stage
	promptKey  string
	tier       llm.ModelTier
	maxTokens  int32
	cacheable  bool
	schemaName string
	defaults   map[string]any
}

// execute runs the generic stage algorithm: consult the cache, call the
// provider with bounded retry, tolerantly parse the JSON response, fill
// missing required keys with empty defaults, and persist a new artifact.
func (r *Runner) execute(ctx context.Context, company string, sp spec, inputText string, promptData map[string]string) StageResult {
	log := r.log.With(zap.String("company", company), zap.String("stage", string(sp.stage)))

	if sp.cacheable {
		if cached := r.loadValidCached(company, sp, inputText, log); cached != nil {
			return *cached
		}
	}

	promptTemplate, err := prompts.Get(promptFile, sp.promptKey)
	if err != nil {
		return failure(sp.stage, err, 0)
	}
	prompt := prompts.Format(promptTemplate, promptData)

	content, attempts, err := r.callProvider(ctx, prompt, sp.tier, sp.maxTokens, true, log)
	if err != nil {
		return failure(sp.stage, err, attempts)
	}

	payload, err := llm.ParseTolerant(content)
	if err != nil {
		// Malformed JSON is assumed deterministic for the same prompt, so
		// there is no retry here.
		log.Warn("stage produced unparseable response", zap.Error(err))
		return failure(sp.stage, err, attempts)
	}
	applyDefaults(payload, sp.defaults)

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return failure(sp.stage, fmt.Errorf("failed to marshal stage payload: %w", err), attempts)
	}

	art, err := r.cache.Save(company, sp.stage, data, inputText)
	if err != nil {
		return failure(sp.stage, err, attempts)
	}
	log.Info("stage completed",
		zap.Int("attempts", attempts),
		zap.String("artifact", art.Path))

	return StageResult{
		Stage:        sp.stage,
		Success:      true,
		Payload:      payload,
		ArtifactPath: art.Path,
		Attempts:     attempts,
	}
}

// loadValidCached returns a cache-hit result when the latest artifact is
// still valid for the input and passes schema validation. Invalid cached
// payloads are treated as cache misses, not errors.
func (r *Runner) loadValidCached(company string, sp spec, inputText string, log *zap.Logger) *StageResult {
	if !r.cache.ShouldReuse(company, sp.stage, inputText) {
		return nil
	}
	art, err := r.cache.LoadCached(company, sp.stage)
	if err != nil || art == nil {
		return nil
	}
	if err := schemas.Validate(sp.schemaName, art.Payload); err != nil {
		log.Warn("cached artifact failed schema validation, recomputing", zap.Error(err))
		return nil
	}

	var payload map[string]any
	if err := json.Unmarshal(art.Payload, &payload); err != nil {
		log.Warn("cached artifact is not valid JSON, recomputing", zap.Error(err))
		return nil
	}
	applyDefaults(payload, sp.defaults)

	log.Info("stage cache hit", zap.String("artifact", art.Path))
	return &StageResult{
		Stage:        sp.stage,
		Success:      true,
		Payload:      payload,
		FromCache:    true,
		ArtifactPath: art.Path,
	}
}

// callProvider invokes the LLM with bounded retry and fixed backoff.
// Only transient provider failures are retried; everything else is permanent.
func (r *Runner) callProvider(ctx context.Context, prompt string, tier llm.ModelTier, maxTokens int32, jsonResponse bool, log *zap.Logger) (string, int, error) {
	attempts := 0
	op := func() (string, error) {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		defer cancel()

		resp, err := r.client.Generate(callCtx, llm.Request{
			Prompt:       prompt,
			Temperature:  0.1,
			MaxTokens:    maxTokens,
			Tier:         tier,
			JSONResponse: jsonResponse,
		})
		if err != nil {
			var perr *llm.ProviderError
			if errors.As(err, &perr) && !perr.Transient {
				return "", backoff.Permanent(err)
			}
			log.Warn("provider call failed", zap.Int("attempt", attempts), zap.Error(err))
			return "", err
		}
		return resp.Content, nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.cfg.RetryInterval), uint64(r.cfg.MaxAttempts-1)),
		ctx,
	)
	content, err := backoff.RetryWithData(op, policy)
	if err != nil {
		var perr *llm.ProviderError
		if errors.As(err, &perr) && !perr.Transient {
			return "", attempts, fmt.Errorf("AI service rejected the request: %w", err)
		}
		return "", attempts, fmt.Errorf("AI service unavailable after %d attempts: %w", attempts, err)
	}
	return content, attempts, nil
}

// applyDefaults fills missing required keys with their empty defaults so
// partial provider responses degrade gracefully instead of aborting.
func applyDefaults(payload map[string]any, defaults map[string]any) {
	for key, def := range defaults {
		if _, ok := payload[key]; !ok {
			payload[key] = def
		}
	}
}

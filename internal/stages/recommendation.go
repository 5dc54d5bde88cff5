package stages

import (
	"context"

	"github.com/jonathan/cv-match/internal/artifact"
	"github.com/jonathan/cv-match/internal/llm"
)

func recommendationDefaults() map[string]any {
	return map[string]any{
		"recommendations":   []any{},
		"priority_keywords": []any{},
		"summary":           "",
	}
}

// Recommendation turns match results into concrete CV improvement
// suggestions. Cached while the CV and match results are unchanged.
func (r *Runner) Recommendation(ctx context.Context, company, cvText, matchResultsJSON string) StageResult {
	return r.execute(ctx, company, spec{
		stage:     artifact.StageRecommendation,
		promptKey: "generate-recommendation",
		tier:      llm.TierAdvanced,
		cacheable: true,
		defaults:  recommendationDefaults(),
	}, cvText+matchInputSeparator+matchResultsJSON, map[string]string{
		"CVText":       cvText,
		"MatchResults": matchResultsJSON,
	})
}

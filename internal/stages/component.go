package stages

import (
	"context"

	"github.com/jonathan/cv-match/internal/artifact"
	"github.com/jonathan/cv-match/internal/llm"
)

func componentDefaults() map[string]any {
	return map[string]any{
		"components":    map[string]any{},
		"overall_score": 0,
	}
}

// ComponentAnalysis scores each CV section against the job requirements.
// This is an enrichment stage: cached results are reused while the CV and JD
// analysis are unchanged.
func (r *Runner) ComponentAnalysis(ctx context.Context, company, cvText, jdAnalysisJSON string) StageResult {
	return r.execute(ctx, company, spec{
		stage:     artifact.StageComponentAnalysis,
		promptKey: "component-analysis",
		tier:      llm.TierStandard,
		cacheable: true,
		defaults:  componentDefaults(),
	}, cvText+matchInputSeparator+jdAnalysisJSON, map[string]string{
		"CVText":     cvText,
		"JDAnalysis": jdAnalysisJSON,
	})
}

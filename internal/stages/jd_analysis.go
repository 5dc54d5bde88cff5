package stages

import (
	"context"

	"github.com/jonathan/cv-match/internal/artifact"
	"github.com/jonathan/cv-match/internal/llm"
)

// jdAnalysisDefaults returns the required-key defaults for JD analysis.
// Built fresh per call so stages never share mutable payload values.
func jdAnalysisDefaults() map[string]any {
	return map[string]any{
		"experience_years": "",
		"required_skills":  emptySkillSet(),
		"preferred_skills": emptySkillSet(),
	}
}

func emptySkillSet() map[string]any {
	return map[string]any{
		"technical":        []any{},
		"soft_skills":      []any{},
		"experience":       []any{},
		"domain_knowledge": []any{},
	}
}

// JDAnalysis extracts structured requirements from job description text.
// Results are cached by JD content hash: the same JD text never triggers a
// second provider call.
func (r *Runner) JDAnalysis(ctx context.Context, company, jdText string) StageResult {
	return r.execute(ctx, company, spec{
		stage:      artifact.StageJDAnalysis,
		promptKey:  "analyze-jd",
		tier:       llm.TierStandard,
		cacheable:  true,
		schemaName: "jd_analysis",
		defaults:   jdAnalysisDefaults(),
	}, jdText, map[string]string{"JDText": jdText})
}

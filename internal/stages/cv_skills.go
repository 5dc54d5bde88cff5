package stages

import (
	"context"

	"github.com/jonathan/cv-match/internal/artifact"
	"github.com/jonathan/cv-match/internal/llm"
)

func cvSkillsDefaults() map[string]any {
	return map[string]any{
		"technical_skills": []any{},
		"soft_skills":      []any{},
		"domain_knowledge": []any{},
		"experience_years": "",
	}
}

// CVSkills extracts the candidate's skills from CV text. This stage is never
// served from cache: the premise of a rerun is that the CV just changed, so
// extraction always reflects the current CV.
func (r *Runner) CVSkills(ctx context.Context, company, cvText string) StageResult {
	return r.execute(ctx, company, spec{
		stage:     artifact.StageCVSkills,
		promptKey: "extract-cv-skills",
		tier:      llm.TierLite,
		cacheable: false,
		defaults:  cvSkillsDefaults(),
	}, cvText, map[string]string{"CVText": cvText})
}

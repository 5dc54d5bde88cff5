package stages

import (
	"context"

	"github.com/jonathan/cv-match/internal/artifact"
	"github.com/jonathan/cv-match/internal/llm"
)

// matchInputSeparator joins CV text and the JD analysis payload into the
// canonical matching input, so a change on either side produces a new hash.
const matchInputSeparator = "\n--\n"

func matchingDefaults() map[string]any {
	return map[string]any{
		"matched_required_keywords":  []any{},
		"matched_preferred_keywords": []any{},
		"missed_required_keywords":   []any{},
		"missed_preferred_keywords":  []any{},
		"match_counts": map[string]any{
			"total_required_keywords":  0,
			"total_preferred_keywords": 0,
			"matched_required_count":   0,
			"matched_preferred_count":  0,
		},
	}
}

// Matching compares the CV against the analyzed JD requirements. Like skill
// extraction, it always runs fresh so the result reflects the current CV.
func (r *Runner) Matching(ctx context.Context, company, cvText, jdAnalysisJSON string) StageResult {
	return r.execute(ctx, company, spec{
		stage:      artifact.StageCVJDMatch,
		promptKey:  "match-cv-jd",
		tier:       llm.TierStandard,
		cacheable:  false,
		schemaName: "cv_jd_match",
		defaults:   matchingDefaults(),
	}, cvText+matchInputSeparator+jdAnalysisJSON, map[string]string{
		"CVText":     cvText,
		"JDAnalysis": jdAnalysisJSON,
	})
}

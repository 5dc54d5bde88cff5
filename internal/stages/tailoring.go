package stages

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/cv-match/internal/artifact"
	"github.com/jonathan/cv-match/internal/llm"
	"github.com/jonathan/cv-match/internal/prompts"
)

// Tailoring rewrites the CV to target the job requirements. Unlike the JSON
// stages it produces plain text, stored as a tailored CV variant that later
// reruns resolve through the CV selector.
func (r *Runner) Tailoring(ctx context.Context, company, cvText, jdAnalysisJSON, recommendationsJSON string) StageResult {
	stage := artifact.StageTailoredCV
	log := r.log.With(zap.String("company", company), zap.String("stage", string(stage)))

	inputText := cvText + matchInputSeparator + jdAnalysisJSON + matchInputSeparator + recommendationsJSON
	if r.cache.ShouldReuse(company, stage, inputText) {
		if art, err := r.cache.LoadCached(company, stage); err == nil && art != nil {
			log.Info("stage cache hit", zap.String("artifact", art.Path))
			return StageResult{
				Stage:        stage,
				Success:      true,
				Text:         string(art.Payload),
				FromCache:    true,
				ArtifactPath: art.Path,
			}
		}
	}

	promptTemplate, err := prompts.Get(promptFile, "tailor-cv")
	if err != nil {
		return failure(stage, err, 0)
	}
	prompt := prompts.Format(promptTemplate, map[string]string{
		"CVText":          cvText,
		"JDAnalysis":      jdAnalysisJSON,
		"Recommendations": recommendationsJSON,
	})

	content, attempts, err := r.callProvider(ctx, prompt, llm.TierAdvanced, 0, false, log)
	if err != nil {
		return failure(stage, err, attempts)
	}
	tailored := strings.TrimSpace(llm.CleanJSONBlock(content))

	art, err := r.cache.Save(company, stage, []byte(tailored), inputText)
	if err != nil {
		return failure(stage, err, attempts)
	}
	log.Info("stage completed", zap.Int("attempts", attempts), zap.String("artifact", art.Path))

	return StageResult{
		Stage:        stage,
		Success:      true,
		Text:         tailored,
		ArtifactPath: art.Path,
		Attempts:     attempts,
	}
}

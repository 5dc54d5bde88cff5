// Package stages implements the AI analysis stages of the pipeline: JD
// analysis, CV skill extraction, CV-JD matching, component analysis,
// recommendation generation, and CV tailoring. Each stage hashes its input,
// consults the artifact cache, and only then calls the provider.
package stages

import "github.com/jonathan/cv-match/internal/artifact"

// StageResult is the outcome of one stage execution. A failed stage carries
// an error string rather than an error value so results serialize cleanly in
// API responses.
type StageResult struct {
	Stage        artifact.Stage `json:"stage"`
	Success      bool           `json:"success"`
	Payload      map[string]any `json:"payload,omitempty"`
	Text         string         `json:"text,omitempty"`
	Error        string         `json:"error,omitempty"`
	FromCache    bool           `json:"from_cache"`
	ArtifactPath string         `json:"artifact_path,omitempty"`
	Attempts     int            `json:"attempts,omitempty"`
}

// failure builds a failed result for a stage.
func failure(stage artifact.Stage, err error, attempts int) StageResult {
	return StageResult{
		Stage:    stage,
		Error:    err.Error(),
		Attempts: attempts,
	}
}

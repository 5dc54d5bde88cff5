package artifact

import (
	"fmt"
	"time"
)

// Stage identifies one step of the analysis pipeline.
type Stage string

const (
	StageJDOriginal        Stage = "jd_original"
	StageJDAnalysis        Stage = "jd_analysis"
	StageCVSkills          Stage = "cv_skills"
	StageCVJDMatch         Stage = "cv_jd_match"
	StageComponentAnalysis Stage = "component_analysis"
	StageRecommendation    Stage = "ai_recommendation"
	StageTailoredCV        Stage = "tailored_cv"
)

// FilePrefix returns the artifact filename prefix for this stage. Some stages
// scope their files by company name.
func (s Stage) FilePrefix(company string) string {
	switch s {
	case StageJDOriginal:
		return "jd_original"
	case StageJDAnalysis:
		return "jd_analysis"
	case StageCVSkills:
		return fmt.Sprintf("%s_skills_analysis", company)
	case StageCVJDMatch:
		return fmt.Sprintf("%s_cv_jd_matching", company)
	case StageComponentAnalysis:
		return fmt.Sprintf("%s_component_analysis", company)
	case StageRecommendation:
		return fmt.Sprintf("%s_ai_recommendation", company)
	case StageTailoredCV:
		return fmt.Sprintf("%s_tailored_cv", company)
	default:
		return string(s)
	}
}

// Ext returns the file extension for this stage's artifacts.
func (s Stage) Ext() string {
	switch s {
	case StageJDOriginal, StageTailoredCV:
		return "txt"
	default:
		return "json"
	}
}

// Artifact is one persisted stage output.
type Artifact struct {
	Company   string
	Stage     Stage
	Path      string
	Timestamp string // empty for bare legacy files
	Payload   []byte
	Meta      *Meta // nil for legacy artifacts without a sidecar
}

// Meta is the sidecar metadata written next to each artifact. Artifacts
// predating the sidecar convention lack one and are cached by presence only.
type Meta struct {
	ContentHash string    `json:"content_hash"`
	Stage       Stage     `json:"stage"`
	Company     string    `json:"company"`
	CreatedAt   time.Time `json:"created_at"`
}

package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/cv-match/internal/artifact"
	"github.com/jonathan/cv-match/internal/server/middleware"
)

var allStages = []artifact.Stage{
	artifact.StageJDOriginal,
	artifact.StageJDAnalysis,
	artifact.StageCVSkills,
	artifact.StageCVJDMatch,
	artifact.StageComponentAnalysis,
	artifact.StageRecommendation,
	artifact.StageTailoredCV,
}

func parseStage(name string) (artifact.Stage, bool) {
	for _, stage := range allStages {
		if string(stage) == name {
			return stage, true
		}
	}
	return "", false
}

// ArtifactSummary is a lightweight view of one stored artifact version.
type ArtifactSummary struct {
	Stage     string `json:"stage"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp,omitempty"`
}

// handleListArtifacts lists all artifact versions recorded for a company,
// newest first within each stage.
func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	store := s.userStore(userID)
	company := r.PathValue("company")

	summaries := []ArtifactSummary{}
	for _, stage := range allStages {
		for _, entry := range store.All(company, stage) {
			summaries = append(summaries, ArtifactSummary{
				Stage:     string(stage),
				Path:      entry.Path,
				Timestamp: entry.Timestamp,
			})
		}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// handleGetArtifact returns the latest artifact payload for one stage.
func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	company := r.PathValue("company")
	stage, ok := parseStage(r.PathValue("stage"))
	if !ok {
		errorJSON(w, http.StatusBadRequest, "unknown stage: "+r.PathValue("stage"))
		return
	}

	art, err := s.userStore(userID).Latest(company, stage)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	if art == nil {
		errorJSON(w, http.StatusNotFound, "no artifact for stage "+string(stage))
		return
	}

	response := map[string]any{
		"stage":     string(stage),
		"path":      art.Path,
		"timestamp": art.Timestamp,
	}
	if stage.Ext() == "json" {
		var payload map[string]any
		if err := json.Unmarshal(art.Payload, &payload); err != nil {
			errorJSON(w, http.StatusInternalServerError, "stored artifact is not valid JSON")
			return
		}
		response["payload"] = payload
	} else {
		response["text"] = string(art.Payload)
	}
	writeJSON(w, http.StatusOK, response)
}

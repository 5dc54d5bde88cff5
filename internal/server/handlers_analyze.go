package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/cv-match/internal/db"
	"github.com/jonathan/cv-match/internal/ingestion"
	"github.com/jonathan/cv-match/internal/pipeline"
	"github.com/jonathan/cv-match/internal/server/middleware"
	"github.com/jonathan/cv-match/internal/types"
)

// handleAnalyze runs the analysis pipeline for one company.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	s.runAnalysis(w, r, false)
}

// handleAnalyzeRerun evaluates the latest tailored CV against the job
// description.
func (s *Server) handleAnalyzeRerun(w http.ResponseWriter, r *http.Request) {
	s.runAnalysis(w, r, true)
}

func (s *Server) runAnalysis(w http.ResponseWriter, r *http.Request, isRerun bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req types.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	opts, err := s.buildRunOptions(r.Context(), req, isRerun)
	if err != nil {
		errorJSON(w, http.StatusBadGateway, err.Error())
		return
	}

	orchestrator, _ := s.userPipeline(userID)
	result := orchestrator.Run(r.Context(), *opts)
	s.recordRun(r.Context(), userID, req, result)

	status := http.StatusOK
	if result.State == pipeline.StateAborted {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

// handleAnalyzeBatch runs the pipeline for several companies concurrently.
func (s *Server) handleAnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Jobs        []types.AnalyzeRequest `json:"jobs"`
		Concurrency int                    `json:"concurrency,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Jobs) == 0 {
		errorJSON(w, http.StatusBadRequest, "jobs must not be empty")
		return
	}

	optsList := make([]pipeline.Options, 0, len(req.Jobs))
	for _, job := range req.Jobs {
		if err := job.Validate(); err != nil {
			errorJSON(w, http.StatusBadRequest, err.Error())
			return
		}
		opts, err := s.buildRunOptions(r.Context(), job, false)
		if err != nil {
			errorJSON(w, http.StatusBadGateway, err.Error())
			return
		}
		optsList = append(optsList, *opts)
	}

	orchestrator, _ := s.userPipeline(userID)
	results := orchestrator.RunAll(r.Context(), optsList, req.Concurrency)
	for i, result := range results {
		s.recordRun(r.Context(), userID, req.Jobs[i], result)
	}
	writeJSON(w, http.StatusOK, results)
}

// buildRunOptions resolves the JD text, fetching the posting when a URL was
// given.
func (s *Server) buildRunOptions(ctx context.Context, req types.AnalyzeRequest, isRerun bool) (*pipeline.Options, error) {
	jdText := req.JDText
	if req.JDURL != "" {
		fetchOpts := ingestion.DefaultFetchOptions()
		fetchOpts.AllowBrowser = s.useBrowser
		jd, err := ingestion.FromURL(ctx, req.JDURL, fetchOpts)
		if err != nil {
			return nil, err
		}
		jdText = jd.Text
	}

	return &pipeline.Options{
		Company:          req.Company,
		JDText:           jdText,
		IsRerun:          isRerun,
		UseLatestOverall: req.UseLatest,
		ForceRefresh:     req.ForceRefresh,
	}, nil
}

// recordRun persists run history. Failures are logged, never surfaced: the
// filesystem artifacts are the source of truth.
func (s *Server) recordRun(ctx context.Context, userID uuid.UUID, req types.AnalyzeRequest, result *pipeline.Result) {
	source := req.JDURL
	if source == "" {
		source = "inline"
	}
	if err := s.db.CreateRun(ctx, result.RunID, userID, req.Company, source); err != nil {
		s.log.Warn("failed to record run", zap.Error(err))
		return
	}
	if err := s.db.FinishRun(ctx, result.RunID, string(result.State), result.Success); err != nil {
		s.log.Warn("failed to finish run record", zap.Error(err))
	}
}

// handleListRuns returns the authenticated user's run history.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	runs, err := s.db.ListRuns(r.Context(), db.RunFilters{
		UserID:  userID,
		Company: r.URL.Query().Get("company"),
	})
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleGetRun returns one run by ID.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid run ID")
		return
	}

	run, err := s.db.GetRun(r.Context(), id)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		errorJSON(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

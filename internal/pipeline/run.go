// Package pipeline orchestrates the analysis stages for one company run,
// short-circuiting stages whose cached artifacts are still valid and
// aggregating per-stage outcomes into a single result.
package pipeline

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/cv-match/internal/artifact"
	"github.com/jonathan/cv-match/internal/cvfile"
	"github.com/jonathan/cv-match/internal/stages"
)

// State is the orchestrator's position in the run.
type State string

const (
	StateInit              State = "init"
	StateCVResolved        State = "cv_resolved"
	StateJDResolved        State = "jd_resolved"
	StateSkillsExtracted   State = "skills_extracted"
	StateMatched           State = "matched"
	StateComponentAnalyzed State = "component_analyzed"
	StateRecommended       State = "recommended"
	StateTailored          State = "tailored"
	StateDone              State = "done"
	StateAborted           State = "aborted"
)

// ProgressEvent reports one stage transition to the caller.
type ProgressEvent struct {
	Company   string `json:"company"`
	State     State  `json:"state"`
	Stage     string `json:"stage,omitempty"`
	Message   string `json:"message"`
	FromCache bool   `json:"from_cache,omitempty"`
}

// ProgressCallback is invoked as the run advances.
type ProgressCallback func(event ProgressEvent)

// Options configures one pipeline run.
type Options struct {
	Company string
	JDText  string
	// IsRerun requests evaluation against the latest tailored CV; its
	// absence aborts the run rather than falling back to the original.
	IsRerun bool
	// UseLatestOverall selects whichever CV variant is newest, ignoring the
	// rerun distinction. Alternate selection policy, see cvfile.Selector.
	UseLatestOverall bool
	// ForceRefresh recomputes every stage for this run, ignoring cached
	// artifacts. Fresh results are still persisted as new versions.
	ForceRefresh bool
	OnProgress   ProgressCallback
}

// Result aggregates the whole run. It is always returned, never raised:
// callers inspect State, Errors, and Warnings to see how far the run got.
type Result struct {
	RunID    uuid.UUID            `json:"run_id"`
	Company  string               `json:"company"`
	State    State                `json:"state"`
	Success  bool                 `json:"success"`
	CV       *cvfile.Selection    `json:"cv,omitempty"`
	Stages   []stages.StageResult `json:"stages"`
	Errors   []string             `json:"errors,omitempty"`
	Warnings []string             `json:"warnings,omitempty"`
}

// Orchestrator sequences the stages for pipeline runs.
type Orchestrator struct {
	selector *cvfile.Selector
	runner   *stages.Runner
	cache    *artifact.Cache
	log      *zap.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(selector *cvfile.Selector, runner *stages.Runner, cache *artifact.Cache, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{selector: selector, runner: runner, cache: cache, log: log}
}

// Run executes the pipeline for one company. Core stages (CV resolution, JD
// analysis, skill extraction, matching) determine overall success; enrichment
// stages (component analysis, recommendation, tailoring) degrade to warnings.
func (o *Orchestrator) Run(ctx context.Context, opts Options) *Result {
	result := &Result{
		RunID:   uuid.New(),
		Company: opts.Company,
		State:   StateInit,
	}
	log := o.log.With(zap.String("company", opts.Company), zap.String("run_id", result.RunID.String()))

	runner, cache := o.runner, o.cache
	if opts.ForceRefresh {
		runner = runner.WithForceRefresh()
		cache = cache.WithForceRefresh()
		log.Info("force refresh requested, cached artifacts ignored")
	}

	// Init -> CVResolved
	selection, err := o.resolveCV(opts)
	if err != nil {
		return o.abort(result, err.Error(), log)
	}
	if !selection.Exists {
		return o.abort(result, selection.Reason, log)
	}
	result.CV = selection
	cvText, err := selection.Text()
	if err != nil {
		return o.abort(result, err.Error(), log)
	}
	result.State = StateCVResolved
	o.emit(opts, result, "", "resolved "+string(selection.CVType)+" CV", false)

	// The raw JD text is persisted before analysis so every downstream
	// artifact can be traced back to the exact input.
	if _, err := cache.Save(opts.Company, artifact.StageJDOriginal, []byte(opts.JDText), opts.JDText); err != nil {
		result.Warnings = append(result.Warnings, "failed to persist JD original: "+err.Error())
	}

	// CVResolved -> JDResolved
	jd := runner.JDAnalysis(ctx, opts.Company, opts.JDText)
	result.Stages = append(result.Stages, jd)
	if !jd.Success {
		return o.abort(result, jd.Error, log)
	}
	jdJSON := mustJSON(jd.Payload)
	result.State = StateJDResolved
	o.emit(opts, result, string(jd.Stage), "JD analysis complete", jd.FromCache)

	// JDResolved -> SkillsExtracted. Runs unconditionally: the CV may have
	// just changed, which is the whole premise of a rerun.
	skills := runner.CVSkills(ctx, opts.Company, cvText)
	result.Stages = append(result.Stages, skills)
	if skills.Success {
		result.State = StateSkillsExtracted
	} else {
		result.Errors = append(result.Errors, "skill extraction failed: "+skills.Error)
	}
	o.emit(opts, result, string(skills.Stage), "skill extraction finished", skills.FromCache)

	// SkillsExtracted -> Matched. Also unconditional.
	match := runner.Matching(ctx, opts.Company, cvText, jdJSON)
	result.Stages = append(result.Stages, match)
	if match.Success {
		result.State = StateMatched
	} else {
		result.Errors = append(result.Errors, "matching failed: "+match.Error)
	}
	o.emit(opts, result, string(match.Stage), "matching finished", match.FromCache)

	// Enrichment stages. Failures are recorded and the run continues.
	component := runner.ComponentAnalysis(ctx, opts.Company, cvText, jdJSON)
	result.Stages = append(result.Stages, component)
	if component.Success {
		result.State = StateComponentAnalyzed
	} else {
		result.Warnings = append(result.Warnings, "component analysis failed: "+component.Error)
	}
	o.emit(opts, result, string(component.Stage), "component analysis finished", component.FromCache)

	var recommendation stages.StageResult
	if match.Success {
		recommendation = runner.Recommendation(ctx, opts.Company, cvText, mustJSON(match.Payload))
		result.Stages = append(result.Stages, recommendation)
		if recommendation.Success {
			result.State = StateRecommended
		} else {
			result.Warnings = append(result.Warnings, "recommendation failed: "+recommendation.Error)
		}
		o.emit(opts, result, string(recommendation.Stage), "recommendation finished", recommendation.FromCache)
	} else {
		result.Warnings = append(result.Warnings, "recommendation skipped: no match results")
	}

	if recommendation.Success {
		tailoring := runner.Tailoring(ctx, opts.Company, cvText, jdJSON, mustJSON(recommendation.Payload))
		result.Stages = append(result.Stages, tailoring)
		if tailoring.Success {
			result.State = StateTailored
		} else {
			result.Warnings = append(result.Warnings, "tailoring failed: "+tailoring.Error)
		}
		o.emit(opts, result, string(tailoring.Stage), "tailoring finished", tailoring.FromCache)
	} else {
		result.Warnings = append(result.Warnings, "tailoring skipped: no recommendations")
	}

	result.State = StateDone
	result.Success = jd.Success && skills.Success && match.Success
	log.Info("pipeline run finished",
		zap.Bool("success", result.Success),
		zap.Int("stages", len(result.Stages)),
		zap.Int("warnings", len(result.Warnings)))
	return result
}

func (o *Orchestrator) resolveCV(opts Options) (*cvfile.Selection, error) {
	if opts.UseLatestOverall {
		return o.selector.ResolveLatestOverall(opts.Company)
	}
	return o.selector.Resolve(opts.Company, opts.IsRerun)
}

// abort transitions to the terminal failure state while still returning the
// accumulated partial result.
func (o *Orchestrator) abort(result *Result, reason string, log *zap.Logger) *Result {
	result.State = StateAborted
	result.Errors = append(result.Errors, reason)
	log.Warn("pipeline run aborted", zap.String("reason", reason))
	return result
}

func (o *Orchestrator) emit(opts Options, result *Result, stage, message string, fromCache bool) {
	if opts.OnProgress == nil {
		return
	}
	opts.OnProgress(ProgressEvent{
		Company:   opts.Company,
		State:     result.State,
		Stage:     stage,
		Message:   message,
		FromCache: fromCache,
	})
}

func mustJSON(payload map[string]any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return "{}"
	}
	return string(data)
}

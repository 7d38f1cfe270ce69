// Package orchestrator sequences one pitch analysis run: fetch, normalize,
// fan out to the analysis providers, research, score, check consistency,
// consolidate and coerce the report.
package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"pitch-analyzer/internal/common/errors"
	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/common/metrics"
	"pitch-analyzer/internal/common/observability"
	"pitch-analyzer/internal/models"
	"pitch-analyzer/internal/pitch/consolidator"
	"pitch-analyzer/internal/pitch/retrieval"

	"github.com/google/uuid"
)

type State string

const (
	StateInit         State = "init"
	StateFetched      State = "fetched"
	StateNormalized   State = "normalized"
	StateAnalyzed     State = "analyzed"
	StateScored       State = "scored"
	StateConsolidated State = "consolidated"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Stage names used for timings and metrics.
const (
	StageFetch       = "fetch"
	StageNormalize   = "normalize"
	StageAnalyze     = "analyze"
	StageResearch    = "research"
	StageScore       = "score"
	StageConsistency = "consistency"
	StageConsolidate = "consolidate"
	StageCoerce      = "coerce"
)

type Fetcher interface {
	Fetch(ctx context.Context, id string) (models.RawDocument, error)
}

type Normalizer interface {
	Normalize(raw models.RawDocument) *models.NormalizedPitch
}

type Provider interface {
	Category() string
	Analyze(ctx context.Context, p *models.NormalizedPitch) (*models.AnalysisResult, error)
}

type Researcher interface {
	Research(ctx context.Context, p *models.NormalizedPitch, analyses models.Analyses) (*models.ResearchSummary, error)
}

type Scorer interface {
	Score(analyses models.Analyses, research *models.ResearchSummary) *models.ScoringResult
}

type Checker interface {
	Check(p *models.NormalizedPitch, analyses models.Analyses, scores *models.ScoringResult) *models.ConsistencyReport
}

type Consolidator interface {
	Consolidate(in consolidator.Input) *models.ConsolidatedReport
}

// Coercer brings a report map into the published schema. It never fails.
type Coercer interface {
	Coerce(report map[string]interface{}) map[string]interface{}
}

// CoerceFunc adapts a function to Coercer.
type CoerceFunc func(report map[string]interface{}) map[string]interface{}

func (f CoerceFunc) Coerce(report map[string]interface{}) map[string]interface{} {
	return f(report)
}

// Deps are the collaborators of a run. Researcher, Coercer and
// Observability are optional.
type Deps struct {
	Fetcher       Fetcher
	Normalizer    Normalizer
	Providers     []Provider
	Researcher    Researcher
	Scorer        Scorer
	Checker       Checker
	Consolidator  Consolidator
	Coercer       Coercer
	Observability *observability.Observability
}

// Run is the record of one pipeline execution.
type Run struct {
	RunID       string                     `json:"runId"`
	PitchID     string                     `json:"pitchId"`
	State       State                      `json:"state"`
	StartedAt   time.Time                  `json:"startedAt"`
	Duration    time.Duration              `json:"duration"`
	Timings     map[string]time.Duration   `json:"timings"`
	Degraded    bool                       `json:"degraded"`
	Warnings    []*errors.StandardError    `json:"warnings,omitempty"`
	Pitch       *models.NormalizedPitch    `json:"-"`
	Analyses    models.Analyses            `json:"-"`
	Research    *models.ResearchSummary    `json:"research,omitempty"`
	Scores      *models.ScoringResult      `json:"scores,omitempty"`
	Consistency *models.ConsistencyReport  `json:"consistency,omitempty"`
	Report      *models.ConsolidatedReport `json:"-"`
	Output      map[string]interface{}     `json:"report,omitempty"`
	mu          sync.Mutex
}

func (r *Run) warn(err *errors.StandardError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, err)
}

type Orchestrator struct {
	deps Deps
	log  logger.Logger
	now  func() time.Time
}

func New(deps Deps, log logger.Logger) (*Orchestrator, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("orchestrator: fetcher is required")
	case deps.Normalizer == nil:
		return nil, fmt.Errorf("orchestrator: normalizer is required")
	case deps.Scorer == nil:
		return nil, fmt.Errorf("orchestrator: scorer is required")
	case deps.Checker == nil:
		return nil, fmt.Errorf("orchestrator: consistency checker is required")
	case deps.Consolidator == nil:
		return nil, fmt.Errorf("orchestrator: consolidator is required")
	}
	return &Orchestrator{
		deps: deps,
		log:  logger.Component(log, "orchestrator"),
		now:  time.Now,
	}, nil
}

// Run analyzes one pitch. The only error it returns is a retrieval failure,
// as a *errors.StandardError; the returned Run is then in StateFailed.
// Every other failure is absorbed and recorded in Run.Warnings.
func (o *Orchestrator) Run(ctx context.Context, pitchID string) (*Run, error) {
	run := &Run{
		RunID:     uuid.NewString(),
		PitchID:   pitchID,
		State:     StateInit,
		StartedAt: o.now().UTC(),
		Timings:   make(map[string]time.Duration),
	}
	log := o.log.With(map[string]interface{}{"runId": run.RunID, "pitchId": pitchID})
	log.Info("Pipeline run started", nil)

	var raw models.RawDocument
	var fetchErr error
	o.stage(ctx, run, StageFetch, func() {
		raw, fetchErr = o.deps.Fetcher.Fetch(ctx, pitchID)
	})
	if fetchErr != nil {
		stdErr := retrievalError(pitchID, fetchErr)
		run.State = StateFailed
		o.finish(ctx, run)
		log.Error("Pipeline run failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"error":     fetchErr.Error(),
		})
		return run, stdErr
	}
	run.State = StateFetched

	o.stage(ctx, run, StageNormalize, func() {
		run.Pitch = o.normalize(run, raw, log)
	})
	run.State = StateNormalized

	o.stage(ctx, run, StageAnalyze, func() {
		run.Analyses = o.analyze(ctx, run, log)
	})
	run.State = StateAnalyzed

	if o.deps.Researcher != nil {
		o.stage(ctx, run, StageResearch, func() {
			run.Research = o.research(ctx, run, log)
		})
	}

	o.stage(ctx, run, StageScore, func() {
		run.Scores = o.deps.Scorer.Score(run.Analyses, run.Research)
	})
	if run.Scores != nil && run.Scores.Underflow {
		run.warn(errors.NewScoringUnderflowError(run.Scores.OverallRaw))
	}
	run.State = StateScored

	o.stage(ctx, run, StageConsistency, func() {
		run.Consistency = o.deps.Checker.Check(run.Pitch, run.Analyses, run.Scores)
	})
	o.recordConsistency(run)

	o.stage(ctx, run, StageConsolidate, func() {
		run.Report = o.deps.Consolidator.Consolidate(consolidator.Input{
			PitchID:       pitchID,
			Pitch:         run.Pitch,
			Analyses:      run.Analyses,
			Scores:        run.Scores,
			Consistency:   run.Consistency,
			Research:      run.Research,
			ProviderCount: len(o.deps.Providers),
		})
	})
	run.State = StateConsolidated

	o.stage(ctx, run, StageCoerce, func() {
		run.Output = o.coerce(run, log)
	})
	run.State = StateDone
	o.finish(ctx, run)

	log.Info("Pipeline run completed", map[string]interface{}{
		"durationMs": run.Duration.Milliseconds(),
		"degraded":   run.Degraded,
		"warnings":   len(run.Warnings),
		"irs":        run.Report.FinalIRSScore,
	})
	return run, nil
}

func (o *Orchestrator) stage(ctx context.Context, run *Run, name string, fn func()) {
	start := o.now()
	fn()
	elapsed := o.now().Sub(start)
	run.Timings[name] = elapsed
	metrics.PipelineStageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	o.deps.Observability.RecordStageDuration(ctx, name, elapsed)
}

func (o *Orchestrator) finish(ctx context.Context, run *Run) {
	run.Duration = o.now().Sub(run.StartedAt)
	metrics.PipelineRuns.WithLabelValues(string(run.State)).Inc()
	o.deps.Observability.RecordRun(ctx, string(run.State), run.Duration)
}

// normalize never fails: a panicking or empty normalizer yields the raw
// document passed through as a degraded pitch.
func (o *Orchestrator) normalize(run *Run, raw models.RawDocument, log logger.Logger) (pitch *models.NormalizedPitch) {
	defer func() {
		if rec := recover(); rec != nil {
			pitch = o.degrade(run, raw, rec, log)
		}
	}()
	pitch = o.deps.Normalizer.Normalize(raw)
	if pitch == nil {
		return o.degrade(run, raw, "normalizer returned no pitch", log)
	}
	return pitch
}

func (o *Orchestrator) degrade(run *Run, raw models.RawDocument, reason interface{}, log logger.Logger) *models.NormalizedPitch {
	stdErr := errors.NewNormalizationDegradedError(reason)
	run.warn(stdErr)
	run.Degraded = true
	metrics.DegradedNormalizations.Inc()
	log.Error("Normalization failed, continuing with pass-through pitch", map[string]interface{}{
		"errorCode": string(stdErr.Code),
		"reason":    fmt.Sprint(reason),
	})
	return models.DegradedPitch(raw)
}

// analyze runs every provider concurrently and joins at a barrier. A
// provider that errors, panics or returns nothing is recorded as a failed
// category.
func (o *Orchestrator) analyze(ctx context.Context, run *Run, log logger.Logger) models.Analyses {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		analyses = make(models.Analyses, len(o.deps.Providers))
	)

	for _, p := range o.deps.Providers {
		category := p.Category()
		wg.Add(1)
		go func(p Provider, category string) {
			defer wg.Done()
			result, err := analyzeSafely(ctx, p, run.Pitch)
			if err == nil && result == nil {
				err = fmt.Errorf("provider returned no result")
			}

			mu.Lock()
			defer mu.Unlock()
			if _, dup := analyses[category]; dup {
				log.Warn("Duplicate provider category, keeping the later result", map[string]interface{}{"category": category})
			}
			if err != nil {
				stdErr := errors.NewProviderFailedError(category, err.Error())
				run.warn(stdErr)
				metrics.ProviderFailures.WithLabelValues(category).Inc()
				log.Error("Analysis provider failed", map[string]interface{}{
					"category":  category,
					"errorCode": string(stdErr.Code),
					"error":     err.Error(),
				})
				analyses[category] = models.FailedAnalysis(err.Error())
				return
			}
			analyses[category] = result
		}(p, category)
	}
	wg.Wait()

	log.Info("Analysis providers finished", map[string]interface{}{
		"providers": len(o.deps.Providers),
		"succeeded": analyses.Succeeded(),
	})
	return analyses
}

func analyzeSafely(ctx context.Context, p Provider, pitch *models.NormalizedPitch) (result *models.AnalysisResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result, err = nil, fmt.Errorf("provider panicked: %v", rec)
		}
	}()
	return p.Analyze(ctx, pitch)
}

// research failures are absorbed; scoring then runs without credibility
// adjustment.
func (o *Orchestrator) research(ctx context.Context, run *Run, log logger.Logger) (summary *models.ResearchSummary) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Warn("Research panicked, continuing without it", map[string]interface{}{"reason": fmt.Sprint(rec)})
			summary = nil
		}
	}()
	summary, err := o.deps.Researcher.Research(ctx, run.Pitch, run.Analyses)
	if err != nil {
		log.Warn("Research failed, continuing without it", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return summary
}

func (o *Orchestrator) recordConsistency(run *Run) {
	if run.Consistency == nil {
		return
	}
	for severity, n := range run.Consistency.CountBySeverity() {
		if n > 0 {
			metrics.ConsistencyIssues.WithLabelValues(severity).Add(float64(n))
		}
	}
	for _, rule := range run.Consistency.SkippedRules {
		run.warn(errors.NewRuleEvaluationFailedError(rule, "rule skipped"))
	}
}

func (o *Orchestrator) coerce(run *Run, log logger.Logger) map[string]interface{} {
	report, err := run.Report.ToMap()
	if err != nil {
		log.Error("Report could not be converted for coercion", map[string]interface{}{"error": err.Error()})
		report = map[string]interface{}{}
	}
	if o.deps.Coercer == nil {
		return report
	}

	out := o.deps.Coercer.Coerce(report)
	if stamp, ok := out["_validation"].(map[string]interface{}); ok {
		if valid, _ := stamp["is_valid"].(bool); !valid {
			run.warn(errors.NewReportValidationFailedError([]string{"coerced report does not satisfy the report schema"}))
		}
	}
	return out
}

// retrievalError maps a fetch failure onto the error taxonomy.
func retrievalError(pitchID string, err error) *errors.StandardError {
	if stdErr, ok := errors.AsStandardError(err); ok {
		return stdErr
	}
	switch {
	case stderrors.Is(err, retrieval.ErrInvalidID):
		return errors.NewInvalidPitchIDError(err.Error())
	case stderrors.Is(err, retrieval.ErrNotFound):
		return errors.NewPitchNotFoundError(pitchID, err)
	default:
		return errors.NewDocumentStoreUnavailableError(pitchID, err)
	}
}

// BatchItem is one pitch of a batch run. Err is set only for retrieval
// failures.
type BatchItem struct {
	PitchID string
	Run     *Run
	Err     error
}

// RunBatch runs pitches one after another. Once ctx is done the remaining
// ids are reported as store-unavailable without being fetched.
func (o *Orchestrator) RunBatch(ctx context.Context, ids []string) []BatchItem {
	items := make([]BatchItem, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			items = append(items, BatchItem{PitchID: id, Err: errors.NewDocumentStoreUnavailableError(id, err)})
			continue
		}
		run, err := o.Run(ctx, id)
		items = append(items, BatchItem{PitchID: id, Run: run, Err: err})
	}
	return items
}

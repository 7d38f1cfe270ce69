package analyzepitch

import (
	"context"
	"fmt"
	"time"

	"pitch-analyzer/internal/common/camunda"
	"pitch-analyzer/internal/common/config"
	"pitch-analyzer/internal/common/errors"
	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/common/metrics"
	"pitch-analyzer/internal/common/validation"
	"pitch-analyzer/internal/pitch/orchestrator"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "analyze-pitch"

// Analyzer runs the pitch pipeline. *orchestrator.Orchestrator satisfies it.
type Analyzer interface {
	Run(ctx context.Context, pitchID string) (*orchestrator.Run, error)
}

type Handler struct {
	config     *Config
	logger     logger.Logger
	camunda    *camunda.Client
	analyzer   Analyzer
	errHandler *errors.ErrorHandler
	schema     *validation.Schema
	worker     *camunda.CamundaWorker
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Camunda      *camunda.Client
	Analyzer     Analyzer
	CustomConfig *Config
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Analyzer == nil {
		return nil, fmt.Errorf("%s: analyzer is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"worker": TaskType})

	schema, err := validation.GetSchemaFromJSON([]byte(inputSchema))
	if err != nil {
		return nil, fmt.Errorf("%s: input schema: %w", TaskType, err)
	}

	return &Handler{
		config:     workerConfig,
		logger:     log,
		camunda:    opts.Camunda,
		analyzer:   opts.Analyzer,
		errHandler: errors.NewErrorHandler(log),
		schema:     schema,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing pitch analysis", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("parse job variables: %v", err))
	}

	result := validation.Validate(variables, h.schema)
	if !result.Valid {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("validation errors: %v", result.GetErrorMessages()))
	}
	return &Input{PitchID: variables["pitchId"].(string)}, nil
}

// Execute runs one pipeline. Retrieval failures come back as
// StandardErrors; every other degradation is reported in the output.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	run, err := h.analyzer.Run(ctx, input.PitchID)
	if err != nil {
		return nil, err
	}
	if run == nil || run.Report == nil {
		return nil, errors.NewInternalError(fmt.Errorf("pipeline finished without a report for %s", input.PitchID))
	}

	output := &Output{
		PitchID:       input.PitchID,
		RunID:         run.RunID,
		Status:        StatusCompleted,
		FinalIRSScore: run.Report.FinalIRSScore,
		FinalCSScore:  run.Report.FinalCSScore,
		Uniqueness:    run.Report.Uniqueness,
		Warnings:      warningCodes(run.Warnings),
	}
	if run.Degraded {
		output.Status = StatusDegraded
	}
	if run.Scores != nil {
		output.InvestmentRecommendation = run.Scores.InvestmentRecommendation.Recommendation
	}
	if h.config.IncludeReport {
		output.Report = run.Output
	}
	return output, nil
}

func warningCodes(warnings []*errors.StandardError) []string {
	seen := make(map[errors.ErrorCode]bool, len(warnings))
	codes := make([]string, 0, len(warnings))
	for _, w := range warnings {
		if w == nil || seen[w.Code] {
			continue
		}
		seen[w.Code] = true
		codes = append(codes, string(w.Code))
	}
	return codes
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	h.logger.Info("Pitch analysis completed", map[string]interface{}{
		"jobKey":        job.GetKey(),
		"pitchId":       output.PitchID,
		"runId":         output.RunID,
		"status":        output.Status,
		"finalIrsScore": output.FinalIRSScore,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Register() error {
	if !h.config.Enabled {
		h.logger.Info("Worker is disabled, skipping registration", nil)
		return nil
	}
	if h.camunda == nil {
		return fmt.Errorf("%s: camunda client is required to register", TaskType)
	}

	h.worker = camunda.NewWorker(h.camunda.GetClient(), camunda.WorkerOptions{
		TaskType:      TaskType,
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       h.config.Timeout,
	}, h, h.logger)

	h.logger.Info("Worker registered", map[string]interface{}{
		"maxJobsActive": h.config.MaxJobsActive,
		"timeout":       h.config.Timeout.String(),
	})
	return nil
}

func (h *Handler) Close() {
	if h.worker != nil {
		h.worker.Stop()
		h.worker = nil
	}
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func extractErrorCode(err error) string {
	if stdErr, ok := errors.AsStandardError(err); ok {
		return string(stdErr.Code)
	}
	return "UNKNOWN_ERROR"
}

package publishanalysisevent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pitch-analyzer/internal/common/camunda"
	"pitch-analyzer/internal/common/config"
	"pitch-analyzer/internal/common/errors"
	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/common/metrics"
	"pitch-analyzer/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "publish-analysis-event"

// Publisher delivers an event. *aws.SNSClient satisfies it.
type Publisher interface {
	PublishEvent(ctx context.Context, subject string, attributes map[string]string, payload interface{}) (string, error)
}

type Handler struct {
	config     *Config
	logger     logger.Logger
	camunda    *camunda.Client
	publisher  Publisher
	errHandler *errors.ErrorHandler
	schema     *validation.Schema
	worker     *camunda.CamundaWorker
	now        func() time.Time
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Camunda      *camunda.Client
	Publisher    Publisher
	CustomConfig *Config
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if workerConfig.PublishEnabled && opts.Publisher == nil {
		return nil, fmt.Errorf("%s: publisher is required when publishing is enabled", TaskType)
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
		publisher:  opts.Publisher,
		errHandler: errors.NewErrorHandler(log),
		schema:     schema,
		now:        time.Now,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

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

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("decode input: %v", err))
	}
	return &input, nil
}

// Execute publishes the completion event for one analysis run.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	eventID := uuid.New().String()
	occurredAt := h.now().UTC().Format(time.RFC3339)

	if !h.config.PublishEnabled {
		h.logger.Info("Event publishing disabled", map[string]interface{}{"pitchId": input.PitchID})
		return &Output{EventID: eventID, EventStatus: StatusDisabled, PublishedAt: occurredAt}, nil
	}

	event := AnalysisEvent{
		EventID:                  eventID,
		EventType:                EventTypeAnalysisCompleted,
		PitchID:                  input.PitchID,
		RunID:                    input.RunID,
		Status:                   input.Status,
		FinalIRSScore:            input.FinalIRSScore,
		FinalCSScore:             input.FinalCSScore,
		InvestmentRecommendation: input.InvestmentRecommendation,
		OccurredAt:               occurredAt,
	}
	attributes := map[string]string{
		"eventType":      EventTypeAnalysisCompleted,
		"analysisStatus": input.Status,
	}

	messageID, err := h.publisher.PublishEvent(ctx, fmt.Sprintf("Pitch analysis %s", input.PitchID), attributes, event)
	if err != nil {
		if _, ok := errors.AsStandardError(err); ok {
			return nil, err
		}
		return nil, errors.NewEventPublishFailedError(h.config.TopicARN, err)
	}

	h.logger.Info("Analysis event published", map[string]interface{}{
		"pitchId":   input.PitchID,
		"runId":     input.RunID,
		"eventId":   eventID,
		"messageId": messageID,
	})
	return &Output{
		EventID:     eventID,
		MessageID:   messageID,
		EventStatus: StatusPublished,
		PublishedAt: occurredAt,
	}, nil
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
	}
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	code := "UNKNOWN_ERROR"
	if stdErr, ok := errors.AsStandardError(err); ok {
		code = string(stdErr.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
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
		"maxJobsActive":  h.config.MaxJobsActive,
		"publishEnabled": h.config.PublishEnabled,
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

// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"pitch-analyzer/internal/common/errors"
	"pitch-analyzer/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler completes or fails the job itself.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// HandlerFunc adapts a plain function to JobHandler.
type HandlerFunc func(client worker.JobClient, job entities.Job)

func (f HandlerFunc) Handle(client worker.JobClient, job entities.Job) { f(client, job) }

type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a job worker for opts.TaskType. A panicking handler is
// turned into an internal error instead of killing the poller goroutine.
func NewWorker(client zbc.Client, opts WorkerOptions, handler JobHandler, log logger.Logger) *CamundaWorker {
	log = log.WithFields(map[string]interface{}{"taskType": opts.TaskType})
	guarded := Recover(handler, errors.NewErrorHandler(log), log)

	step := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(guarded.Handle).
		MaxJobsActive(opts.MaxJobsActive)
	if opts.Timeout > 0 {
		step = step.Timeout(opts.Timeout)
	}

	return &CamundaWorker{
		worker:   step.Open(),
		logger:   log,
		taskType: opts.TaskType,
	}
}

// Recover wraps handler so a panic fails the job through errHandler.
func Recover(handler JobHandler, errHandler *errors.ErrorHandler, log logger.Logger) JobHandler {
	return HandlerFunc(func(client worker.JobClient, job entities.Job) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("Job handler panicked", map[string]interface{}{
					"jobKey": job.Key,
					"panic":  fmt.Sprint(rec),
				})
				errHandler.HandleJobError(context.Background(), client, job,
					errors.NewInternalError(fmt.Errorf("handler panicked: %v", rec)))
			}
		}()
		handler.Handle(client, job)
	})
}

func (w *CamundaWorker) TaskType() string {
	return w.taskType
}

// Stop closes the worker and waits for in-flight jobs.
func (w *CamundaWorker) Stop() {
	w.logger.Info("Stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}

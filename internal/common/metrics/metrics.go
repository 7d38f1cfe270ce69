// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Worker job metrics.
var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// Pipeline metrics.
var (
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitch_pipeline_runs_total",
			Help: "Pipeline runs by terminal state",
		},
		[]string{"status"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pitch_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"stage"},
	)

	ProviderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitch_provider_failures_total",
			Help: "Analysis provider failures by category",
		},
		[]string{"category"},
	)

	ConsistencyIssues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitch_consistency_issues_total",
			Help: "Consistency issues found by severity",
		},
		[]string{"severity"},
	)

	DegradedNormalizations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pitch_normalization_degraded_total",
			Help: "Runs that continued with a pass-through pitch after the normalizer failed",
		},
	)
)

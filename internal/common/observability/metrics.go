package observability

import (
	"context"
	"time"

	"pitch-analyzer/internal/common/logger"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records pipeline instruments through the OpenTelemetry
// metric SDK, exported on the Prometheus registry. A zero value records
// nothing.
type Observability struct {
	meterProvider *metric.MeterProvider
	runCounter    otelmetric.Int64Counter
	runDuration   otelmetric.Float64Histogram
	stageDuration otelmetric.Float64Histogram
	log           logger.Logger
}

// New registers the exporter on the default Prometheus registerer.
func New(serviceName string, log logger.Logger) *Observability {
	return NewWithRegisterer(serviceName, promclient.DefaultRegisterer, log)
}

func NewWithRegisterer(serviceName string, reg promclient.Registerer, log logger.Logger) *Observability {
	log = logger.Component(log, "observability")

	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		log.Warn("failed to create prometheus exporter, pipeline telemetry disabled", map[string]interface{}{
			"error": err.Error(),
		})
		return &Observability{log: log}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter(serviceName)

	runCounter, _ := meter.Int64Counter(
		"pitch_runs",
		otelmetric.WithDescription("Pipeline runs by terminal state"),
	)
	runDuration, _ := meter.Float64Histogram(
		"pitch_run_duration",
		otelmetric.WithDescription("End-to-end pipeline duration"),
		otelmetric.WithUnit("ms"),
	)
	stageDuration, _ := meter.Float64Histogram(
		"pitch_stage_duration",
		otelmetric.WithDescription("Pipeline stage duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		runCounter:    runCounter,
		runDuration:   runDuration,
		stageDuration: stageDuration,
		log:           log,
	}
}

func (o *Observability) RecordRun(ctx context.Context, status string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("status", status))
	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, attrs)
	}
	if o.runDuration != nil {
		o.runDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordStageDuration(ctx context.Context, stage string, duration time.Duration) {
	if o == nil || o.stageDuration == nil {
		return
	}
	o.stageDuration.Record(ctx, float64(duration.Microseconds())/1000, otelmetric.WithAttributes(
		attribute.String("stage", stage),
	))
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.meterProvider.Shutdown(ctx); err != nil && o.log != nil {
		o.log.Warn("meter provider shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}

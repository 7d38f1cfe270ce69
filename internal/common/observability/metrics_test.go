package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	"pitch-analyzer/internal/common/logger"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservability_RecordsRunsAndStages(t *testing.T) {
	reg := promclient.NewRegistry()
	obs := NewWithRegisterer("pitch-analyzer-test", reg, logger.NewTestLogger(t))
	t.Cleanup(obs.Shutdown)

	ctx := context.Background()
	obs.RecordRun(ctx, "done", 120*time.Millisecond)
	obs.RecordRun(ctx, "failed", 5*time.Millisecond)
	obs.RecordStageDuration(ctx, "analyze", 40*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "pitch_runs")
	assert.Contains(t, joined, "pitch_stage_duration")
}

func TestObservability_NilIsSafe(t *testing.T) {
	var obs *Observability

	assert.NotPanics(t, func() {
		obs.RecordRun(context.Background(), "done", time.Second)
		obs.RecordStageDuration(context.Background(), "fetch", time.Second)
		obs.Shutdown()
	})
}

func TestObservability_DuplicateRegistrationDegrades(t *testing.T) {
	reg := promclient.NewRegistry()
	first := NewWithRegisterer("svc", reg, logger.NewTestLogger(t))
	t.Cleanup(first.Shutdown)

	second := NewWithRegisterer("svc", reg, logger.NewTestLogger(t))

	assert.NotPanics(t, func() {
		second.RecordRun(context.Background(), "done", time.Second)
		second.Shutdown()
	})
}

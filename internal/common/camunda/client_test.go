package camunda

import (
	"context"
	"fmt"
	"testing"
	"time"

	"pitch-analyzer/internal/common/errors"
	"pitch-analyzer/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestClient(maxRetries int) *Client {
	return &Client{config: &ClientConfig{
		ConnectionTimeout: time.Second,
		RetryConfig: &RetryConfig{
			MaxRetries: maxRetries,
			BaseDelay:  time.Millisecond,
			MaxDelay:   2 * time.Millisecond,
		},
	}}
}

// ==========================
// ExecuteWithRetry
// ==========================

func TestClient_ExecuteWithRetry(t *testing.T) {
	tests := []struct {
		name          string
		errs          []error
		maxRetries    int
		expectedCalls int
		expectedCode  errors.ErrorCode
	}{
		{
			name:          "succeeds first time",
			errs:          []error{nil},
			maxRetries:    3,
			expectedCalls: 1,
		},
		{
			name:          "recovers from transient error",
			errs:          []error{fmt.Errorf("rpc error: code = Unavailable"), nil},
			maxRetries:    3,
			expectedCalls: 2,
		},
		{
			name: "gives up after max retries",
			errs: []error{
				fmt.Errorf("connection refused"),
				fmt.Errorf("connection refused"),
				fmt.Errorf("connection refused"),
			},
			maxRetries:    2,
			expectedCalls: 3,
			expectedCode:  errors.ErrCodeBrokerUnavailable,
		},
		{
			name:          "does not retry rejected command",
			errs:          []error{fmt.Errorf("rpc error: code = NotFound desc = job not found")},
			maxRetries:    3,
			expectedCalls: 1,
			expectedCode:  errors.ErrCodeBrokerRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := createTestClient(tt.maxRetries)
			calls := 0

			result, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
				e := tt.errs[calls]
				calls++
				if e != nil {
					return nil, e
				}
				return "ok", nil
			}, "activate")

			assert.Equal(t, tt.expectedCalls, calls)
			if tt.expectedCode == "" {
				require.NoError(t, err)
				assert.Equal(t, "ok", result)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.expectedCode), "got %v", err)
		})
	}
}

func TestClient_ExecuteWithRetry_ContextCancelled(t *testing.T) {
	c := &Client{config: &ClientConfig{RetryConfig: &RetryConfig{
		MaxRetries: 5,
		BaseDelay:  time.Hour,
		MaxDelay:   time.Hour,
	}}}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, fmt.Errorf("deadline exceeded")
	}, "topology")

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeBrokerUnavailable))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg      string
		expected bool
	}{
		{"dial tcp: connection refused", true},
		{"rpc error: code = DeadlineExceeded desc = context deadline exceeded", true},
		{"broken pipe", true},
		{"rpc error: code = NotFound", false},
		{"permission denied", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryableZeebeError(fmt.Errorf("%s", tt.msg)))
		})
	}
}

// ==========================
// Worker
// ==========================

func TestRecover_PassesJobThrough(t *testing.T) {
	log := logger.NewTestLogger(t)
	var seen int64

	h := Recover(HandlerFunc(func(client worker.JobClient, job entities.Job) {
		seen = job.Key
	}), errors.NewErrorHandler(log), log)

	h.Handle(nil, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42}})
	assert.Equal(t, int64(42), seen)
}

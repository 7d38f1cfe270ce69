package publishanalysisevent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"pitch-analyzer/internal/common/config"
	"pitch-analyzer/internal/common/errors"
	"pitch-analyzer/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Publisher Implementation
// ==========================

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(ctx context.Context, subject string, attributes map[string]string, payload interface{}) (string, error) {
	args := m.Called(ctx, subject, attributes, payload)
	return args.String(0), args.Error(1)
}

// ==========================
// Test Helper Functions
// ==========================

const testTopic = "arn:aws:sns:us-east-1:123456789012:pitch-analysis"

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func createValidConfig() *Config {
	return &Config{
		Enabled:        true,
		MaxJobsActive:  5,
		Timeout:        10 * time.Second,
		PublishEnabled: true,
		TopicARN:       testTopic,
	}
}

func createTestHandler(t *testing.T, publisher Publisher, cfg *Config) *Handler {
	h, err := NewHandler(HandlerOptions{
		CustomConfig: cfg,
		Publisher:    publisher,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	h.now = func() time.Time { return fixedNow }
	return h
}

func createTestInput() *Input {
	return &Input{
		PitchID:                  "pitch-1",
		RunID:                    "run-1",
		Status:                   "completed",
		FinalIRSScore:            72,
		FinalCSScore:             64,
		InvestmentRecommendation: "Investment Recommended",
	}
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "pitch-analysis",
		ElementId:          "Activity_PublishAnalysisEvent",
		CustomHeaders:      "{}",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

// ==========================
// Handler Creation Tests
// ==========================

func TestHandler_NewHandler(t *testing.T) {
	tests := []struct {
		name    string
		opts    HandlerOptions
		wantErr bool
		errMsg  string
	}{
		{
			name: "publishing enabled with publisher",
			opts: HandlerOptions{CustomConfig: createValidConfig(), Publisher: &MockPublisher{}},
		},
		{
			name:    "publishing enabled without publisher",
			opts:    HandlerOptions{CustomConfig: createValidConfig()},
			wantErr: true,
			errMsg:  "publisher is required",
		},
		{
			name: "publishing enabled without topic",
			opts: HandlerOptions{
				CustomConfig: &Config{Enabled: true, MaxJobsActive: 1, Timeout: time.Second, PublishEnabled: true},
				Publisher:    &MockPublisher{},
			},
			wantErr: true,
			errMsg:  "topic_arn is required",
		},
		{
			name: "notifications disabled in app config",
			opts: HandlerOptions{AppConfig: &config.Config{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Logger = logger.NewTestLogger(t)
			h, err := NewHandler(tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, TaskType, h.GetTaskType())
		})
	}
}

func TestCreateConfigFromAppConfig(t *testing.T) {
	app := &config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: true, MaxJobsActive: 3, Timeout: 5000},
	}}
	app.Notifications.SNS.Enabled = true
	app.Notifications.SNS.TopicARN = testTopic

	cfg := createConfigFromAppConfig(app, nil)

	assert.True(t, cfg.PublishEnabled)
	assert.Equal(t, testTopic, cfg.TopicARN)
	assert.Equal(t, 3, cfg.MaxJobsActive)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

// ==========================
// Input Parsing Tests
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h := createTestHandler(t, &MockPublisher{}, createValidConfig())

	input, err := h.parseInput(createMockJob(1, map[string]interface{}{
		"pitchId":        "pitch-1",
		"runId":          "run-1",
		"analysisStatus": "degraded",
		"finalIrsScore":  55,
	}))
	require.NoError(t, err)
	assert.Equal(t, "degraded", input.Status)
	assert.Equal(t, 55, input.FinalIRSScore)

	_, err = h.parseInput(createMockJob(2, map[string]interface{}{"pitchId": "pitch-1"}))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name           string
		config         *Config
		setupMock      func(m *MockPublisher)
		wantCode       errors.ErrorCode
		validateOutput func(t *testing.T, output *Output, m *MockPublisher)
	}{
		{
			name:   "event published",
			config: createValidConfig(),
			setupMock: func(m *MockPublisher) {
				m.On("PublishEvent", mock.Anything, "Pitch analysis pitch-1",
					map[string]string{"eventType": EventTypeAnalysisCompleted, "analysisStatus": "completed"},
					mock.MatchedBy(func(ev AnalysisEvent) bool {
						return ev.PitchID == "pitch-1" && ev.RunID == "run-1" && ev.FinalIRSScore == 72 &&
							ev.EventType == EventTypeAnalysisCompleted && ev.OccurredAt == "2025-03-14T09:30:00Z"
					})).Return("msg-1", nil)
			},
			validateOutput: func(t *testing.T, output *Output, m *MockPublisher) {
				assert.Equal(t, StatusPublished, output.EventStatus)
				assert.Equal(t, "msg-1", output.MessageID)
				assert.NotEmpty(t, output.EventID)
				assert.Equal(t, "2025-03-14T09:30:00Z", output.PublishedAt)
			},
		},
		{
			name:      "publishing disabled",
			config:    &Config{Enabled: true, MaxJobsActive: 1, Timeout: time.Second},
			setupMock: func(m *MockPublisher) {},
			validateOutput: func(t *testing.T, output *Output, m *MockPublisher) {
				assert.Equal(t, StatusDisabled, output.EventStatus)
				assert.Empty(t, output.MessageID)
				m.AssertNotCalled(t, "PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			},
		},
		{
			name:   "plain publisher error is classified",
			config: createValidConfig(),
			setupMock: func(m *MockPublisher) {
				m.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return("", fmt.Errorf("throttled"))
			},
			wantCode: errors.ErrCodeEventPublishFailed,
		},
		{
			name:   "standard error passes through",
			config: createValidConfig(),
			setupMock: func(m *MockPublisher) {
				m.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return("", errors.NewEventPublishFailedError(testTopic, fmt.Errorf("access denied")))
			},
			wantCode: errors.ErrCodeEventPublishFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher := &MockPublisher{}
			tt.setupMock(publisher)
			h := createTestHandler(t, publisher, tt.config)

			output, err := h.Execute(context.Background(), createTestInput())

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, tt.wantCode))
				stdErr, _ := errors.AsStandardError(err)
				assert.True(t, stdErr.Retryable)
				return
			}
			require.NoError(t, err)
			tt.validateOutput(t, output, publisher)
			publisher.AssertExpectations(t)
		})
	}
}

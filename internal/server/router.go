// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pitch-analyzer/internal/common/config"
	"pitch-analyzer/internal/common/errors"
	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/pitch/orchestrator"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxBatchSize bounds the ids accepted by /analyze/batch.
const MaxBatchSize = 100

// Analyzer is satisfied by *orchestrator.Orchestrator.
type Analyzer interface {
	Run(ctx context.Context, pitchID string) (*orchestrator.Run, error)
	RunBatch(ctx context.Context, ids []string) []orchestrator.BatchItem
}

// Deps wires the router. HealthCheck and Gatherer are optional.
type Deps struct {
	Analyzer    Analyzer
	HealthCheck func(ctx context.Context) error
	Gatherer    prometheus.Gatherer
	Logger      logger.Logger
}

type handler struct {
	deps Deps
	log  logger.Logger
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = logger.Component(log, "http")

	r := gin.New()
	r.Use(RequestID(), Logging(log), Recovery(log))

	h := &handler{deps: deps, log: log}
	r.GET("/health", h.health)
	r.POST("/analyze", h.analyze)
	r.POST("/analyze/batch", h.analyzeBatch)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return r
}

func (h *handler) health(c *gin.Context) {
	if h.deps.HealthCheck != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

type analyzeRequest struct {
	PitchID string `json:"pitch_id"`
}

func (h *handler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, string(errors.ErrCodeInvalidInput), "Request body must be JSON", err.Error())
		return
	}
	req.PitchID = strings.TrimSpace(req.PitchID)
	if req.PitchID == "" {
		respondError(c, http.StatusBadRequest, string(errors.ErrCodeInvalidInput), "Missing pitch_id parameter", nil)
		return
	}
	c.Set("pitchId", req.PitchID)

	run, err := h.deps.Analyzer.Run(c.Request.Context(), req.PitchID)
	if run != nil {
		c.Set("runId", run.RunID)
		c.Header("X-Run-Id", run.RunID)
	}
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, run.Output)
}

type batchRequest struct {
	PitchIDs []string `json:"pitch_ids"`
}

type BatchResult struct {
	PitchID   string                 `json:"pitch_id"`
	RunID     string                 `json:"run_id,omitempty"`
	Status    string                 `json:"status"`
	Result    map[string]interface{} `json:"result,omitempty"`
	Error     string                 `json:"error,omitempty"`
	ErrorCode string                 `json:"error_code,omitempty"`
}

func (h *handler) analyzeBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, string(errors.ErrCodeInvalidInput), "Request body must be JSON", err.Error())
		return
	}
	if len(req.PitchIDs) == 0 {
		respondError(c, http.StatusBadRequest, string(errors.ErrCodeInvalidInput), "Missing pitch_ids parameter", nil)
		return
	}
	if len(req.PitchIDs) > MaxBatchSize {
		respondError(c, http.StatusBadRequest, string(errors.ErrCodeInvalidInput),
			fmt.Sprintf("At most %d pitch_ids per batch", MaxBatchSize), nil)
		return
	}

	items := h.deps.Analyzer.RunBatch(c.Request.Context(), req.PitchIDs)
	results := make([]BatchResult, 0, len(items))
	for _, item := range items {
		res := BatchResult{PitchID: item.PitchID, Status: "success"}
		if item.Run != nil {
			res.RunID = item.Run.RunID
		}
		if item.Err != nil {
			stdErr := errors.Normalize(item.Err)
			res.Status = "error"
			res.Error = stdErr.Message
			res.ErrorCode = string(stdErr.Code)
		} else if item.Run != nil {
			res.Result = item.Run.Output
		}
		results = append(results, res)
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Server runs the router until its context is cancelled.
type Server struct {
	http *http.Server
	log  logger.Logger
}

func New(cfg config.ServerConfig, router http.Handler, log logger.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  config.GetDuration(cfg.ReadTimeout),
			WriteTimeout: config.GetDuration(cfg.WriteTimeout),
		},
		log: logger.Component(log, "http"),
	}
}

func (s *Server) Addr() string {
	return s.http.Addr
}

// ListenAndServe blocks until ctx is done, then drains for up to ten seconds.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", map[string]interface{}{"addr": s.http.Addr})
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("Shutting down HTTP server", nil)
	return s.http.Shutdown(shutdownCtx)
}

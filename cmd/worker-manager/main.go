package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pitch-analyzer/internal/common/aws"
	"pitch-analyzer/internal/common/camunda"
	"pitch-analyzer/internal/common/config"
	"pitch-analyzer/internal/common/database"
	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/common/observability"
	"pitch-analyzer/internal/pitch/orchestrator"
	"pitch-analyzer/internal/pitch/retrieval"

	ap "pitch-analyzer/internal/workers/pitch-analysis/analyze-pitch"
	pae "pitch-analyzer/internal/workers/pitch-analysis/publish-analysis-event"
)

const healthAddr = ":8080"

type registeredWorker interface {
	Register() error
	Close()
	GetTaskType() string
}

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if err := config.ValidateForWorkers(cfg); err != nil {
		zapLog.Fatal("invalid worker configuration", zap.Error(err))
	}
	zapLog.Info("Starting worker manager...", zap.String("backend", cfg.Retrieval.Backend))

	obs := observability.New("worker-manager", log)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	camundaClient, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.Timeout),
		RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		RetryConfig: &camunda.RetryConfig{
			MaxRetries: 10,
			BaseDelay:  2 * time.Second,
			MaxDelay:   30 * time.Second,
		},
	})
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer camundaClient.Close()
	zapLog.Info("Zeebe client connected successfully")

	var stores *database.Stores
	err = retryWithBackoff(func() error {
		if stores != nil {
			_ = stores.Close()
		}
		var err error
		stores, err = database.Open(ctx, cfg, log)
		if err != nil {
			return err
		}
		return stores.Ping(ctx)
	}, 15, 2*time.Second, log, "Document store connection")
	if err != nil {
		zapLog.Fatal("document store failed after retries", zap.Error(err))
	}
	defer stores.Close()
	zapLog.Info("Document store connected successfully", zap.Bool("cache", stores.Redis != nil))

	fetcher, err := retrieval.New(cfg, stores, log)
	if err != nil {
		zapLog.Fatal("retrieval setup failed", zap.Error(err))
	}
	orch, err := orchestrator.NewFromConfig(cfg, fetcher, obs, log)
	if err != nil {
		zapLog.Fatal("pipeline setup failed", zap.Error(err))
	}

	analyze, err := ap.NewHandler(ap.HandlerOptions{
		AppConfig: cfg,
		Camunda:   camundaClient,
		Analyzer:  orch,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("analyze-pitch worker setup failed", zap.Error(err))
	}

	var publisher pae.Publisher
	if cfg.Notifications.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.SNS.TopicARN)
		if err != nil {
			zapLog.Fatal("sns client setup failed", zap.Error(err))
		}
		publisher = snsClient
	}
	publish, err := pae.NewHandler(pae.HandlerOptions{
		AppConfig: cfg,
		Camunda:   camundaClient,
		Publisher: publisher,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("publish-analysis-event worker setup failed", zap.Error(err))
	}

	workers := []registeredWorker{analyze, publish}
	for _, w := range workers {
		if err := w.Register(); err != nil {
			zapLog.Fatal("worker registration failed", zap.String("taskType", w.GetTaskType()), zap.Error(err))
		}
	}

	healthSrv := &http.Server{Addr: healthAddr, Handler: healthMux(stores, camundaClient)}
	go func() {
		zapLog.Info("Health and metrics server listening", zap.String("addr", healthAddr))
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("health server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	for _, w := range workers {
		w.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	zapLog.Info("Worker manager stopped")
}

func healthMux(stores *database.Stores, client *camunda.Client) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "healthy"}
		code := http.StatusOK

		if err := stores.Ping(r.Context()); err != nil {
			status["status"] = "unhealthy"
			status["documentStore"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if err := client.HealthCheck(r.Context()); err != nil {
			status["status"] = "unhealthy"
			status["zeebe"] = err.Error()
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

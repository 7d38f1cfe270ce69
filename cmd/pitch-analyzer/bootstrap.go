package main

import (
	"context"
	"fmt"

	"pitch-analyzer/internal/common/config"
	"pitch-analyzer/internal/common/database"
	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/common/observability"
	"pitch-analyzer/internal/pitch/orchestrator"
	"pitch-analyzer/internal/pitch/retrieval"

	"go.uber.org/zap"
)

// runtime holds everything a command needs to run the pipeline.
type runtime struct {
	cfg    *config.Config
	zap    *zap.Logger
	log    logger.Logger
	stores *database.Stores
	obs    *observability.Observability
	orch   *orchestrator.Orchestrator
}

// loadConfig reads --config, or the default search path. With a documents
// directory the document store settings are not needed, so a missing or
// incomplete config falls back to the built-in defaults.
func (o *rootOptions) loadConfig(documentsDir string) (*config.Config, error) {
	if o.cfgFile != "" {
		return config.LoadFromFile(o.cfgFile)
	}
	cfg, err := config.Load()
	if err != nil && documentsDir != "" {
		return config.Default(), nil
	}
	return cfg, err
}

func (o *rootOptions) setup(ctx context.Context, documentsDir string) (*runtime, error) {
	cfg, err := o.loadConfig(documentsDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if o.debug {
		level = "debug"
	}
	zapLog := logger.New(level, cfg.Logging.Format)
	log := logger.NewZapAdapter(zapLog)

	rt := &runtime{cfg: cfg, zap: zapLog, log: log}
	rt.obs = observability.New(cfg.App.Name, log)

	var fetcher retrieval.Fetcher
	if documentsDir != "" {
		fetcher = retrieval.NewFileFetcher(documentsDir)
	} else {
		rt.stores, err = database.Open(ctx, cfg, log)
		if err != nil {
			rt.close()
			return nil, err
		}
		fetcher, err = retrieval.New(cfg, rt.stores, log)
		if err != nil {
			rt.close()
			return nil, err
		}
	}

	rt.orch, err = orchestrator.NewFromConfig(cfg, fetcher, rt.obs, log)
	if err != nil {
		rt.close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) close() {
	if rt.stores != nil {
		_ = rt.stores.Close()
	}
	rt.obs.Shutdown()
	_ = rt.zap.Sync()
}

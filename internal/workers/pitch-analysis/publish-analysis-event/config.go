package publishanalysisevent

import (
	"fmt"
	"time"

	"pitch-analyzer/internal/common/config"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// PublishEnabled is false when no SNS topic is configured; jobs then
	// complete with status "disabled".
	PublishEnabled bool   `mapstructure:"publish_enabled"`
	TopicARN       string `mapstructure:"topic_arn"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.PublishEnabled && c.TopicARN == "" {
		return fmt.Errorf("topic_arn is required when publishing is enabled")
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}
	if workerCfg, exists := appConfig.Workers[TaskType]; exists {
		cfg.Enabled = workerCfg.Enabled
		if workerCfg.MaxJobsActive > 0 {
			cfg.MaxJobsActive = workerCfg.MaxJobsActive
		}
		if workerCfg.Timeout > 0 {
			cfg.Timeout = config.GetDuration(workerCfg.Timeout)
		}
	}
	cfg.PublishEnabled = appConfig.Notifications.SNS.Enabled
	cfg.TopicARN = appConfig.Notifications.SNS.TopicARN
	return cfg
}

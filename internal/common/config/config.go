// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Currency      CurrencyConfig          `mapstructure:"currency"`
	Scoring       ScoringConfig           `mapstructure:"scoring"`
	Retrieval     RetrievalConfig         `mapstructure:"retrieval"`
	Research      ResearchConfig          `mapstructure:"research"`
	Report        ReportConfig            `mapstructure:"report"`
	Server        ServerConfig            `mapstructure:"server"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// RedisConfig configures the document cache. An empty address disables it.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// --- Pipeline Configuration ---

// CurrencyConfig holds the base currency and exchange-rate overrides.
type CurrencyConfig struct {
	Base      string             `mapstructure:"base"`
	Rates     map[string]float64 `mapstructure:"rates"`
	RatesFile string             `mapstructure:"rates_file"`
}

type ScoringThresholds struct {
	Excellent    float64 `mapstructure:"excellent"`
	Good         float64 `mapstructure:"good"`
	Average      float64 `mapstructure:"average"`
	BelowAverage float64 `mapstructure:"below_average"`
}

// ScoringConfig overrides category weights and recommendation bands. Values
// from WeightsFile are applied first, inline values win.
type ScoringConfig struct {
	Weights     map[string]float64 `mapstructure:"weights"`
	Thresholds  ScoringThresholds  `mapstructure:"thresholds"`
	WeightsFile string             `mapstructure:"weights_file"`
}

const (
	BackendPostgres      = "postgres"
	BackendElasticsearch = "elasticsearch"
)

// RetrievalConfig selects the document store holding pitch documents.
type RetrievalConfig struct {
	Backend     string `mapstructure:"backend"`
	Table       string `mapstructure:"table"`
	Index       string `mapstructure:"index"`
	CacheTTL    int    `mapstructure:"cache_ttl"` // milliseconds
	CachePrefix string `mapstructure:"cache_prefix"`
}

type ResearchConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	MaxClaims int  `mapstructure:"max_claims"`
}

// ReportConfig points at a replacement for the built-in report schema.
type ReportConfig struct {
	SchemaFile string `mapstructure:"schema_file"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int `mapstructure:"write_timeout"` // milliseconds
}

// NotificationConfig holds settings for the publish-analysis-event worker.
type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

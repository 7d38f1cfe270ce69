package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const postgresConfig = `
app:
  name: pitch-analyzer-test
database:
  postgres:
    host: localhost
    database: pitches
    user: analyzer
scoring:
  weights:
    Finance: 0.4
    MarketAnalysis: 0.3
currency:
  base: usd
  rates:
    EUR: 1.1
`

// ==========================
// LoadFromFile
// ==========================

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, postgresConfig))
	require.NoError(t, err)

	assert.Equal(t, "pitch-analyzer-test", cfg.App.Name)
	assert.Equal(t, BackendPostgres, cfg.Retrieval.Backend)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "pitches", cfg.Retrieval.Table)
	assert.Equal(t, "pitch:doc:", cfg.Retrieval.CachePrefix)
	assert.Equal(t, 300000, cfg.Retrieval.CacheTTL)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "USD", cfg.Currency.Base)
	assert.True(t, cfg.Research.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 10, cfg.Camunda.MaxJobsActive)
}

func TestLoadFromFile_MapKeysAreLowercased(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, postgresConfig))
	require.NoError(t, err)

	// Weight keys are matched case-insensitively by the scoring wiring.
	assert.InDelta(t, 0.4, cfg.Scoring.Weights["finance"], 1e-9)
	assert.InDelta(t, 0.3, cfg.Scoring.Weights["marketanalysis"], 1e-9)
	assert.InDelta(t, 1.1, cfg.Currency.Rates["eur"], 1e-9)
}

func TestLoadFromFile_ExpandsEnvVars(t *testing.T) {
	t.Setenv("PITCH_TEST_DB_PASSWORD", "s3cret")
	path := writeConfig(t, `
database:
  postgres:
    host: localhost
    database: pitches
    user: analyzer
    password: ${PITCH_TEST_DB_PASSWORD}
`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
}

func TestLoadFromFile_ElasticsearchBackend(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, `
retrieval:
  backend: Elasticsearch
  index: decks
database:
  elasticsearch:
    addresses:
      - http://es-1:9200
      - http://es-2:9200
research:
  enabled: false
`))
	require.NoError(t, err)

	assert.Equal(t, BackendElasticsearch, cfg.Retrieval.Backend)
	assert.Equal(t, "decks", cfg.Retrieval.Index)
	assert.Equal(t, "http://es-1:9200", cfg.Database.Elasticsearch.GetURL())
	assert.False(t, cfg.Research.Enabled)
}

func TestLoadFromFile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		errorHas string
	}{
		{
			name:     "missing postgres host",
			body:     "database:\n  postgres:\n    database: pitches\n    user: analyzer\n",
			errorHas: "database.postgres.host is required",
		},
		{
			name:     "missing elasticsearch address",
			body:     "retrieval:\n  backend: elasticsearch\n",
			errorHas: "database.elasticsearch.addresses or url is required",
		},
		{
			name:     "unknown backend",
			body:     "retrieval:\n  backend: mongodb\n",
			errorHas: "retrieval.backend must be",
		},
		{
			name:     "non-USD base",
			body:     "database:\n  postgres:\n    host: db\n    database: pitches\n    user: analyzer\ncurrency:\n  base: eur\n",
			errorHas: "currency.base must be USD",
		},
		{
			name:     "negative weight",
			body:     "database:\n  postgres:\n    host: db\n    database: pitches\n    user: analyzer\nscoring:\n  weights:\n    Finance: -1\n",
			errorHas: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorHas)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

// ==========================
// Helpers
// ==========================

func TestValidateForWorkers(t *testing.T) {
	assert.Error(t, ValidateForWorkers(&Config{}))
	assert.NoError(t, ValidateForWorkers(&Config{Camunda: CamundaConfig{BrokerAddress: "localhost:26500"}}))
}

func TestWorkerConfigLookup(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"analyze-pitch": {Enabled: false, MaxJobsActive: 2, Timeout: 60000, MaxRetries: 1},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "analyze-pitch"))
	assert.True(t, IsWorkerEnabled(cfg, "publish-analysis-event"))
	assert.Equal(t, 2, GetWorkerConfig(cfg, "analyze-pitch").MaxJobsActive)

	fallback := GetWorkerConfig(cfg, "publish-analysis-event")
	assert.True(t, fallback.Enabled)
	assert.Equal(t, 5, fallback.MaxJobsActive)
	assert.Equal(t, 3, fallback.MaxRetries)
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	dsn := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "pitches", SSLMode: "disable"}.GetDSN()
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=pitches sslmode=disable", dsn)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, int64(1500), GetDuration(1500).Milliseconds())
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.Research.Enabled)
	assert.Equal(t, "USD", cfg.Currency.Base)
	assert.Equal(t, BackendPostgres, cfg.Retrieval.Backend)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Error(t, validateConfig(cfg), "defaults carry no document store")
}

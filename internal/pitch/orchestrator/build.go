package orchestrator

import (
	"fmt"
	"strings"

	"pitch-analyzer/internal/common/config"
	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/common/observability"
	"pitch-analyzer/internal/common/validation"
	"pitch-analyzer/internal/pitch/consistency"
	"pitch-analyzer/internal/pitch/consolidator"
	"pitch-analyzer/internal/pitch/currency"
	"pitch-analyzer/internal/pitch/normalizer"
	"pitch-analyzer/internal/pitch/providers"
	"pitch-analyzer/internal/pitch/research"
	"pitch-analyzer/internal/pitch/scoring"
)

// NewFromConfig wires the default collaborators around fetcher. Override
// files are applied before inline config values.
func NewFromConfig(cfg *config.Config, fetcher Fetcher, obs *observability.Observability, log logger.Logger) (*Orchestrator, error) {
	rates, err := currencyRates(cfg.Currency)
	if err != nil {
		return nil, err
	}
	scoringCfg, err := scoringConfig(cfg.Scoring)
	if err != nil {
		return nil, err
	}
	schema, err := validation.LoadSchemaFile(cfg.Report.SchemaFile)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	deps := Deps{
		Fetcher:       fetcher,
		Normalizer:    normalizer.New(currency.NewConverter(rates, log), log),
		Scorer:        scoring.NewEngine(scoringCfg, log),
		Checker:       consistency.NewChecker(log),
		Consolidator:  consolidator.New(log),
		Coercer:       schemaCoercer(schema),
		Observability: obs,
	}
	for _, p := range providers.Default(log) {
		deps.Providers = append(deps.Providers, p)
	}
	if cfg.Research.Enabled {
		deps.Researcher = research.NewSimulated(research.Config{MaxClaims: cfg.Research.MaxClaims}, log)
	}
	return New(deps, log)
}

func schemaCoercer(schema *validation.Schema) Coercer {
	return CoerceFunc(func(report map[string]interface{}) map[string]interface{} {
		return validation.Coerce(report, schema)
	})
}

func currencyRates(cfg config.CurrencyConfig) (map[string]float64, error) {
	rates := map[string]float64{}
	if cfg.RatesFile != "" {
		fromFile, err := currency.LoadRatesFile(cfg.RatesFile)
		if err != nil {
			return nil, fmt.Errorf("currency: %w", err)
		}
		for code, r := range fromFile {
			rates[code] = r
		}
	}
	for code, r := range cfg.Rates {
		rates[code] = r
	}
	return rates, nil
}

func scoringConfig(cfg config.ScoringConfig) (scoring.Config, error) {
	out := scoring.Config{Weights: map[string]float64{}}
	if cfg.WeightsFile != "" {
		f, err := scoring.LoadWeightsFile(cfg.WeightsFile)
		if err != nil {
			return out, fmt.Errorf("scoring: %w", err)
		}
		for category, w := range f.Weights {
			out.Weights[category] = w
		}
		out.Thresholds = f.Thresholds
	}
	// viper lower-cases map keys.
	for key, w := range cfg.Weights {
		out.Weights[canonicalCategory(key)] = w
	}

	inline := scoring.Thresholds{
		Excellent:    cfg.Thresholds.Excellent,
		Good:         cfg.Thresholds.Good,
		Average:      cfg.Thresholds.Average,
		BelowAverage: cfg.Thresholds.BelowAverage,
	}
	if inline.Excellent > 0 {
		out.Thresholds.Excellent = inline.Excellent
	}
	if inline.Good > 0 {
		out.Thresholds.Good = inline.Good
	}
	if inline.Average > 0 {
		out.Thresholds.Average = inline.Average
	}
	if inline.BelowAverage > 0 {
		out.Thresholds.BelowAverage = inline.BelowAverage
	}
	return out, nil
}

func canonicalCategory(key string) string {
	for _, category := range scoring.Categories {
		if strings.EqualFold(category, key) {
			return category
		}
	}
	return key
}

// Package providers holds the rule-based analysis providers. Each provider
// scores one category of a normalized pitch and never mutates it.
package providers

import (
	"context"
	"fmt"
	"math"
	"strings"

	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/models"
	"pitch-analyzer/internal/pitch/parse"
)

// Data types reported on metrics.
const (
	dataCurrency    = "currency"
	dataPercent     = "percentage"
	dataRatio       = "ratio"
	dataText        = "text"
	dataCategorical = "categorical"
	dataCount       = "count"
	dataDuration    = "duration"
)

type analyzeFunc func(p *models.NormalizedPitch) (map[string]models.MetricResult, []string)

// Heuristic scores one category from the pitch fields with fixed rules.
type Heuristic struct {
	category    string
	reliability float64
	analyze     analyzeFunc
	log         logger.Logger
}

func newHeuristic(category string, reliability float64, fn analyzeFunc, log logger.Logger) *Heuristic {
	return &Heuristic{
		category:    category,
		reliability: reliability,
		analyze:     fn,
		log:         logger.Component(log, "provider").With(map[string]interface{}{"category": category}),
	}
}

func (h *Heuristic) Category() string {
	return h.category
}

// Analyze returns the category result. The pitch is read, never written.
func (h *Heuristic) Analyze(ctx context.Context, p *models.NormalizedPitch) (*models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%s: nil pitch", h.category)
	}

	metrics, comments := h.analyze(p)
	avg := categoryAverage(metrics)
	reliability := h.reliability
	if comments == nil {
		comments = []string{}
	}

	h.log.Debug("Category analyzed", map[string]interface{}{
		"metrics":         len(metrics),
		"categoryAverage": avg,
	})

	return &models.AnalysisResult{
		Metrics:         metrics,
		Comments:        comments,
		CategoryAverage: &avg,
		CategoryMetadata: &models.CategoryMetadata{
			DataReliabilityScore: &reliability,
			MetricsEvaluated:     len(metrics),
			Provider:             "heuristic",
		},
	}, nil
}

// Default returns every provider in report order.
func Default(log logger.Logger) []*Heuristic {
	return []*Heuristic{
		NewMarketAnalysis(log),
		NewCompetitiveLandscape(log),
		NewProductMarketFit(log),
		NewFinance(log),
		NewWhyAnalysis(log),
		NewScalability(log),
		NewRiskMitigation(log),
		NewPricingGTM(log),
	}
}

// ==========================
// Metric helpers
// ==========================

// categoryAverage is the rounded mean of the metrics that scored above zero.
func categoryAverage(metrics map[string]models.MetricResult) int {
	sum, n := 0, 0
	for _, m := range metrics {
		if m.FinalScore > 0 {
			sum += m.FinalScore
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}

func scored(claimed, validated interface{}, dataType, unit string, confidence float64, score int, comment string) models.MetricResult {
	return models.MetricResult{
		Claimed:       claimed,
		Validated:     validated,
		DataType:      dataType,
		Unit:          unit,
		Confidence:    confidence,
		RawScore:      score,
		FinalScore:    score,
		Comments:      comment,
		Concerns:      []string{},
		Questionnaire: []string{},
	}
}

// missing is the metric reported when the pitch has no value for it.
func missing(label, dataType, unit string) models.MetricResult {
	m := scored(nil, nil, dataType, unit, 0, 0, fmt.Sprintf("No %s data provided.", label))
	m.Concerns = []string{fmt.Sprintf("Missing %s data makes the assessment incomplete.", label)}
	m.Questionnaire = []string{
		fmt.Sprintf("Can you provide your %s figures?", label),
		fmt.Sprintf("What methodology would you use to calculate %s?", label),
	}
	return m
}

// band scores v against descending cut-offs; below the last one scores 2.
func band(v float64, cutoffs [4]float64) int {
	scores := [4]int{10, 8, 6, 4}
	for i, c := range cutoffs {
		if v >= c {
			return scores[i]
		}
	}
	return 2
}

func unitOf(a models.CurrencyAmount) string {
	if a.Currency == "" {
		return models.BaseCurrency
	}
	return a.Currency
}

func percent(v float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", v), ".0") + "%"
}

// extra looks up an unmapped source value by its dotted path.
func extra(p *models.NormalizedPitch, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := p.Extras[k]; ok && v != nil && v != "" {
			return v, true
		}
	}
	return nil, false
}

func domainOr(p *models.NormalizedPitch, fallback string) string {
	if d := strings.TrimSpace(p.Domain()); d != "" {
		return d
	}
	return fallback
}

// growthRate returns the stated year-on-year growth, or the growth between
// the last two revenue entries.
func growthRate(p *models.NormalizedPitch) (float64, bool) {
	if v, ok := parse.PercentValue(p.Finance.YearOnYearGrowth); ok {
		return v, true
	}
	var values []float64
	for _, r := range p.Finance.Revenues {
		if r.Value != nil {
			values = append(values, *r.Value)
		}
	}
	if len(values) < 2 {
		return 0, false
	}
	prev, last := values[len(values)-2], values[len(values)-1]
	if prev <= 0 {
		return 0, false
	}
	return (last - prev) / prev * 100, true
}

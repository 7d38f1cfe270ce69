// Package consolidator assembles the final report from the normalized pitch,
// the analyses, the scoring result and the consistency report.
package consolidator

import (
	"fmt"
	"math"
	"strings"
	"time"

	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/models"
	"pitch-analyzer/internal/pitch/scoring"
)

const (
	maxPros         = 3
	maxRedFlags     = 3
	minQuestions    = 5
	defaultUnique   = 50
	defaultReliable = 0.7
	unknownClientID = "Unknown"
)

// Input carries everything one run produced.
type Input struct {
	PitchID       string
	Pitch         *models.NormalizedPitch
	Analyses      models.Analyses
	Scores        *models.ScoringResult
	Consistency   *models.ConsistencyReport
	Research      *models.ResearchSummary
	ProviderCount int
}

type Consolidator struct {
	log logger.Logger
	now func() time.Time
}

func New(log logger.Logger) *Consolidator {
	return &Consolidator{log: logger.Component(log, "consolidator"), now: time.Now}
}

// Consolidate builds the report. Missing inputs fall back to defaults; it
// never fails.
func (c *Consolidator) Consolidate(in Input) *models.ConsolidatedReport {
	now := c.now()
	p := in.Pitch
	if p == nil {
		p = models.NewTemplatePitch()
	}
	analyses := in.Analyses
	if analyses == nil {
		analyses = models.Analyses{}
	}

	details := companyDetails(p, now)
	clientID := orDefault(models.Deref(p.Metadata.ClientID), unknownClientID)
	pitchID := orDefault(in.PitchID, clientID)

	irs, cs, uniqueness := finalScores(in, analyses)

	report := &models.ConsolidatedReport{
		PitchID:  pitchID,
		ClientID: clientID,
		Metadata: models.ReportMetadata{
			GeneratedAt:            now.UTC().Format(time.RFC3339),
			AnalysisVersion:        scoring.Version,
			DataSourcesUsed:        sourceCount(in.Research),
			TotalValidationPoints:  validationPoints(analyses),
			ProcessingTimeEstimate: processingEstimate(providerCount(in, analyses)),
		},
		ValidationSummary:      analyses,
		Comments:               []string{mainComment(analyses, details.Name)},
		Details:                details,
		Summary:                fmt.Sprintf("%s presents an investment opportunity in the %s sector, with validated market potential and growth opportunities.", details.Name, details.Domain),
		Pros:                   pros(analyses),
		RedFlags:               redFlags(analyses),
		AIQuestionnaire:        questionnaire(analyses),
		DataQualityAssessment:  dataQuality(analyses, in.Consistency, in.Research),
		ForecastingMethodology: forecastingMethodology(),
		FinalIRSScore:          irs,
		FinalCSScore:           cs,
		Uniqueness:             uniqueness,
	}

	c.log.Info("Report consolidated", map[string]interface{}{
		"pitchId":       report.PitchID,
		"finalIrsScore": report.FinalIRSScore,
		"finalCsScore":  report.FinalCSScore,
		"pros":          len(report.Pros),
		"redFlags":      len(report.RedFlags),
	})
	return report
}

// ==========================
// Ordering
// ==========================

var reportOrder = []string{
	models.CategoryMarketAnalysis,
	models.CategoryCompetitiveLandscape,
	models.CategoryProductMarketFit,
	models.CategoryFinance,
	models.CategoryWhyAnalysis,
	models.CategoryScalability,
	models.CategoryRiskMitigation,
	models.CategoryPricingGTM,
}

// succeeded lists non-failed categories, known ones first in report order.
func succeeded(analyses models.Analyses) []string {
	known := map[string]bool{}
	var out []string
	for _, c := range reportOrder {
		known[c] = true
		if r := analyses[c]; r != nil && r.Error == "" {
			out = append(out, c)
		}
	}
	for _, c := range analyses.Categories() {
		if r := analyses[c]; !known[c] && r != nil && r.Error == "" {
			out = append(out, c)
		}
	}
	return out
}

func result(analyses models.Analyses, category string) (*models.AnalysisResult, bool) {
	r := analyses[category]
	return r, r != nil && r.Error == ""
}

// firstMetric returns the first metric, by name, that satisfies match.
func firstMetric(r *models.AnalysisResult, match func(models.MetricResult) bool) (models.MetricResult, bool) {
	for _, name := range r.MetricNames() {
		if m := r.Metrics[name]; match(m) {
			return m, true
		}
	}
	return models.MetricResult{}, false
}

// ==========================
// Narrative
// ==========================

func mainComment(analyses models.Analyses, name string) string {
	strong := func(m models.MetricResult) bool { return m.FinalScore >= 8 }
	highlights := []struct {
		category, text string
	}{
		{models.CategoryProductMarketFit, "%s demonstrates strong performance in ProductMarketFit with validated metrics and market alignment."},
		{models.CategoryMarketAnalysis, "%s operates in an attractive market with validated TAM and growth potential."},
		{models.CategoryFinance, "%s shows strong financial fundamentals with sustainable growth trajectory."},
	}
	for _, h := range highlights {
		if r, found := result(analyses, h.category); found {
			if _, hit := firstMetric(r, strong); hit {
				return fmt.Sprintf(h.text, name)
			}
		}
	}
	return fmt.Sprintf("%s presents an investment opportunity with several areas of notable strength.", name)
}

var (
	genericPros = []string{
		"The sector is highly competitive with established players, which validates demand for the category.",
		"Overall Risk Assessment: the company appears to have a strong position in terms of capital efficiency but may face risks related to capital sustainability, operational complexity, and regulatory compliance.",
		"This suggests a strong business model with high customer value and efficient customer acquisition.",
	}
	genericRedFlags = []string{
		"If the startup's TAM is overstated, this could inflate their growth projections and valuation.",
		"Risks and Mitigation: risks include regulatory hurdles, high competition, and rapid technological change.",
		"Risk Assessment: Without COGS, it's impossible to accurately assess the gross margin and therefore the profitability of the company.",
	}
)

// list keeps insertion order and drops blanks and duplicates.
type list struct {
	items []string
	seen  map[string]bool
}

func (l *list) add(s string) {
	s = strings.TrimSpace(s)
	if s == "" || l.seen[s] {
		return
	}
	if l.seen == nil {
		l.seen = map[string]bool{}
	}
	l.seen[s] = true
	l.items = append(l.items, s)
}

func (l *list) limit(n int) []string {
	if len(l.items) > n {
		return l.items[:n]
	}
	if l.items == nil {
		return []string{}
	}
	return l.items
}

func pros(analyses models.Analyses) []string {
	var out list
	for _, category := range succeeded(analyses) {
		r := analyses[category]
		switch category {
		case models.CategoryCompetitiveLandscape:
			if m, has := r.Metric("competition"); has && strings.Contains(strings.ToLower(m.Comments), "competitive") {
				out.add(m.Comments)
			}
		case models.CategoryFinance:
			for _, name := range []string{"ltv_cac", "yoy_growth", "runway"} {
				if m, has := r.Metric(name); has && strings.Contains(m.Comments, "Strong") {
					out.add(m.Comments)
					break
				}
			}
		case models.CategoryMarketAnalysis:
			if m, has := r.Metric("tam"); has && m.HasValidated() {
				out.add(m.Comments)
			}
		case models.CategoryProductMarketFit:
			if m, hit := firstMetric(r, func(m models.MetricResult) bool {
				return strings.Contains(strings.ToLower(m.Comments), "strong")
			}); hit {
				out.add(m.Comments)
			}
		}
	}

	if len(out.items) < maxPros {
		if _, has := result(analyses, models.CategoryCompetitiveLandscape); has {
			out.add(genericPros[0])
		}
		out.add(genericPros[1])
		out.add(genericPros[2])
	}
	return out.limit(maxPros)
}

func redFlags(analyses models.Analyses) []string {
	var out list
	hasConcern := func(m models.MetricResult) bool { return len(m.Concerns) > 0 }
	for _, category := range succeeded(analyses) {
		r := analyses[category]
		switch category {
		case models.CategoryMarketAnalysis:
			if m, has := r.Metric("tam"); has && len(m.Concerns) > 0 {
				out.add(m.Concerns[0])
			}
		case models.CategoryRiskMitigation, models.CategoryProductMarketFit, models.CategoryFinance:
			if m, hit := firstMetric(r, hasConcern); hit {
				out.add(m.Concerns[0])
			}
		}
	}

	if len(out.items) < maxRedFlags {
		for _, flag := range genericRedFlags {
			out.add(flag)
		}
	}
	return out.limit(maxRedFlags)
}

const (
	questionMarket      = "How do you validate your total addressable market assumptions and projections?"
	questionPMF         = "What evidence supports your product-market fit claims and customer validation?"
	questionFinance     = "What is your path to profitability and key financial milestones?"
	questionCompetition = "What are the company's most significant competitive advantages and defensive moats?"
	questionKPI         = "How do you measure success and track key performance indicators across the business?"
)

func hasQuestionnaire(analyses models.Analyses, category string, metrics ...string) bool {
	r, found := result(analyses, category)
	if !found {
		return false
	}
	for _, name := range metrics {
		if m, has := r.Metric(name); has && len(m.Questionnaire) > 0 && m.Questionnaire[0] != "" {
			return true
		}
	}
	return false
}

func questionnaire(analyses models.Analyses) []string {
	var out list
	if hasQuestionnaire(analyses, models.CategoryMarketAnalysis, "tam") {
		out.add(questionMarket)
	}
	if hasQuestionnaire(analyses, models.CategoryProductMarketFit, "ltv_cac", "retention", "usp") {
		out.add(questionPMF)
	}
	if hasQuestionnaire(analyses, models.CategoryFinance, "gross_margin", "runway") {
		out.add(questionFinance)
	}
	if _, found := result(analyses, models.CategoryCompetitiveLandscape); found {
		out.add(questionCompetition)
	}
	out.add(questionKPI)

	for _, q := range []string{questionMarket, questionPMF, questionFinance, questionCompetition} {
		if len(out.items) >= minQuestions {
			break
		}
		out.add(q)
	}
	return out.items
}

// ==========================
// Quality & scores
// ==========================

func completeness(analyses models.Analyses) (filled, total int) {
	for _, category := range succeeded(analyses) {
		for _, m := range analyses[category].Metrics {
			total++
			if m.HasValidated() {
				filled++
			}
		}
	}
	return filled, total
}

func validationPoints(analyses models.Analyses) int {
	filled, _ := completeness(analyses)
	return filled
}

func dataQuality(analyses models.Analyses, consistency *models.ConsistencyReport, research *models.ResearchSummary) models.DataQualityAssessment {
	filled, total := completeness(analyses)
	pct := 0
	if total > 0 {
		pct = int(math.Round(float64(filled) / float64(total) * 100))
	}
	quality := "High"
	switch {
	case pct < 50:
		quality = "Low"
	case pct < 80:
		quality = "Medium"
	}

	var reliabilities []float64
	failed := []string{}
	for _, category := range analyses.Categories() {
		r := analyses[category]
		if r == nil || r.Error != "" {
			failed = append(failed, category)
			continue
		}
		if v, has := r.Reliability(); has {
			reliabilities = append(reliabilities, v)
		}
	}
	reliability := defaultReliable
	if len(reliabilities) > 0 {
		sum := 0.0
		for _, v := range reliabilities {
			sum += v
		}
		reliability = math.Round(sum/float64(len(reliabilities))*100) / 100
	}

	assessment := models.DataQualityAssessment{
		OverallQuality:   quality,
		DataCompleteness: fmt.Sprintf("%d%%", pct),
		SourceDiversity:  sourceDiversity(research),
		ReliabilityScore: reliability,
		FailedCategories: failed,
		Recommendations: []string{
			"Enhance data collection for low-quality categories",
			"Increase source diversity for better validation",
			"Regular updates recommended for time-sensitive metrics",
		},
	}
	if consistency != nil {
		assessment.ConsistencyScore = consistency.ConsistencyScore
		assessment.ConsistencyIssues = len(consistency.Issues)
	}
	return assessment
}

func sourceDiversity(research *models.ResearchSummary) string {
	if research == nil {
		return "Low"
	}
	kinds := map[string]bool{}
	for _, s := range research.Sources {
		if s.Type != "" {
			kinds[s.Type] = true
		}
	}
	switch {
	case len(kinds) >= 3:
		return "High"
	case len(kinds) == 2:
		return "Medium"
	default:
		return "Low"
	}
}

func sourceCount(research *models.ResearchSummary) int {
	if research == nil {
		return 0
	}
	return len(research.Sources)
}

func providerCount(in Input, analyses models.Analyses) int {
	if in.ProviderCount > 0 {
		return in.ProviderCount
	}
	return len(analyses)
}

func processingEstimate(providers int) string {
	switch {
	case providers <= 2:
		return "2-5 minutes"
	case providers <= 5:
		return "5-10 minutes"
	default:
		return "10-15 minutes"
	}
}

// finalScores derives the investment readiness score, the confidence score
// and uniqueness.
func finalScores(in Input, analyses models.Analyses) (irs, cs, uniqueness int) {
	overall := scoring.NeutralScore
	if in.Scores != nil {
		overall = in.Scores.OverallAdjusted
	}
	irs = int(math.Round(overall))

	usable := 0
	for _, r := range analyses {
		if r.Usable() {
			usable++
		}
	}
	coverage := 5.0
	if n := providerCount(in, analyses); n > 0 {
		coverage = 5 + 5*float64(usable)/float64(n)
	}
	if in.Consistency != nil {
		coverage = (coverage + in.Consistency.ConsistencyScore) / 2
	}
	cs = int(math.Round(coverage))

	uniqueness = defaultUnique
	if r, found := analyses.Usable(models.CategoryCompetitiveLandscape); found {
		uniqueness = *r.CategoryAverage * 10
	}
	return irs, cs, uniqueness
}

func forecastingMethodology() models.ForecastingMethodology {
	return models.ForecastingMethodology{
		Approach: "Multi-method validation combining quantitative analysis with qualitative assessment",
		ValidationFramework: models.ValidationFramework{
			QuantitativeMethods: []string{
				"Statistical analysis of historical trends",
				"Comparative market analysis",
				"Financial modeling and projections",
			},
			QualitativeMethods: []string{
				"Expert assessment and validation",
				"Market research and surveys",
				"Competitive intelligence analysis",
			},
		},
		AccuracyTargets: map[string]string{
			"financial_metrics":   "75-85% accuracy",
			"market_metrics":      "70-80% accuracy",
			"operational_metrics": "80-90% accuracy",
		},
		UpdateFrequency:     "Quarterly for dynamic metrics, annually for stable metrics",
		ConfidenceIntervals: "95% confidence level for quantitative projections",
	}
}

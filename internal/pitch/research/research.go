// Package research checks pitch claims against external references. The
// current implementation is simulated: verdicts and sources are fixed per
// claim category, so results are deterministic.
package research

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/models"
	"pitch-analyzer/internal/pitch/currency"
)

// Verdicts.
const (
	Corroborated          = "corroborated"
	PartiallyCorroborated = "partially_corroborated"
	Contradicted          = "contradicted"
	InsufficientEvidence  = "insufficient_evidence"
	Inconclusive          = "inconclusive"
)

var verdictWeights = map[string]float64{
	Corroborated:          100,
	PartiallyCorroborated: 60,
	Inconclusive:          30,
	InsufficientEvidence:  20,
	Contradicted:          0,
}

// Claim categories.
const (
	categoryMarketSize      = "market_size"
	categoryMarketGrowth    = "market_growth"
	categoryCompetition     = "competition"
	categoryFinancialGrowth = "financial_growth"
	categoryMarketTrends    = "market_trends"
	categoryProduct         = "product"
)

// Config tunes the simulated researcher.
type Config struct {
	// MaxClaims caps the number of claims checked. Zero means no cap.
	MaxClaims int
}

type claim struct {
	id, category, text, confidence, subject string
}

// Simulated produces research summaries without network access.
type Simulated struct {
	cfg Config
	log logger.Logger
}

func NewSimulated(cfg Config, log logger.Logger) *Simulated {
	return &Simulated{cfg: cfg, log: logger.Component(log, "research")}
}

// Research extracts claims from the pitch and assigns each a verdict.
func (s *Simulated) Research(ctx context.Context, p *models.NormalizedPitch, analyses models.Analyses) (*models.ResearchSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("research: nil pitch")
	}

	claims := extractClaims(p)
	if s.cfg.MaxClaims > 0 && len(claims) > s.cfg.MaxClaims {
		claims = claims[:s.cfg.MaxClaims]
	}

	results := make([]models.ClaimResult, 0, len(claims))
	for _, c := range claims {
		v := verdict(c.category)
		results = append(results, models.ClaimResult{
			ClaimID:     c.id,
			Category:    c.category,
			ClaimText:   c.text,
			Verdict:     v,
			Confidence:  claimConfidence(c.confidence),
			Explanation: explanation(v, c.category),
			Sources:     sourcesFor(c),
		})
	}

	summary := &models.ResearchSummary{
		Summary: overview(results),
		Claims:  results,
		Sources: uniqueSources(results),
	}

	s.log.Info("Research completed", map[string]interface{}{
		"claims":           len(results),
		"sources":          len(summary.Sources),
		"credibilityScore": summary.Summary.CredibilityScore,
		"analyses":         len(analyses),
	})
	return summary, nil
}

// ==========================
// Claim extraction
// ==========================

func extractClaims(p *models.NormalizedPitch) []claim {
	var claims []claim
	domain := strings.TrimSpace(p.Domain())

	if tam, ok := p.Market.TAM.Float(); ok {
		claims = append(claims, claim{
			id: "tam_size", category: categoryMarketSize, confidence: "medium", subject: domain,
			text: fmt.Sprintf("The Total Addressable Market (TAM) is %s", currency.FormatAmount(tam)),
		})
	}
	if p.Market.CAGR != nil {
		claims = append(claims, claim{
			id: "market_growth", category: categoryMarketGrowth, confidence: "medium", subject: domain,
			text: fmt.Sprintf("The market CAGR is %s%%", strconv.FormatFloat(*p.Market.CAGR, 'f', -1, 64)),
		})
	}
	if names := competitorNames(p.Positioning.Competitors); len(names) > 0 {
		claims = append(claims, claim{
			id: "competitors", category: categoryCompetition, confidence: "medium", subject: domain,
			text: "Key competitors include " + strings.Join(names, ", "),
		})
	}
	if growth, ok := recentGrowth(p.Finance.Revenues); ok {
		claims = append(claims, claim{
			id: "revenue_growth", category: categoryFinancialGrowth, confidence: "high",
			text: fmt.Sprintf("The company's year-over-year revenue growth is approximately %.1f%%", growth),
		})
	}
	if domain != "" {
		claims = append(claims, claim{
			id: "industry_trends", category: categoryMarketTrends, confidence: "low", subject: domain,
			text: fmt.Sprintf("The %s industry is experiencing significant growth and innovation", domain),
		})
	}
	problem := models.Deref(p.Positioning.ProblemStatement)
	solution := models.Deref(p.Positioning.Solution)
	if problem != "" && solution != "" {
		claims = append(claims, claim{
			id: "problem_solution_fit", category: categoryProduct, confidence: "medium", subject: domain,
			text: fmt.Sprintf("The company addresses the problem of '%s' with its solution: '%s'", problem, solution),
		})
	}
	return claims
}

func competitorNames(competitors []interface{}) []string {
	var names []string
	for _, c := range competitors {
		switch v := c.(type) {
		case string:
			if v != "" {
				names = append(names, v)
			}
		case map[string]interface{}:
			if name, ok := v["name"].(string); ok && name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// recentGrowth compares the two latest revenue periods.
func recentGrowth(revenues []models.Revenue) (float64, bool) {
	dated := make([]models.Revenue, 0, len(revenues))
	for _, r := range revenues {
		if r.Period != nil && r.Value != nil {
			dated = append(dated, r)
		}
	}
	if len(dated) < 2 {
		return 0, false
	}
	sort.SliceStable(dated, func(i, j int) bool { return *dated[i].Period < *dated[j].Period })
	prev, last := *dated[len(dated)-2].Value, *dated[len(dated)-1].Value
	if prev <= 0 || last == 0 {
		return 0, false
	}
	return (last - prev) / prev * 100, true
}

// ==========================
// Verdicts
// ==========================

func verdict(category string) string {
	switch category {
	case categoryMarketSize, categoryMarketGrowth:
		return PartiallyCorroborated
	case categoryCompetition, categoryMarketTrends:
		return Corroborated
	case categoryFinancialGrowth:
		return InsufficientEvidence
	default:
		return Inconclusive
	}
}

func claimConfidence(level string) float64 {
	c := 0.7
	switch level {
	case "high":
		c += 0.2
	case "low":
		c -= 0.2
	}
	return math.Round(math.Max(0.1, math.Min(0.95, c))*100) / 100
}

func explanation(verdict, category string) string {
	switch verdict {
	case Corroborated:
		return fmt.Sprintf("Multiple credible sources confirm this claim about %s.", category)
	case PartiallyCorroborated:
		return "Some sources support aspects of this claim, but the exact figures differ from what's stated."
	case Contradicted:
		return fmt.Sprintf("The majority of credible sources contradict this claim about %s.", category)
	case InsufficientEvidence:
		return fmt.Sprintf("Not enough reliable sources were found to validate this claim about %s.", category)
	default:
		return "The research was inconclusive due to conflicting information or lack of credible sources."
	}
}

// ==========================
// Summary
// ==========================

func overview(results []models.ClaimResult) models.ResearchOverview {
	verdicts := map[string]int{
		Corroborated:          0,
		PartiallyCorroborated: 0,
		Contradicted:          0,
		InsufficientEvidence:  0,
		Inconclusive:          0,
	}
	for _, r := range results {
		if _, ok := verdicts[r.Verdict]; ok {
			verdicts[r.Verdict]++
		}
	}

	total, weighted := 0, 0.0
	for v, n := range verdicts {
		total += n
		weighted += verdictWeights[v] * float64(n)
	}
	credibility := 0.0
	if total > 0 {
		credibility = math.Round(weighted/float64(total)*10) / 10
	}

	confidence := "low"
	switch {
	case credibility >= 80:
		confidence = "high"
	case credibility >= 50:
		confidence = "medium"
	}

	return models.ResearchOverview{
		TotalClaims:      len(results),
		Verdicts:         verdicts,
		CredibilityScore: credibility,
		Confidence:       confidence,
		KeyFindings:      keyFindings(results),
	}
}

func keyFindings(results []models.ClaimResult) []string {
	var findings []string
	contradicted := 0
	marketSupported, competitorsConfirmed := false, false
	for _, r := range results {
		switch {
		case (r.ClaimID == "tam_size" || r.ClaimID == "market_growth") &&
			(r.Verdict == Corroborated || r.Verdict == PartiallyCorroborated):
			marketSupported = true
		case r.ClaimID == "competitors" && r.Verdict == Corroborated:
			competitorsConfirmed = true
		}
		if r.Verdict == Contradicted {
			contradicted++
		}
	}

	if marketSupported {
		findings = append(findings, "Market size and growth claims are generally supported by external sources.")
	}
	if contradicted > 0 {
		findings = append(findings, fmt.Sprintf("%d key claim(s) were contradicted by reliable sources.", contradicted))
	}
	if competitorsConfirmed {
		findings = append(findings, "The competitive landscape analysis appears accurate.")
	}
	if len(findings) == 0 {
		findings = append(findings, "Web research provided limited validation of the pitch claims.")
	}
	return findings
}

func uniqueSources(results []models.ClaimResult) []models.ResearchSource {
	seen := map[string]bool{}
	out := []models.ResearchSource{}
	for _, r := range results {
		for _, s := range r.Sources {
			if s.URL == "" || seen[s.URL] {
				continue
			}
			seen[s.URL] = true
			out = append(out, s)
		}
	}
	return out
}

// Domain returns the host of a source URL without a leading "www.".
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

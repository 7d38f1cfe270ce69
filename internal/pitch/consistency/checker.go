// Package consistency cross-checks a normalized pitch against the analysis
// results and, optionally, the scoring result. Findings are advisory: fixes
// are proposed but never applied.
package consistency

import (
	"fmt"

	"pitch-analyzer/internal/common/errors"
	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/models"
)

// Bounds of the consistency score.
const (
	maxScore = 10.0
	minScore = 1.0
)

// Score deductions per issue severity.
var severityPenalty = map[string]float64{
	models.SeverityHigh:   2.0,
	models.SeverityMedium: 1.0,
	models.SeverityLow:    0.5,
}

// input is what every rule sees. Scores may be nil.
type input struct {
	pitch    *models.NormalizedPitch
	analyses models.Analyses
	scores   *models.ScoringResult
}

type findings struct {
	issues []models.Issue
	fixes  []models.Fix
}

func (f *findings) add(issue models.Issue, fix *models.Fix) {
	f.issues = append(f.issues, issue)
	if fix != nil {
		f.fixes = append(f.fixes, *fix)
	}
}

type rule struct {
	name string
	eval func(in *input) findings
}

// rules in report order.
var rules = []rule{
	{"currency", checkCurrency},
	{"market_hierarchy", checkMarketHierarchy},
	{"cagr", checkCAGR},
	{"ltv_cac", checkLTVCAC},
	{"scores", checkScores},
}

type Checker struct {
	log logger.Logger
}

func NewChecker(log logger.Logger) *Checker {
	return &Checker{log: logger.Component(log, "consistency")}
}

// Check runs every rule. A rule that panics contributes no findings and is
// listed in SkippedRules; the others still run.
func (c *Checker) Check(pitch *models.NormalizedPitch, analyses models.Analyses, scores *models.ScoringResult) *models.ConsistencyReport {
	if pitch == nil {
		pitch = models.NewTemplatePitch()
	}
	in := &input{pitch: pitch, analyses: analyses, scores: scores}

	report := &models.ConsistencyReport{
		Issues: []models.Issue{},
		Fixes:  []models.Fix{},
	}
	for _, r := range rules {
		f, err := c.evaluate(r, in)
		if err != nil {
			c.log.Error("Consistency rule skipped", map[string]interface{}{
				"rule":  r.name,
				"error": err,
			})
			report.SkippedRules = append(report.SkippedRules, r.name)
			continue
		}
		report.Issues = append(report.Issues, f.issues...)
		report.Fixes = append(report.Fixes, f.fixes...)
	}

	report.ConsistencyScore = Score(report.Issues)
	report.CheckedFields = checkedFields(in)

	c.log.Info("Consistency check completed", map[string]interface{}{
		"issues":        len(report.Issues),
		"fixes":         len(report.Fixes),
		"score":         report.ConsistencyScore,
		"checkedFields": report.CheckedFields,
	})
	return report
}

func (c *Checker) evaluate(r rule, in *input) (f findings, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			f = findings{}
			err = errors.NewRuleEvaluationFailedError(r.name, fmt.Sprint(rec))
		}
	}()
	return r.eval(in), nil
}

// Score starts at 10 and deducts per issue severity, clamped to [1, 10].
func Score(issues []models.Issue) float64 {
	score := maxScore
	for _, is := range issues {
		score -= severityPenalty[is.Severity]
	}
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

var checkedMetrics = map[string][]string{
	models.CategoryMarketAnalysis:   {"tam", "sam", "som", "cagr"},
	models.CategoryFinance:          {"gross_margin", "ebitda", "valuation", "ask"},
	models.CategoryProductMarketFit: {"ltv_cac", "retention"},
}

func checkedFields(in *input) int {
	n := len(in.pitch.Finance.Revenues)
	for category, metrics := range checkedMetrics {
		result, ok := in.analyses[category]
		if !ok || result == nil || result.Error != "" {
			continue
		}
		for _, m := range metrics {
			if _, present := result.Metric(m); present {
				n++
			}
		}
	}
	return n
}

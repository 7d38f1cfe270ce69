// Package scoring aggregates per-category analysis averages into a weighted
// investment score, a recommendation and a confidence assessment.
package scoring

import (
	"fmt"
	"math"
	"time"

	"pitch-analyzer/internal/common/errors"
	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/models"
)

const (
	Version = "2.1"

	// NeutralScore is reported when no category produced a usable average.
	NeutralScore = 5.0

	minScore = 1.0
	maxScore = 10.0
)

// Config overrides the built-in weights and thresholds.
type Config struct {
	Weights    map[string]float64
	Thresholds Thresholds
}

type Engine struct {
	weights    map[string]float64
	thresholds Thresholds
	log        logger.Logger
	now        func() time.Time
}

func NewEngine(cfg Config, log logger.Logger) *Engine {
	return &Engine{
		weights:    NormalizeWeights(cfg.Weights),
		thresholds: cfg.Thresholds.merge(),
		log:        logger.Component(log, "scoring"),
		now:        time.Now,
	}
}

// Weights returns the normalized weights in use.
func (e *Engine) Weights() map[string]float64 {
	out := make(map[string]float64, len(e.weights))
	for k, v := range e.weights {
		out[k] = v
	}
	return out
}

func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Score computes the scoring result. Research may be nil, in which case no
// credibility adjustment is made.
func (e *Engine) Score(analyses models.Analyses, research *models.ResearchSummary) *models.ScoringResult {
	scores := make(map[string]models.CategoryScore)
	for _, category := range Categories {
		result, ok := analyses.Usable(category)
		if !ok {
			continue
		}
		raw := float64(*result.CategoryAverage)
		adjusted := adjustForResearch(raw, research)
		weight := e.weights[category]
		scores[category] = models.CategoryScore{
			RawScore:      raw,
			AdjustedScore: adjusted,
			Weight:        weight,
			WeightedScore: adjusted * weight,
		}
	}

	overall, underflow := overallScore(scores)
	if underflow {
		e.log.Warn("Scoring underflow", map[string]interface{}{
			"error": errors.NewScoringUnderflowError(NeutralScore),
		})
	}
	adjusted := applyAdjustments(overall, analyses)

	result := &models.ScoringResult{
		CategoryScores:           scores,
		OverallRaw:               overall,
		OverallAdjusted:          adjusted,
		Explanations:             e.explanations(scores, adjusted),
		InvestmentRecommendation: e.recommendation(adjusted),
		Confidence:               confidence(analyses),
		ScoringVersion:           Version,
		ScoredAt:                 e.now().UTC().Format(time.RFC3339),
		Underflow:                underflow,
	}

	e.log.Info("Pitch scoring completed", map[string]interface{}{
		"categories":      len(scores),
		"overallRaw":      result.OverallRaw,
		"overallAdjusted": result.OverallAdjusted,
		"recommendation":  result.InvestmentRecommendation.Recommendation,
	})
	return result
}

// adjustForResearch nudges a category score by research credibility.
func adjustForResearch(score float64, research *models.ResearchSummary) float64 {
	if research == nil {
		return score
	}
	credibility := research.Summary.CredibilityScore
	adjustment := 0.0
	switch {
	case credibility >= 80:
		adjustment = 0.5
	case credibility < 50:
		adjustment = -1.0
	}
	return clamp(score + adjustment)
}

// overallScore is the weighted mean over the categories actually scored.
func overallScore(scores map[string]models.CategoryScore) (float64, bool) {
	weighted, weights := 0.0, 0.0
	for _, s := range scores {
		weighted += s.WeightedScore
		weights += s.Weight
	}
	if weights <= 0 {
		return NeutralScore, true
	}
	return round1(weighted / weights), false
}

func applyAdjustments(overall float64, analyses models.Analyses) float64 {
	adjusted := overall
	if avg, ok := average(analyses, models.CategoryRiskMitigation); ok {
		switch {
		case avg <= 3:
			adjusted -= 1.0
		case avg <= 5:
			adjusted -= 0.5
		}
	}
	if avg, ok := average(analyses, models.CategoryProductMarketFit); ok && avg >= 9 {
		adjusted += 0.5
	}
	if avg, ok := average(analyses, models.CategoryMarketAnalysis); ok && avg >= 9 {
		adjusted += 0.5
	}
	return round1(clamp(adjusted))
}

func average(analyses models.Analyses, category string) (int, bool) {
	result, ok := analyses.Usable(category)
	if !ok {
		return 0, false
	}
	return *result.CategoryAverage, true
}

// ==========================
// Explanations & recommendation
// ==========================

func (e *Engine) explanations(scores map[string]models.CategoryScore, overall float64) []string {
	out := []string{e.overallExplanation(overall)}
	for _, category := range Categories {
		s, ok := scores[category]
		if !ok {
			continue
		}
		switch {
		case s.AdjustedScore >= 9:
			out = append(out, fmt.Sprintf("%s is exceptionally strong, presenting a compelling advantage.", category))
		case s.AdjustedScore >= 8:
			out = append(out, fmt.Sprintf("%s is very strong, contributing significantly to overall potential.", category))
		case s.AdjustedScore <= 3:
			out = append(out, fmt.Sprintf("%s is critically weak, posing a significant risk to success.", category))
		case s.AdjustedScore <= 5 && s.Weight >= 0.2:
			out = append(out, fmt.Sprintf("%s shows concerning weaknesses in a high-impact area.", category))
		}
	}
	return out
}

func (e *Engine) overallExplanation(overall float64) string {
	t := e.thresholds
	switch {
	case overall >= t.Excellent:
		return "Overall score indicates an excellent investment opportunity with strong fundamentals."
	case overall >= t.Good:
		return "Overall score indicates a good investment opportunity with solid potential but some areas for improvement."
	case overall >= t.Average:
		return "Overall score indicates an average investment opportunity with both strengths and weaknesses."
	case overall >= t.BelowAverage:
		return "Overall score indicates a below-average investment opportunity with significant concerns."
	default:
		return "Overall score indicates a poor investment opportunity with major issues that need addressing."
	}
}

var (
	strongBuy = models.Recommendation{
		Recommendation: "Strong Buy",
		Conviction:     "High",
		Rationale:      "Exceptional opportunity with strong fundamentals across key categories.",
		Timeline:       "Immediate action recommended.",
	}
	buy = models.Recommendation{
		Recommendation: "Buy",
		Conviction:     "Medium",
		Rationale:      "Solid opportunity with good fundamentals and manageable risks.",
		Timeline:       "Near-term action recommended.",
	}
	holdWatch = models.Recommendation{
		Recommendation: "Hold/Watch",
		Conviction:     "Low",
		Rationale:      "Average opportunity with mixed signals. Some strengths but also notable weaknesses.",
		Timeline:       "Monitor for improvements before committing.",
	}
	weakPass = models.Recommendation{
		Recommendation: "Weak Pass",
		Conviction:     "Medium",
		Rationale:      "Below-average opportunity with significant concerns in key areas.",
		Timeline:       "Pass for now, but consider revisiting if major improvements occur.",
	}
	strongPass = models.Recommendation{
		Recommendation: "Strong Pass",
		Conviction:     "High",
		Rationale:      "Poor opportunity with major issues across multiple critical categories.",
		Timeline:       "Do not pursue.",
	}
)

func (e *Engine) recommendation(overall float64) models.Recommendation {
	t := e.thresholds
	switch {
	case overall >= t.Excellent:
		return strongBuy
	case overall >= t.Good:
		return buy
	case overall >= t.Average:
		return holdWatch
	case overall >= t.BelowAverage:
		return weakPass
	default:
		return strongPass
	}
}

// ==========================
// Confidence
// ==========================

const defaultReliability = 0.5

var confidenceFactors = []string{
	"Data quality and completeness",
	"Source reliability",
	"Consistency across analyses",
}

func confidence(analyses models.Analyses) models.ScoringConfidence {
	reliabilities := []float64{}
	filled, total := 0, 0
	for _, category := range analyses.Categories() {
		result := analyses[category]
		if result == nil || result.Error != "" {
			continue
		}
		if result.CategoryMetadata != nil {
			if r, ok := result.Reliability(); ok {
				reliabilities = append(reliabilities, r)
			} else {
				reliabilities = append(reliabilities, defaultReliability)
			}
		}
		for _, m := range result.Metrics {
			total++
			if m.HasValidated() {
				filled++
			}
		}
	}

	avg := defaultReliability
	if len(reliabilities) > 0 {
		sum := 0.0
		for _, r := range reliabilities {
			sum += r
		}
		avg = sum / float64(len(reliabilities))
	}
	completeness := 0.0
	if total > 0 {
		completeness = float64(filled) / float64(total) * 100
	}

	level := "Low"
	switch {
	case avg >= 0.8 && completeness >= 80:
		level = "High"
	case avg >= 0.6 && completeness >= 60:
		level = "Medium"
	}

	return models.ScoringConfidence{
		Level:        level,
		Score:        math.Round(avg*100) / 100,
		Completeness: fmt.Sprintf("%d%%", int(math.Round(completeness))),
		Factors:      append([]string(nil), confidenceFactors...),
	}
}

func clamp(v float64) float64 {
	return math.Max(minScore, math.Min(maxScore, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

package models

// Issue severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Issue is a consistency finding.
type Issue struct {
	Section  string `json:"section"`
	Field    string `json:"field"`
	Issue    string `json:"issue"`
	Severity string `json:"severity"`
}

// Fix is an advisory correction. It is never applied automatically.
type Fix struct {
	Section   string      `json:"section"`
	Field     string      `json:"field"`
	Current   interface{} `json:"current"`
	Corrected interface{} `json:"corrected"`
	Note      string      `json:"note,omitempty"`
}

// ConsistencyReport is the output of the consistency checker.
type ConsistencyReport struct {
	Issues           []Issue  `json:"issues"`
	Fixes            []Fix    `json:"fixes"`
	ConsistencyScore float64  `json:"consistency_score"`
	CheckedFields    int      `json:"checked_fields"`
	SkippedRules     []string `json:"skipped_rules,omitempty"`
}

// CountBySeverity tallies issues per severity.
func (r *ConsistencyReport) CountBySeverity() map[string]int {
	out := map[string]int{SeverityHigh: 0, SeverityMedium: 0, SeverityLow: 0}
	if r == nil {
		return out
	}
	for _, is := range r.Issues {
		out[is.Severity]++
	}
	return out
}

// CategoryScore is one category's contribution to the overall score.
type CategoryScore struct {
	RawScore      float64 `json:"raw_score"`
	AdjustedScore float64 `json:"adjusted_score"`
	Weight        float64 `json:"weight"`
	WeightedScore float64 `json:"weighted_score"`
}

// Recommendation is the fixed tuple attached to a score band.
type Recommendation struct {
	Recommendation string `json:"recommendation"`
	Conviction     string `json:"conviction"`
	Rationale      string `json:"rationale"`
	Timeline       string `json:"timeline"`
}

// ScoringConfidence summarises how far the score can be trusted.
type ScoringConfidence struct {
	Level        string   `json:"level"`
	Score        float64  `json:"score"`
	Completeness string   `json:"completeness"`
	Factors      []string `json:"factors"`
}

// ScoringResult is the output of the scoring engine.
type ScoringResult struct {
	CategoryScores           map[string]CategoryScore `json:"category_scores"`
	OverallRaw               float64                  `json:"overall_raw"`
	OverallAdjusted          float64                  `json:"overall_adjusted"`
	Explanations             []string                 `json:"explanations"`
	InvestmentRecommendation Recommendation           `json:"investment_recommendation"`
	Confidence               ScoringConfidence        `json:"confidence"`
	ScoringVersion           string                   `json:"scoring_version"`
	ScoredAt                 string                   `json:"scored_at"`
	Underflow                bool                     `json:"underflow,omitempty"`
}

// ResearchSummary is produced by the research collaborator.
type ResearchSummary struct {
	Summary ResearchOverview `json:"summary"`
	Claims  []ClaimResult    `json:"claims"`
	Sources []ResearchSource `json:"sources"`
}

// ResearchOverview carries the credibility figure consumed by scoring.
type ResearchOverview struct {
	TotalClaims      int            `json:"total_claims"`
	Verdicts         map[string]int `json:"verdicts"`
	CredibilityScore float64        `json:"credibility_score"`
	Confidence       string         `json:"confidence"`
	KeyFindings      []string       `json:"key_findings"`
}

// ClaimResult is the verdict on one claim extracted from the pitch.
type ClaimResult struct {
	ClaimID     string           `json:"claim_id"`
	Category    string           `json:"category"`
	ClaimText   string           `json:"claim_text"`
	Verdict     string           `json:"verdict"`
	Confidence  float64          `json:"confidence"`
	Explanation string           `json:"explanation"`
	Sources     []ResearchSource `json:"sources"`
}

// ResearchSource is a reference consulted for a claim.
type ResearchSource struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	Domain        string `json:"domain,omitempty"`
	Type          string `json:"type,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
}

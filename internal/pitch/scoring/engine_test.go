package scoring

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestEngine(t *testing.T, cfg Config) *Engine {
	e := NewEngine(cfg, logger.NewTestLogger(t))
	e.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func avg(i int) *int { return &i }

func result(average int, reliability *float64, metrics map[string]models.MetricResult) *models.AnalysisResult {
	r := &models.AnalysisResult{CategoryAverage: avg(average), Metrics: metrics}
	if reliability != nil {
		r.CategoryMetadata = &models.CategoryMetadata{DataReliabilityScore: reliability}
	}
	return r
}

func research(credibility float64) *models.ResearchSummary {
	return &models.ResearchSummary{Summary: models.ResearchOverview{CredibilityScore: credibility}}
}

func sum(m map[string]float64) float64 {
	total := 0.0
	for _, v := range m {
		total += v
	}
	return total
}

// ==========================
// Weights
// ==========================

func TestNormalizeWeights(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]float64
		validate  func(t *testing.T, w map[string]float64)
	}{
		{
			name: "defaults",
			validate: func(t *testing.T, w map[string]float64) {
				assert.InDelta(t, 0.25, w[models.CategoryFinance], 1e-9)
			},
		},
		{
			name: "weights summing to two",
			overrides: map[string]float64{
				models.CategoryMarketAnalysis:       0.40,
				models.CategoryCompetitiveLandscape: 0.30,
				models.CategoryProductMarketFit:     0.40,
				models.CategoryFinance:              0.50,
				models.CategoryWhyAnalysis:          0.20,
				models.CategoryScalability:          0.20,
			},
			validate: func(t *testing.T, w map[string]float64) {
				assert.InDelta(t, 0.20, w[models.CategoryMarketAnalysis], 1e-9)
				assert.InDelta(t, 0.25, w[models.CategoryFinance], 1e-9)
			},
		},
		{
			name:      "per-key override keeps other defaults",
			overrides: map[string]float64{models.CategoryFinance: 0.85, "Astrology": 5},
			validate: func(t *testing.T, w map[string]float64) {
				assert.Len(t, w, 6)
				assert.NotContains(t, w, "Astrology")
				assert.InDelta(t, 0.85/1.60, w[models.CategoryFinance], 1e-9)
				assert.InDelta(t, 0.20/1.60, w[models.CategoryMarketAnalysis], 1e-9)
			},
		},
		{
			name: "all zero falls back to defaults",
			overrides: map[string]float64{
				models.CategoryMarketAnalysis: 0, models.CategoryCompetitiveLandscape: 0,
				models.CategoryProductMarketFit: 0, models.CategoryFinance: 0,
				models.CategoryWhyAnalysis: 0, models.CategoryScalability: 0,
			},
			validate: func(t *testing.T, w map[string]float64) {
				assert.InDelta(t, 0.20, w[models.CategoryMarketAnalysis], 1e-9)
			},
		},
		{
			name:      "negative ignored",
			overrides: map[string]float64{models.CategoryFinance: -3},
			validate: func(t *testing.T, w map[string]float64) {
				assert.InDelta(t, 0.25, w[models.CategoryFinance], 1e-9)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NormalizeWeights(tt.overrides)
			assert.InDelta(t, 1.0, sum(w), 1e-9)
			tt.validate(t, w)
		})
	}
}

func TestLoadWeightsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scoring.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
weights:
  Finance: 0.4
thresholds:
  excellent: 9
`), 0o600))

	f, err := LoadWeightsFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.4, f.Weights[models.CategoryFinance])

	e := newTestEngine(t, Config{Weights: f.Weights, Thresholds: f.Thresholds})
	assert.Equal(t, 9.0, e.Thresholds().Excellent)
	assert.Equal(t, 7.0, e.Thresholds().Good)

	_, err = LoadWeightsFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

// ==========================
// Score
// ==========================

func TestScore_WeightedMeanOverUsedCategories(t *testing.T) {
	e := newTestEngine(t, Config{Weights: map[string]float64{
		models.CategoryMarketAnalysis: 0.5,
		models.CategoryFinance:        0.5,
	}})
	analyses := models.Analyses{
		models.CategoryMarketAnalysis: result(8, nil, nil),
		models.CategoryFinance:        result(6, nil, nil),
	}

	s := e.Score(analyses, nil)

	assert.Equal(t, 7.0, s.OverallRaw)
	assert.Equal(t, 7.0, s.OverallAdjusted)
	assert.Len(t, s.CategoryScores, 2)
	assert.Equal(t, "Buy", s.InvestmentRecommendation.Recommendation)
	assert.Equal(t, "2.1", s.ScoringVersion)
	assert.Equal(t, "2024-05-01T12:00:00Z", s.ScoredAt)
	assert.False(t, s.Underflow)
}

func TestScore_FailedCategoryExcluded(t *testing.T) {
	e := newTestEngine(t, Config{})
	analyses := models.Analyses{
		models.CategoryMarketAnalysis:   result(8, nil, nil),
		models.CategoryFinance:          models.FailedAnalysis("provider crashed"),
		models.CategoryProductMarketFit: {Metrics: map[string]models.MetricResult{}},
	}

	s := e.Score(analyses, nil)

	assert.Contains(t, s.CategoryScores, models.CategoryMarketAnalysis)
	assert.NotContains(t, s.CategoryScores, models.CategoryFinance)
	assert.NotContains(t, s.CategoryScores, models.CategoryProductMarketFit)
	assert.Equal(t, 8.0, s.OverallRaw)
}

func TestScore_Underflow(t *testing.T) {
	e := newTestEngine(t, Config{})
	s := e.Score(models.Analyses{models.CategoryFinance: models.FailedAnalysis("x")}, nil)

	assert.True(t, s.Underflow)
	assert.Equal(t, NeutralScore, s.OverallRaw)
	assert.Empty(t, s.CategoryScores)
	assert.Equal(t, "Hold/Watch", s.InvestmentRecommendation.Recommendation)
}

func TestScore_ResearchAdjustment(t *testing.T) {
	tests := []struct {
		name         string
		research     *models.ResearchSummary
		average      int
		wantAdjusted float64
	}{
		{"no research", nil, 7, 7},
		{"high credibility", research(85), 7, 7.5},
		{"medium credibility", research(60), 7, 7},
		{"low credibility", research(30), 7, 6},
		{"clamped high", research(95), 10, 10},
		{"clamped low", research(10), 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, Config{})
			s := e.Score(models.Analyses{models.CategoryFinance: result(tt.average, nil, nil)}, tt.research)
			cs := s.CategoryScores[models.CategoryFinance]
			assert.Equal(t, float64(tt.average), cs.RawScore)
			assert.Equal(t, tt.wantAdjusted, cs.AdjustedScore)
			assert.InDelta(t, tt.wantAdjusted*0.25, cs.WeightedScore, 1e-9)
		})
	}
}

func TestScore_OverallAdjustments(t *testing.T) {
	tests := []struct {
		name     string
		analyses models.Analyses
		want     float64
	}{
		{
			name: "serious risk",
			analyses: models.Analyses{
				models.CategoryFinance:        result(6, nil, nil),
				models.CategoryRiskMitigation: result(3, nil, nil),
			},
			want: 5.0,
		},
		{
			name: "moderate risk",
			analyses: models.Analyses{
				models.CategoryFinance:        result(6, nil, nil),
				models.CategoryRiskMitigation: result(5, nil, nil),
			},
			want: 5.5,
		},
		{
			name: "failed risk provider is not a penalty",
			analyses: models.Analyses{
				models.CategoryFinance:        result(6, nil, nil),
				models.CategoryRiskMitigation: models.FailedAnalysis("x"),
			},
			want: 6.0,
		},
		{
			name: "exceptional fit and market",
			analyses: models.Analyses{
				models.CategoryMarketAnalysis:   result(9, nil, nil),
				models.CategoryProductMarketFit: result(10, nil, nil),
			},
			want: 10.0,
		},
		{
			name: "floor",
			analyses: models.Analyses{
				models.CategoryFinance:        result(1, nil, nil),
				models.CategoryRiskMitigation: result(1, nil, nil),
			},
			want: 1.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestEngine(t, Config{}).Score(tt.analyses, nil)
			assert.Equal(t, tt.want, s.OverallAdjusted)
		})
	}
}

func TestScore_RecommendationBands(t *testing.T) {
	e := newTestEngine(t, Config{})
	tests := []struct {
		score float64
		want  string
	}{
		{9.0, "Strong Buy"},
		{8.5, "Strong Buy"},
		{7.0, "Buy"},
		{5.0, "Hold/Watch"},
		{3.0, "Weak Pass"},
		{2.9, "Strong Pass"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.recommendation(tt.score).Recommendation, "score %.1f", tt.score)
	}
	assert.Equal(t, "Do not pursue.", e.recommendation(1).Timeline)
}

func TestScore_Explanations(t *testing.T) {
	e := newTestEngine(t, Config{})
	analyses := models.Analyses{
		models.CategoryMarketAnalysis:       result(9, nil, nil),
		models.CategoryCompetitiveLandscape: result(8, nil, nil),
		models.CategoryFinance:              result(4, nil, nil),
		models.CategoryScalability:          result(2, nil, nil),
		models.CategoryWhyAnalysis:          result(5, nil, nil),
	}

	s := e.Score(analyses, nil)

	assert.Equal(t, []string{
		"Overall score indicates an average investment opportunity with both strengths and weaknesses.",
		"MarketAnalysis is exceptionally strong, presenting a compelling advantage.",
		"CompetitiveLandscape is very strong, contributing significantly to overall potential.",
		"Finance shows concerning weaknesses in a high-impact area.",
		"Scalability is critically weak, posing a significant risk to success.",
	}, s.Explanations)
}

// ==========================
// Confidence
// ==========================

func TestScore_Confidence(t *testing.T) {
	high, mid, low := 0.9, 0.7, 0.4
	full := map[string]models.MetricResult{
		"a": {Validated: "$1B"}, "b": {Validated: "7:1"}, "c": {Validated: true}, "d": {Validated: 12.0}, "e": {Validated: "x"},
	}
	partial := map[string]models.MetricResult{
		"a": {Validated: "$1B"}, "b": {Validated: ""}, "c": {Validated: nil},
	}

	tests := []struct {
		name     string
		analyses models.Analyses
		want     models.ScoringConfidence
	}{
		{
			name:     "high",
			analyses: models.Analyses{models.CategoryFinance: result(7, &high, full)},
			want:     models.ScoringConfidence{Level: "High", Score: 0.9, Completeness: "100%"},
		},
		{
			name: "medium",
			analyses: models.Analyses{
				models.CategoryFinance:        result(7, &mid, full),
				models.CategoryMarketAnalysis: result(7, &mid, map[string]models.MetricResult{"x": {}, "y": {Validated: "1"}}),
			},
			want: models.ScoringConfidence{Level: "Medium", Score: 0.7, Completeness: "86%"},
		},
		{
			name:     "low reliability",
			analyses: models.Analyses{models.CategoryFinance: result(7, &low, full)},
			want:     models.ScoringConfidence{Level: "Low", Score: 0.4, Completeness: "100%"},
		},
		{
			name:     "no metadata defaults",
			analyses: models.Analyses{models.CategoryFinance: result(7, nil, partial)},
			want:     models.ScoringConfidence{Level: "Low", Score: 0.5, Completeness: "33%"},
		},
		{
			name: "metadata without reliability",
			analyses: models.Analyses{models.CategoryFinance: {
				CategoryAverage:  avg(7),
				CategoryMetadata: &models.CategoryMetadata{MetricsEvaluated: 3},
			}},
			want: models.ScoringConfidence{Level: "Low", Score: 0.5, Completeness: "0%"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestEngine(t, Config{}).Score(tt.analyses, nil).Confidence
			assert.Equal(t, tt.want.Level, got.Level)
			assert.Equal(t, tt.want.Score, got.Score)
			assert.Equal(t, tt.want.Completeness, got.Completeness)
			assert.Len(t, got.Factors, 3)
		})
	}
}

package research

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func fullPitch() *models.NormalizedPitch {
	tam, y1, y2 := 5e9, 1e6, 1.5e6
	p1, p2 := "2023", "2022"
	p := models.NewTemplatePitch()
	p.Market.TAM = models.CurrencyAmount{Value: &tam, Currency: models.BaseCurrency}
	p.Market.CAGR = models.FloatPtr(18.5)
	p.Market.Domain = models.StringPtr("FinTech")
	p.Positioning.Competitors = []interface{}{map[string]interface{}{"name": "Stripe"}, "Adyen", map[string]interface{}{"url": "x"}}
	p.Positioning.ProblemStatement = models.StringPtr("Slow payouts")
	p.Positioning.Solution = models.StringPtr("Instant settlement")
	p.Finance.Revenues = []models.Revenue{
		{Period: &p1, Value: &y2},
		{Period: &p2, Value: &y1},
	}
	return p
}

func newTestResearcher(t *testing.T, cfg Config) *Simulated {
	return NewSimulated(cfg, logger.NewTestLogger(t))
}

// ==========================
// Research
// ==========================

func TestResearch_AllClaims(t *testing.T) {
	summary, err := newTestResearcher(t, Config{}).Research(context.Background(), fullPitch(), nil)
	require.NoError(t, err)

	ids := []string{}
	for _, c := range summary.Claims {
		ids = append(ids, c.ClaimID)
	}
	assert.Equal(t, []string{"tam_size", "market_growth", "competitors", "revenue_growth", "industry_trends", "problem_solution_fit"}, ids)

	claims := map[string]models.ClaimResult{}
	for _, c := range summary.Claims {
		claims[c.ClaimID] = c
	}
	assert.Equal(t, "The Total Addressable Market (TAM) is $5,000,000,000", claims["tam_size"].ClaimText)
	assert.Equal(t, "The market CAGR is 18.5%", claims["market_growth"].ClaimText)
	assert.Equal(t, "Key competitors include Stripe, Adyen", claims["competitors"].ClaimText)
	assert.Equal(t, "The company's year-over-year revenue growth is approximately 50.0%", claims["revenue_growth"].ClaimText)

	assert.Equal(t, PartiallyCorroborated, claims["tam_size"].Verdict)
	assert.Equal(t, Corroborated, claims["competitors"].Verdict)
	assert.Equal(t, InsufficientEvidence, claims["revenue_growth"].Verdict)
	assert.Equal(t, Inconclusive, claims["problem_solution_fit"].Verdict)

	assert.Equal(t, 0.9, claims["revenue_growth"].Confidence)
	assert.Equal(t, 0.5, claims["industry_trends"].Confidence)
	assert.Equal(t, 0.7, claims["tam_size"].Confidence)
}

func TestResearch_Summary(t *testing.T) {
	summary, err := newTestResearcher(t, Config{}).Research(context.Background(), fullPitch(), nil)
	require.NoError(t, err)

	o := summary.Summary
	assert.Equal(t, 6, o.TotalClaims)
	assert.Equal(t, 2, o.Verdicts[PartiallyCorroborated])
	assert.Equal(t, 2, o.Verdicts[Corroborated])
	assert.Equal(t, 0, o.Verdicts[Contradicted])
	assert.Equal(t, 61.7, o.CredibilityScore)
	assert.Equal(t, "medium", o.Confidence)
	assert.Equal(t, []string{
		"Market size and growth claims are generally supported by external sources.",
		"The competitive landscape analysis appears accurate.",
	}, o.KeyFindings)

	require.Len(t, summary.Sources, 4)
	assert.Equal(t, "grandviewresearch.com", summary.Sources[0].Domain)
	assert.Equal(t, "market_research", summary.Sources[0].Type)
	assert.Equal(t, "startup", summary.Sources[3].Type)
}

func TestResearch_EmptyPitch(t *testing.T) {
	summary, err := newTestResearcher(t, Config{}).Research(context.Background(), models.NewTemplatePitch(), nil)
	require.NoError(t, err)

	assert.Empty(t, summary.Claims)
	assert.Empty(t, summary.Sources)
	assert.Equal(t, 0.0, summary.Summary.CredibilityScore)
	assert.Equal(t, "low", summary.Summary.Confidence)
	assert.Equal(t, []string{"Web research provided limited validation of the pitch claims."}, summary.Summary.KeyFindings)
}

func TestResearch_MaxClaims(t *testing.T) {
	summary, err := newTestResearcher(t, Config{MaxClaims: 2}).Research(context.Background(), fullPitch(), nil)
	require.NoError(t, err)

	assert.Len(t, summary.Claims, 2)
	assert.Equal(t, 60.0, summary.Summary.CredibilityScore)
}

func TestResearch_Errors(t *testing.T) {
	r := newTestResearcher(t, Config{})

	_, err := r.Research(context.Background(), nil, nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Research(ctx, fullPitch(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.gartner.com/en/research", "market_research"},
		{"https://www.reuters.com/markets", "finance"},
		{"https://data.census.gov/table", "government"},
		{"https://cs.stanford.edu/paper", "academic"},
		{"https://techcrunch.com/2023/06/10/story", "startup"},
		{"https://example.org/blog", "general"},
		{"::not a url", "general"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.url))
		})
	}
}

package consistency

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"pitch-analyzer/internal/models"
	"pitch-analyzer/internal/pitch/currency"
	"pitch-analyzer/internal/pitch/parse"
)

const (
	subordinateShare = 0.25
	cagrTolerance    = 5.0
	maxLTVCAC        = 10.0
	scoreTolerance   = 1.0
	benchmarkLTVCAC  = "3:1"
)

func metric(in *input, category, name string) (models.MetricResult, bool) {
	result, ok := in.analyses[category]
	if !ok || result == nil || result.Error != "" {
		return models.MetricResult{}, false
	}
	return result.Metric(name)
}

// ==========================
// Currency
// ==========================

type unitCheck struct {
	category string
	metrics  []string
	exempt   map[string]bool
}

var unitChecks = []unitCheck{
	{models.CategoryMarketAnalysis, []string{"tam", "sam", "som"}, nil},
	{models.CategoryFinance, []string{"gross_margin", "ebitda", "valuation", "ask"},
		map[string]bool{models.UnitPercent: true, models.UnitRatio: true}},
}

func checkCurrency(in *input) findings {
	var f findings
	base := in.pitch.Units.BaseCurrency
	if base == "" {
		base = models.BaseCurrency
	}

	for _, uc := range unitChecks {
		for _, name := range uc.metrics {
			m, ok := metric(in, uc.category, name)
			if !ok || m.Unit == "" || m.Unit == base || uc.exempt[m.Unit] {
				continue
			}
			f.add(models.Issue{
				Section:  uc.category,
				Field:    name,
				Issue:    fmt.Sprintf("Currency mismatch: %s uses %s instead of %s", name, m.Unit, base),
				Severity: models.SeverityMedium,
			}, &models.Fix{
				Section:   uc.category,
				Field:     name + ".unit",
				Current:   m.Unit,
				Corrected: base,
			})
		}
	}
	return f
}

// ==========================
// Market size hierarchy
// ==========================

func validatedMoney(in *input, name string) (float64, bool) {
	m, ok := metric(in, models.CategoryMarketAnalysis, name)
	if !ok {
		return 0, false
	}
	s, ok := m.Validated.(string)
	if !ok || s == "" {
		return 0, false
	}
	return parse.Money(s)
}

type tier struct {
	parent, child string
}

var tiers = []tier{{"tam", "sam"}, {"sam", "som"}}

func checkMarketHierarchy(in *input) findings {
	var f findings
	for _, t := range tiers {
		parent, okParent := validatedMoney(in, t.parent)
		child, okChild := validatedMoney(in, t.child)
		if !okParent || !okChild || parent > child {
			continue
		}

		parentLabel, childLabel := strings.ToUpper(t.parent), strings.ToUpper(t.child)
		issue := models.Issue{
			Section: models.CategoryMarketAnalysis,
			Field:   t.parent + "_" + t.child + "_hierarchy",
			Issue: fmt.Sprintf("Market size hierarchy violation: %s (%s) <= %s (%s)",
				parentLabel, currency.FormatAmount(parent), childLabel, currency.FormatAmount(child)),
			Severity: models.SeverityHigh,
		}

		var fix *models.Fix
		if parent > 0 {
			current, _ := metric(in, models.CategoryMarketAnalysis, t.child)
			fix = &models.Fix{
				Section:   models.CategoryMarketAnalysis,
				Field:     t.child + ".validated",
				Current:   current.Validated,
				Corrected: currency.FormatAmount(parent * subordinateShare),
				Note:      fmt.Sprintf("Adjusted %s to 25%% of %s to maintain proper hierarchy", childLabel, parentLabel),
			}
		}
		f.add(issue, fix)
	}
	return f
}

// ==========================
// CAGR
// ==========================

type datedRevenue struct {
	year  int
	value float64
}

func datedRevenues(revenues []models.Revenue) []datedRevenue {
	out := make([]datedRevenue, 0, len(revenues))
	for _, r := range revenues {
		if r.Value == nil || r.Period == nil {
			continue
		}
		year, ok := parse.Year(*r.Period)
		if !ok {
			continue
		}
		out = append(out, datedRevenue{year: year, value: *r.Value})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].year < out[j].year })
	return out
}

// HistoricalCAGR computes the compound growth rate in percent between the
// earliest and latest dated revenues.
func HistoricalCAGR(revenues []models.Revenue) (float64, bool) {
	dated := datedRevenues(revenues)
	if len(dated) < 2 {
		return 0, false
	}
	start, end := dated[0], dated[len(dated)-1]
	years := end.year - start.year
	if start.value <= 0 || years <= 0 {
		return 0, false
	}
	cagr := (math.Pow(end.value/start.value, 1/float64(years)) - 1) * 100
	if math.IsNaN(cagr) || math.IsInf(cagr, 0) {
		return 0, false
	}
	return cagr, true
}

func checkCAGR(in *input) findings {
	var f findings
	calculated, ok := HistoricalCAGR(in.pitch.Finance.Revenues)
	if !ok {
		return f
	}

	m, ok := metric(in, models.CategoryMarketAnalysis, "cagr")
	if !ok || m.Claimed == nil {
		return f
	}
	claimed, ok := parse.PercentValue(m.Claimed)
	if !ok {
		return f
	}
	if math.Abs(claimed-calculated) <= cagrTolerance {
		return f
	}

	f.add(models.Issue{
		Section:  models.CategoryMarketAnalysis,
		Field:    "cagr",
		Issue:    fmt.Sprintf("CAGR inconsistency: claimed %.1f%%, calculated %.1f%%", claimed, calculated),
		Severity: models.SeverityMedium,
	}, &models.Fix{
		Section:   models.CategoryMarketAnalysis,
		Field:     "cagr.validated",
		Current:   m.Validated,
		Corrected: fmt.Sprintf("%.1f%%", calculated),
		Note:      "Adjusted CAGR to match historical revenue growth",
	})
	return f
}

// ==========================
// LTV/CAC
// ==========================

func claimedRatio(v interface{}) (float64, bool) {
	if s, ok := v.(string); ok {
		return parse.Ratio(s)
	}
	return parse.Number(v)
}

func checkLTVCAC(in *input) findings {
	var f findings
	m, ok := metric(in, models.CategoryProductMarketFit, "ltv_cac")
	if !ok || m.Claimed == nil || m.Claimed == "" {
		return f
	}
	ratio, ok := claimedRatio(m.Claimed)
	if !ok || ratio <= maxLTVCAC {
		return f
	}

	f.add(models.Issue{
		Section:  models.CategoryProductMarketFit,
		Field:    "ltv_cac",
		Issue:    fmt.Sprintf("LTV/CAC ratio is unusually high: %v (typical range is 3:1 to 5:1)", m.Claimed),
		Severity: models.SeverityLow,
	}, &models.Fix{
		Section:   models.CategoryProductMarketFit,
		Field:     "ltv_cac.validated",
		Current:   m.Validated,
		Corrected: benchmarkLTVCAC,
		Note:      "Adjusted LTV/CAC ratio to more reasonable industry benchmark",
	})
	return f
}

// ==========================
// Scores
// ==========================

func checkScores(in *input) findings {
	var f findings
	if in.scores == nil || in.scores.CategoryScores == nil {
		return f
	}
	for _, category := range in.analyses.Categories() {
		result := in.analyses[category]
		cs, scored := in.scores.CategoryScores[category]
		if !scored || !result.Usable() {
			continue
		}
		analysis := float64(*result.CategoryAverage)
		if math.Abs(analysis-cs.RawScore) <= scoreTolerance {
			continue
		}
		f.add(models.Issue{
			Section:  "Scoring",
			Field:    category + ".raw_score",
			Issue:    fmt.Sprintf("Score inconsistency: analysis %d, scoring %s", *result.CategoryAverage, formatScore(cs.RawScore)),
			Severity: models.SeverityMedium,
		}, &models.Fix{
			Section:   "Scoring",
			Field:     "category_scores." + category + ".raw_score",
			Current:   cs.RawScore,
			Corrected: *result.CategoryAverage,
			Note:      "Adjusted scoring to match analysis score for " + category,
		})
	}
	return f
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

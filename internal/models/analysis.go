package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Analysis categories. The first six carry default scoring weights.
const (
	CategoryMarketAnalysis       = "MarketAnalysis"
	CategoryCompetitiveLandscape = "CompetitiveLandscape"
	CategoryProductMarketFit     = "ProductMarketFit"
	CategoryFinance              = "Finance"
	CategoryWhyAnalysis          = "WhyAnalysis"
	CategoryScalability          = "Scalability"
	CategoryRiskMitigation       = "RiskMitigation"
	CategoryPricingGTM           = "PricingGTM"
)

// Metric units used by providers. Monetary metrics use the currency code.
const (
	UnitPercent     = "Percent"
	UnitRatio       = "Ratio"
	UnitCategorical = "Categorical"
	UnitMonths      = "Months"
)

// MetricResult is one scored metric of an analysis category.
type MetricResult struct {
	Claimed       interface{} `json:"claimed"`
	Validated     interface{} `json:"validated"`
	DataType      string      `json:"data_type"`
	Unit          string      `json:"unit"`
	Confidence    float64     `json:"confidence"`
	RawScore      int         `json:"raw_score"`
	FinalScore    int         `json:"final_score"`
	Comments      string      `json:"comments"`
	Concerns      []string    `json:"concerns"`
	Questionnaire []string    `json:"questionnaire"`
}

// HasValidated reports whether the metric carries a non-empty validated value.
func (m MetricResult) HasValidated() bool {
	switch v := m.Validated.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case []interface{}:
		return len(v) > 0
	case []string:
		return len(v) > 0
	case map[string]interface{}:
		return len(v) > 0
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return true
	}
}

// CategoryMetadata describes how much a category result can be trusted.
type CategoryMetadata struct {
	DataReliabilityScore *float64 `json:"data_reliability_score,omitempty"`
	MetricsEvaluated     int      `json:"metrics_evaluated"`
	Provider             string   `json:"provider,omitempty"`
}

// AnalysisResult is one provider's output. When Error is set the result is a
// failure marker and every other field is ignored.
type AnalysisResult struct {
	Metrics          map[string]MetricResult
	Comments         []string
	CategoryAverage  *int
	CategoryMetadata *CategoryMetadata
	Error            string
}

// FailedAnalysis builds the {error} marker for a category.
func FailedAnalysis(msg string) *AnalysisResult {
	return &AnalysisResult{Error: msg}
}

// Usable reports whether the result can be scored.
func (a *AnalysisResult) Usable() bool {
	return a != nil && a.Error == "" && a.CategoryAverage != nil
}

// Metric looks up a metric by name.
func (a *AnalysisResult) Metric(name string) (MetricResult, bool) {
	if a == nil || a.Metrics == nil {
		return MetricResult{}, false
	}
	m, ok := a.Metrics[name]
	return m, ok
}

// MetricNames returns metric names in sorted order.
func (a *AnalysisResult) MetricNames() []string {
	if a == nil {
		return nil
	}
	names := make([]string, 0, len(a.Metrics))
	for name := range a.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reliability returns the category's data reliability score if present.
func (a *AnalysisResult) Reliability() (float64, bool) {
	if a == nil || a.CategoryMetadata == nil || a.CategoryMetadata.DataReliabilityScore == nil {
		return 0, false
	}
	return *a.CategoryMetadata.DataReliabilityScore, true
}

var reservedAnalysisKeys = map[string]bool{
	"category_average":  true,
	"category_metadata": true,
	"comments":          true,
	"error":             true,
}

// MarshalJSON flattens metrics next to the category keys, or emits
// {"error": msg} for a failed result.
func (a AnalysisResult) MarshalJSON() ([]byte, error) {
	if a.Error != "" {
		return json.Marshal(map[string]string{"error": a.Error})
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, v interface{}) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(data)
		return nil
	}

	for _, name := range a.MetricNames() {
		if reservedAnalysisKeys[name] {
			continue
		}
		if err := write(name, a.Metrics[name]); err != nil {
			return nil, err
		}
	}
	if a.CategoryAverage != nil {
		if err := write("category_average", *a.CategoryAverage); err != nil {
			return nil, err
		}
	}
	if a.CategoryMetadata != nil {
		if err := write("category_metadata", a.CategoryMetadata); err != nil {
			return nil, err
		}
	}
	comments := a.Comments
	if comments == nil {
		comments = []string{}
	}
	if err := write("comments", comments); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the flattened form produced by MarshalJSON.
func (a *AnalysisResult) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = AnalysisResult{}

	if msg, ok := raw["error"]; ok {
		return json.Unmarshal(msg, &a.Error)
	}
	if v, ok := raw["category_average"]; ok && string(v) != "null" {
		var avg float64
		if err := json.Unmarshal(v, &avg); err != nil {
			return fmt.Errorf("category_average: %w", err)
		}
		n := int(avg + 0.5)
		a.CategoryAverage = &n
	}
	if v, ok := raw["category_metadata"]; ok && string(v) != "null" {
		a.CategoryMetadata = &CategoryMetadata{}
		if err := json.Unmarshal(v, a.CategoryMetadata); err != nil {
			return fmt.Errorf("category_metadata: %w", err)
		}
	}
	if v, ok := raw["comments"]; ok {
		if err := json.Unmarshal(v, &a.Comments); err != nil {
			return fmt.Errorf("comments: %w", err)
		}
	}

	a.Metrics = make(map[string]MetricResult)
	for key, v := range raw {
		if reservedAnalysisKeys[key] {
			continue
		}
		var m MetricResult
		if err := json.Unmarshal(v, &m); err != nil {
			continue
		}
		a.Metrics[key] = m
	}
	return nil
}

// Analyses maps category name to its result.
type Analyses map[string]*AnalysisResult

// Categories returns category names in sorted order.
func (a Analyses) Categories() []string {
	out := make([]string, 0, len(a))
	for c := range a {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Usable returns the result for a category when it can be scored.
func (a Analyses) Usable(category string) (*AnalysisResult, bool) {
	r, ok := a[category]
	if !ok || !r.Usable() {
		return nil, false
	}
	return r, true
}

// Succeeded counts results that are not failure markers.
func (a Analyses) Succeeded() int {
	n := 0
	for _, r := range a {
		if r != nil && r.Error == "" {
			n++
		}
	}
	return n
}

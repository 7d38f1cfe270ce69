package validation

import (
	"testing"
	"time"

	"pitch-analyzer/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func fixClock(t *testing.T) time.Time {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	prev := Clock
	Clock = func() time.Time { return now }
	t.Cleanup(func() { Clock = prev })
	return now
}

func validReport() map[string]interface{} {
	return map[string]interface{}{
		"pitchId":  "pitch-1",
		"clientId": "client-9",
		"metadata": map[string]interface{}{
			"generated_at":             "2024-05-01T12:00:00Z",
			"analysis_version":         "2.1",
			"data_sources_used":        float64(4),
			"total_validation_points":  float64(12),
			"processing_time_estimate": "10-15 minutes",
		},
		"validation_summary": map[string]interface{}{
			"MarketAnalysis": map[string]interface{}{"category_average": float64(8)},
			"Scalability":    map[string]interface{}{"error": "boom"},
		},
		"comments": []interface{}{"MarketAnalysis analysis reveals a large market."},
		"details": map[string]interface{}{
			"name":         "Acme Health",
			"founded_year": float64(2021),
			"sub-domain":   nil,
		},
		"summary":         "Acme Health shows promise.",
		"final_irs_score": float64(7),
		"final_cs_score":  float64(8),
		"uniqueness":      float64(90),
	}
}

// ==========================
// Schema Loading
// ==========================

func TestReportSchema_Shape(t *testing.T) {
	schema := ReportSchema()

	assert.Equal(t, TypeList{"object"}, schema.Type)
	assert.Contains(t, schema.Required, "pitchId")
	assert.Equal(t, TypeList{"integer", "string"}, schema.Properties["details"].Properties["founded_year"].Type)
	assert.Equal(t, "date-time", schema.Properties["metadata"].Properties["generated_at"].Format)
}

func TestReportSchema_ReturnsFreshCopy(t *testing.T) {
	first := ReportSchema()
	first.Required = nil

	assert.NotEmpty(t, ReportSchema().Required)
}

func TestGetSchemaFromJSON_RejectsBadType(t *testing.T) {
	_, err := GetSchemaFromJSON([]byte(`{"type": 42}`))
	assert.Error(t, err)
}

// ==========================
// Coercion
// ==========================

func TestCoerce_FillsMissingRequiredFields(t *testing.T) {
	now := fixClock(t)

	out := Coerce(map[string]interface{}{"metadata": map[string]interface{}{}}, nil)

	assert.Equal(t, "unknown_id", out["pitchId"])
	assert.Equal(t, "unknown_id", out["clientId"])
	assert.Equal(t, map[string]interface{}{}, out["validation_summary"])
	assert.Equal(t, []interface{}{}, out["comments"])
	assert.Equal(t, map[string]interface{}{}, out["details"])
	assert.Equal(t, "", out["summary"])

	metadata := out["metadata"].(map[string]interface{})
	assert.Equal(t, now.Format(time.RFC3339), metadata["generated_at"])
	assert.Equal(t, "1.0", metadata["analysis_version"])

	stamp := out["_validation"].(map[string]interface{})
	assert.Equal(t, true, stamp["is_valid"])
	assert.Equal(t, SchemaVersion, stamp["schema_version"])
}

func TestCoerce_ConvertsMismatchedTypes(t *testing.T) {
	fixClock(t)

	tests := []struct {
		name           string
		mutate         func(r map[string]interface{})
		validateOutput func(t *testing.T, out map[string]interface{})
	}{
		{
			name:   "numeric string to integer",
			mutate: func(r map[string]interface{}) { r["final_irs_score"] = "7.6" },
			validateOutput: func(t *testing.T, out map[string]interface{}) {
				assert.Equal(t, 7, out["final_irs_score"])
			},
		},
		{
			name:   "unparseable string to integer",
			mutate: func(r map[string]interface{}) { r["uniqueness"] = "high" },
			validateOutput: func(t *testing.T, out map[string]interface{}) {
				assert.Equal(t, 0, out["uniqueness"])
			},
		},
		{
			name:   "fractional float to integer",
			mutate: func(r map[string]interface{}) { r["final_cs_score"] = 8.9 },
			validateOutput: func(t *testing.T, out map[string]interface{}) {
				assert.Equal(t, 8, out["final_cs_score"])
			},
		},
		{
			name:   "number to string",
			mutate: func(r map[string]interface{}) { r["pitchId"] = float64(12345) },
			validateOutput: func(t *testing.T, out map[string]interface{}) {
				assert.Equal(t, "12345", out["pitchId"])
			},
		},
		{
			name:   "scalar wrapped into array",
			mutate: func(r map[string]interface{}) { r["pros"] = "Strong team" },
			validateOutput: func(t *testing.T, out map[string]interface{}) {
				assert.Equal(t, []interface{}{"Strong team"}, out["pros"])
			},
		},
		{
			name:   "null array becomes empty",
			mutate: func(r map[string]interface{}) { r["red_flags"] = nil },
			validateOutput: func(t *testing.T, out map[string]interface{}) {
				assert.Equal(t, []interface{}{}, out["red_flags"])
			},
		},
		{
			name:   "array items converted",
			mutate: func(r map[string]interface{}) { r["comments"] = []interface{}{"ok", float64(3)} },
			validateOutput: func(t *testing.T, out map[string]interface{}) {
				assert.Equal(t, []interface{}{"ok", "3"}, out["comments"])
			},
		},
		{
			name:   "non-object replaced",
			mutate: func(r map[string]interface{}) { r["data_quality_assessment"] = "n/a" },
			validateOutput: func(t *testing.T, out map[string]interface{}) {
				assert.Equal(t, map[string]interface{}{}, out["data_quality_assessment"])
			},
		},
		{
			name: "nested field converted",
			mutate: func(r map[string]interface{}) {
				r["details"].(map[string]interface{})["name"] = float64(42)
			},
			validateOutput: func(t *testing.T, out map[string]interface{}) {
				assert.Equal(t, "42", out["details"].(map[string]interface{})["name"])
			},
		},
		{
			name: "union type keeps string year",
			mutate: func(r map[string]interface{}) {
				r["details"].(map[string]interface{})["founded_year"] = "circa 2019"
			},
			validateOutput: func(t *testing.T, out map[string]interface{}) {
				assert.Equal(t, "circa 2019", out["details"].(map[string]interface{})["founded_year"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := validReport()
			tt.mutate(report)

			out := Coerce(report, nil)

			tt.validateOutput(t, out)
			assert.Equal(t, true, out["_validation"].(map[string]interface{})["is_valid"])
		})
	}
}

func TestCoerce_DoesNotMutateInput(t *testing.T) {
	fixClock(t)
	report := validReport()
	report["final_irs_score"] = "7"

	_ = Coerce(report, nil)

	assert.Equal(t, "7", report["final_irs_score"])
	assert.NotContains(t, report, "_validation")
}

func TestCoerce_NilReport(t *testing.T) {
	fixClock(t)

	out := Coerce(nil, nil)

	assert.Equal(t, "unknown_id", out["pitchId"])
	assert.Contains(t, out, "_validation")
}

func TestCoerce_SchemaDefaultWins(t *testing.T) {
	fixClock(t)
	schema := &Schema{
		Type:     TypeList{"object"},
		Required: []string{"status"},
		Properties: map[string]*Schema{
			"status": {Type: TypeList{"string"}, Default: "Active"},
		},
	}

	out := Coerce(map[string]interface{}{}, schema)

	assert.Equal(t, "Active", out["status"])
}

func TestDefaultValue_NameHints(t *testing.T) {
	now := fixClock(t)
	str := &Schema{Type: TypeList{"string"}}

	tests := []struct {
		name     string
		field    string
		prop     *Schema
		expected interface{}
	}{
		{name: "date hint", field: "created_date", prop: str, expected: now.Format(time.RFC3339)},
		{name: "id hint", field: "runId", prop: str, expected: "unknown_id"},
		{name: "name hint", field: "company_name", prop: str, expected: "Unknown"},
		{name: "version hint", field: "schema_version", prop: str, expected: "1.0"},
		{name: "plain string", field: "summary", prop: str, expected: ""},
		{name: "number", field: "score", prop: &Schema{Type: TypeList{"number"}}, expected: 0.0},
		{name: "boolean", field: "flag", prop: &Schema{Type: TypeList{"boolean"}}, expected: false},
		{name: "untyped", field: "anything", prop: &Schema{}, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, defaultValue(tt.field, tt.prop))
		})
	}
}

// ==========================
// Validation
// ==========================

func TestValidateReport(t *testing.T) {
	require.NoError(t, ValidateReport(validReport()))

	broken := validReport()
	broken["final_irs_score"] = "seven"
	delete(broken, "summary")

	err := ValidateReport(broken)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeReportValidationFailed))
}

func TestValidate_ReportsFields(t *testing.T) {
	broken := validReport()
	broken["metadata"].(map[string]interface{})["generated_at"] = "yesterday"

	result := Validate(broken, nil)

	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("metadata"))
	assert.NotEmpty(t, result.GetErrorMessages())
}

package validation

import (
	"pitch-analyzer/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// Validate checks document against schema. A schema that cannot be
// compiled is reported as a single error on the root.
func Validate(document map[string]interface{}, schema *Schema) *ValidationResult {
	if schema == nil {
		schema = ReportSchema()
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "SCHEMA_ERROR"}},
		}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	return out
}

// ValidateReport validates a report map against the built-in schema.
func ValidateReport(report map[string]interface{}) error {
	result := Validate(report, ReportSchema())
	if result.Valid {
		return nil
	}
	return errors.NewReportValidationFailedError(result.GetErrorMessages())
}

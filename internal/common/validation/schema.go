// Package validation coerces generated reports into the published report
// schema and validates them with gojsonschema.
package validation

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

//go:embed report_schema.json
var reportSchemaJSON []byte

// TypeList is a JSON schema "type": a single name or a list of names.
type TypeList []string

func (t *TypeList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = TypeList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("type must be a string or a list of strings: %w", err)
	}
	*t = many
	return nil
}

func (t TypeList) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

// Primary is the first listed type, used when a value must be created or
// converted.
func (t TypeList) Primary() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Schema is the subset of JSON schema the report format uses.
type Schema struct {
	Type       TypeList           `json:"type,omitempty"`
	Format     string             `json:"format,omitempty"`
	Default    interface{}        `json:"default,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ReportSchema returns a fresh copy of the built-in report schema.
func ReportSchema() *Schema {
	schema, err := GetSchemaFromJSON(reportSchemaJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded report schema is invalid: %v", err))
	}
	return schema
}

// GetSchemaFromJSON parses a JSON schema document.
func GetSchemaFromJSON(data []byte) (*Schema, error) {
	var schema Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &schema, nil
}

// LoadSchemaFile reads a schema from disk; an empty path yields the
// built-in report schema.
func LoadSchemaFile(path string) (*Schema, error) {
	if path == "" {
		return ReportSchema(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	return GetSchemaFromJSON(data)
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			return true
		}
	}
	return false
}

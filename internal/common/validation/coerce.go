package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const SchemaVersion = "1.0"

// Clock is swapped in tests.
var Clock = time.Now

// Coerce returns a copy of report that fills missing required fields with
// type-appropriate defaults and converts values whose JSON type does not
// match the schema. It never fails. The copy carries a _validation stamp
// recording whether the result passes Validate.
func Coerce(report map[string]interface{}, schema *Schema) map[string]interface{} {
	if schema == nil {
		schema = ReportSchema()
	}
	fixed, _ := deepCopy(report).(map[string]interface{})
	if fixed == nil {
		fixed = map[string]interface{}{}
	}
	coerceObject(fixed, schema)

	result := Validate(fixed, schema)
	fixed["_validation"] = map[string]interface{}{
		"validated_at":   Clock().UTC().Format(time.RFC3339),
		"schema_version": SchemaVersion,
		"is_valid":       result.Valid,
	}
	return fixed
}

func coerceObject(obj map[string]interface{}, schema *Schema) {
	for _, name := range schema.Required {
		if _, ok := obj[name]; !ok {
			obj[name] = defaultValue(name, schema.Properties[name])
		}
	}

	for name, prop := range schema.Properties {
		value, ok := obj[name]
		if !ok || prop == nil {
			continue
		}
		if len(prop.Type) > 0 && !matchesAny(value, prop.Type) {
			value = convert(name, value, prop.Type.Primary())
			obj[name] = value
		}

		switch v := value.(type) {
		case map[string]interface{}:
			coerceObject(v, prop)
		case []interface{}:
			if prop.Items == nil {
				continue
			}
			for i, item := range v {
				if len(prop.Items.Type) > 0 && !matchesAny(item, prop.Items.Type) {
					v[i] = convert(name, item, prop.Items.Type.Primary())
				}
				if nested, ok := v[i].(map[string]interface{}); ok {
					coerceObject(nested, prop.Items)
				}
			}
		}
	}
}

func matchesAny(value interface{}, types TypeList) bool {
	for _, t := range types {
		if matches(value, t) {
			return true
		}
	}
	return false
}

func matches(value interface{}, expected string) bool {
	switch expected {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		_, ok := toFloat(value)
		return ok
	case "integer":
		f, ok := toFloat(value)
		return ok && f == math.Trunc(f)
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]interface{})
		return ok
	case "object":
		_, ok := value.(map[string]interface{})
		return ok
	case "null":
		return value == nil
	}
	return false
}

func convert(name string, value interface{}, target string) interface{} {
	switch target {
	case "string":
		if value == nil {
			return defaultValue(name, &Schema{Type: TypeList{"string"}})
		}
		if f, ok := toFloat(value); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return fmt.Sprint(value)
	case "number":
		if f, ok := numberFrom(value); ok {
			return f
		}
		return 0.0
	case "integer":
		if f, ok := numberFrom(value); ok {
			return int(f)
		}
		return 0
	case "boolean":
		return truthy(value)
	case "array":
		if value == nil {
			return []interface{}{}
		}
		return []interface{}{value}
	case "object":
		return map[string]interface{}{}
	case "null":
		return nil
	}
	return value
}

// defaultValue picks a value for a missing field, using the field name as
// a hint for strings.
func defaultValue(name string, prop *Schema) interface{} {
	if prop == nil {
		return nil
	}
	if prop.Default != nil {
		return deepCopy(prop.Default)
	}

	lower := strings.ToLower(name)
	switch prop.Type.Primary() {
	case "string":
		switch {
		case strings.Contains(lower, "date") || strings.HasSuffix(lower, "_at") || prop.Format == "date-time":
			return Clock().UTC().Format(time.RFC3339)
		case strings.Contains(lower, "id"):
			return "unknown_id"
		case strings.Contains(lower, "name"):
			return "Unknown"
		case strings.Contains(lower, "version"):
			return "1.0"
		}
		return ""
	case "number":
		return 0.0
	case "integer":
		return 0
	case "boolean":
		return false
	case "array":
		return []interface{}{}
	case "object":
		return map[string]interface{}{}
	}
	return nil
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func numberFrom(value interface{}) (float64, bool) {
	if f, ok := toFloat(value); ok {
		return f, true
	}
	switch v := value.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func truthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case []interface{}:
		return len(v) > 0
	case map[string]interface{}:
		return len(v) > 0
	}
	if f, ok := toFloat(value); ok {
		return f != 0
	}
	return true
}

func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	return v
}

// Package schema validates candidate records against a declared shape
// before they reach the store. Validation is pure: it never errors, it
// only reports violations.
package schema

import (
	"fmt"

	"backoffice-service/internal/apierr"
)

// FieldType enumerates the types a shape can declare for a field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Field declares the expected type of one field.
type Field struct {
	Type     FieldType
	Nullable bool
	// Items declares the element type for array fields, nil means any.
	Items *Field
}

// Schema declares required fields and a type per field.
type Schema struct {
	Title      string
	Required   []string
	Properties map[string]Field
}

// base fields shared by every persisted entity. Merged into every schema
// so callers only declare their own fields.
var baseProperties = map[string]Field{
	"id":        {Type: TypeString},
	"active":    {Type: TypeBoolean},
	"createdAt": {Type: TypeString},
	"updatedAt": {Type: TypeString, Nullable: true},
}

var baseRequired = []string{"id", "active", "createdAt"}

// New builds a schema with the base record fields and requireds merged in.
func New(title string, required []string, properties map[string]Field) *Schema {
	props := make(map[string]Field, len(baseProperties)+len(properties))
	for k, v := range baseProperties {
		props[k] = v
	}
	for k, v := range properties {
		props[k] = v
	}

	reqs := make([]string, 0, len(baseRequired)+len(required))
	seen := map[string]bool{}
	for _, r := range append(append([]string{}, baseRequired...), required...) {
		if !seen[r] {
			seen[r] = true
			reqs = append(reqs, r)
		}
	}

	return &Schema{Title: title, Required: reqs, Properties: props}
}

// Validate checks candidate against the schema and returns the list of
// violations, empty when the candidate is valid.
func (s *Schema) Validate(candidate map[string]any) []apierr.Violation {
	var out []apierr.Violation

	for _, req := range s.Required {
		v, ok := candidate[req]
		if !ok || v == nil {
			out = append(out, apierr.Violation{
				Field:    req,
				Expected: "required",
				Actual:   "missing",
			})
		}
	}

	for name, field := range s.Properties {
		v, ok := candidate[name]
		if !ok {
			continue
		}
		if v == nil {
			if !field.Nullable {
				out = append(out, apierr.Violation{
					Field:    name,
					Expected: string(field.Type),
					Actual:   "null",
				})
			}
			continue
		}
		if !matchesType(v, field) {
			out = append(out, apierr.Violation{
				Field:    name,
				Expected: string(field.Type),
				Actual:   typeName(v),
			})
		}
	}

	return out
}

func matchesType(v any, field Field) bool {
	switch field.Type {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeNumber:
		switch v.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case TypeArray:
		items, ok := v.([]any)
		if !ok {
			// typed slices pass as arrays without element checks
			switch v.(type) {
			case []string, []int, []float64, []map[string]any:
				return true
			}
			return false
		}
		if field.Items == nil {
			return true
		}
		for _, item := range items {
			if item == nil {
				if field.Items.Nullable {
					continue
				}
				return false
			}
			if !matchesType(item, *field.Items) {
				return false
			}
		}
		return true
	case TypeObject:
		_, ok := v.(map[string]any)
		return ok
	default:
		return false
	}
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int32, int64, float32, float64:
		return "number"
	case []any, []string, []int, []float64, []map[string]any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

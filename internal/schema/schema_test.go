package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	return New("widgets", []string{"name"}, map[string]Field{
		"name":   {Type: TypeString},
		"count":  {Type: TypeNumber},
		"note":   {Type: TypeString, Nullable: true},
		"labels": {Type: TypeArray, Items: &Field{Type: TypeString}},
		"meta":   {Type: TypeObject},
	})
}

func validCandidate() map[string]any {
	return map[string]any{
		"id":        "w-1",
		"active":    true,
		"createdAt": "2026-01-01T00:00:00Z",
		"name":      "widget",
		"count":     float64(3),
		"labels":    []any{"a", "b"},
	}
}

func TestValidateOK(t *testing.T) {
	violations := testSchema().Validate(validCandidate())
	assert.Empty(t, violations)
}

func TestBaseFieldsMergedIn(t *testing.T) {
	s := testSchema()
	candidate := validCandidate()
	delete(candidate, "createdAt")

	violations := s.Validate(candidate)
	require.Len(t, violations, 1)
	assert.Equal(t, "createdAt", violations[0].Field)
	assert.Equal(t, "required", violations[0].Expected)
}

func TestMissingRequired(t *testing.T) {
	candidate := validCandidate()
	delete(candidate, "name")

	violations := testSchema().Validate(candidate)
	require.Len(t, violations, 1)
	assert.Equal(t, "name", violations[0].Field)
}

func TestTypeMismatch(t *testing.T) {
	candidate := validCandidate()
	candidate["count"] = "three"

	violations := testSchema().Validate(candidate)
	require.Len(t, violations, 1)
	assert.Equal(t, "count", violations[0].Field)
	assert.Equal(t, "number", violations[0].Expected)
	assert.Equal(t, "string", violations[0].Actual)
}

func TestNullability(t *testing.T) {
	candidate := validCandidate()
	candidate["note"] = nil
	assert.Empty(t, testSchema().Validate(candidate))

	candidate["meta"] = nil
	violations := testSchema().Validate(candidate)
	require.Len(t, violations, 1)
	assert.Equal(t, "meta", violations[0].Field)
}

func TestArrayItemType(t *testing.T) {
	candidate := validCandidate()
	candidate["labels"] = []any{"a", float64(2)}

	violations := testSchema().Validate(candidate)
	require.Len(t, violations, 1)
	assert.Equal(t, "labels", violations[0].Field)
}

func TestValidateIsPure(t *testing.T) {
	candidate := validCandidate()
	_ = testSchema().Validate(candidate)
	assert.Equal(t, validCandidate(), candidate)
}

func TestUnknownFieldsIgnored(t *testing.T) {
	candidate := validCandidate()
	candidate["extra"] = 42
	assert.Empty(t, testSchema().Validate(candidate))
}

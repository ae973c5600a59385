package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFields_Valid(t *testing.T) {
	require.NoError(t, ValidateFields(DefaultFields()))

	required := 0
	for _, f := range DefaultFields() {
		assert.NotEmpty(t, f.Patterns, "field %s has no patterns", f.Name)
		if f.Required {
			required++
		}
	}
	assert.Equal(t, 4, required)
}

func TestValidateFields_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
	}{
		{"empty table", nil},
		{"no name", []Field{{Patterns: []string{"x"}, Type: TypeString}}},
		{"duplicate", []Field{
			{Name: "a", Patterns: []string{"x"}, Type: TypeString},
			{Name: "a", Patterns: []string{"y"}, Type: TypeString},
		}},
		{"unknown type", []Field{{Name: "a", Patterns: []string{"x"}, Type: "money"}}},
		{"no usable patterns", []Field{{Name: "a", Patterns: []string{"--", ""}, Type: TypeString}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateFields(tt.fields), ErrInvalidField)
			_, err := NewMapper(tt.fields)
			assert.ErrorIs(t, err, ErrInvalidField)
		})
	}
}

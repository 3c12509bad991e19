package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskType_Valid(t *testing.T) {
	t.Parallel()
	for _, m := range []MaskType{"", MaskRedact, MaskHash, MaskPartial, MaskEmail, MaskNull} {
		assert.True(t, m.Valid(), "expected %q to be valid", m)
	}
	for _, m := range []MaskType{"encrypt", "REDACT", "sha256"} {
		assert.False(t, m.Valid(), "expected %q to be invalid", m)
	}
}

func TestMask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
		mask  MaskType
		want  any
	}{
		{"redact string", "alice@example.com", MaskRedact, "***"},
		{"redact number", 42, MaskRedact, "***"},
		{"partial long", "1234567890", MaskPartial, "******7890"},
		{"partial short", "ab", MaskPartial, "***ab"},
		{"partial int", 12345, MaskPartial, "*2345"},
		{"email", "alice@example.com", MaskEmail, "a***@example.com"},
		{"email unicode local part", "élise@example.fr", MaskEmail, "é***@example.fr"},
		{"email without at falls back to partial", "not-an-email", MaskEmail, "********mail"},
		{"null", "secret", MaskNull, nil},
		{"unknown keeps value", "keep-me", "unknown", "keep-me"},
		{"nil stays nil", nil, MaskRedact, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Mask(tt.value, tt.mask))
		})
	}
}

func TestMask_Hash(t *testing.T) {
	t.Parallel()
	h, ok := Mask("alice@example.com", MaskHash).(string)
	assert.True(t, ok)
	assert.Len(t, h, 64)
	assert.Equal(t, h, Mask("alice@example.com", MaskHash))
	assert.NotEqual(t, h, Mask("bob@example.com", MaskHash))
	assert.Equal(t, Mask(12345, MaskHash), Mask("12345", MaskHash))
}

func TestMask_PartialUnicode(t *testing.T) {
	t.Parallel()
	s, ok := Mask("café résumé", MaskPartial).(string)
	assert.True(t, ok)
	assert.True(t, strings.HasSuffix(s, "sumé"))
	assert.Equal(t, "*******", string([]rune(s)[:7]))
}

func TestMaskRows(t *testing.T) {
	t.Parallel()
	rows := []Row{
		{"id": 1, "email": "alice@example.com", "name": "Alice"},
		{"id": 2, "EMAIL": "bob@example.com", "name": "Bob"},
	}

	MaskRows(rows, ColumnMasks{"email": MaskRedact})

	assert.Equal(t, "***", rows[0]["email"])
	assert.Equal(t, "***", rows[1]["EMAIL"])
	assert.Equal(t, "Alice", rows[0]["name"])
	assert.Equal(t, 1, rows[0]["id"])
}

func TestMaskRows_NoMasks(t *testing.T) {
	t.Parallel()
	rows := []Row{{"email": "alice@example.com"}}

	MaskRows(rows, nil)
	MaskRows(rows, ColumnMasks{})
	MaskRows(rows, ColumnMasks{"ssn": MaskRedact})

	assert.Equal(t, "alice@example.com", rows[0]["email"])
}

package postgres

import (
	"encoding/json"
	"math"
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeValue(t *testing.T) {
	t.Parallel()

	id := [16]byte{0x6b, 0xa7, 0xb8, 0x10, 0x9d, 0xad, 0x11, 0xd1, 0x80, 0xb4, 0x00, 0xc0, 0x4f, 0xd4, 0x30, 0xc8}

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"uuid bytes", id, "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{"numeric", pgtype.Numeric{Int: big.NewInt(129999), Exp: -2, Valid: true}, json.Number("1299.99")},
		{"null numeric", pgtype.Numeric{}, nil},
		{"nan numeric", pgtype.Numeric{NaN: true, Valid: true}, "NaN"},
		{"nan float8", math.NaN(), "NaN"},
		{"infinite float8", math.Inf(1), "Infinity"},
		{"negative infinite float4", float32(math.Inf(-1)), "-Infinity"},
		{"finite float8 passes through", 19.5, 19.5},
		{"string passes through", "Laptop", "Laptop"},
		{"int passes through", int32(7), int32(7)},
		{"nil passes through", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, normalizeValue(tt.in))
		})
	}
}

package domain

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// MaskType is how a sensitive column is rewritten before rows leave the service.
type MaskType string

const (
	MaskRedact  MaskType = "redact"
	MaskHash    MaskType = "hash"
	MaskPartial MaskType = "partial"
	MaskEmail   MaskType = "email"
	MaskNull    MaskType = "null"
)

// Valid reports whether m is a known mask. The zero value means "no mask".
func (m MaskType) Valid() bool {
	switch m {
	case MaskRedact, MaskHash, MaskPartial, MaskEmail, MaskNull, "":
		return true
	}
	return false
}

// ColumnMasks maps a result column name to its mask. Lookups are
// case-insensitive because PostgreSQL folds unquoted identifiers.
type ColumnMasks map[string]MaskType

func (c ColumnMasks) lookup(column string) (MaskType, bool) {
	if m, ok := c[column]; ok {
		return m, true
	}
	m, ok := c[strings.ToLower(column)]
	return m, ok
}

// Mask rewrites a single value. NULL stays NULL for every mask type.
func Mask(value any, m MaskType) any {
	if value == nil {
		return nil
	}

	s := fmt.Sprint(value)
	switch m {
	case MaskRedact:
		return "***"
	case MaskHash:
		return fmt.Sprintf("%x", sha256.Sum256([]byte(s)))
	case MaskPartial:
		return keepLast(s, 4)
	case MaskEmail:
		local, domain, ok := strings.Cut(s, "@")
		if !ok || local == "" {
			return keepLast(s, 4)
		}
		return string([]rune(local)[:1]) + "***@" + domain
	case MaskNull:
		return nil
	default:
		return value
	}
}

// keepLast replaces all but the last n runes with asterisks.
func keepLast(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return "***" + s
	}
	for i := 0; i < len(runes)-n; i++ {
		runes[i] = '*'
	}
	return string(runes)
}

// MaskRows applies masks to rows in place.
func MaskRows(rows []Row, masks ColumnMasks) {
	if len(masks) == 0 {
		return
	}
	for _, row := range rows {
		for col, val := range row {
			if m, ok := masks.lookup(col); ok {
				row[col] = Mask(val, m)
			}
		}
	}
}

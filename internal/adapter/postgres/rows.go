package postgres

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/guillermoBallester/askdb/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// rowsToMaps converts pgx.Rows into rows keyed by column name, stopping
// after limit rows when limit > 0. The caller closes rows.
func rowsToMaps(rows pgx.Rows, limit int) ([]domain.Row, error) {
	fields := rows.FieldDescriptions()
	result := []domain.Row{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row values: %w", err)
		}
		row := make(domain.Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = normalizeValue(vals[i])
		}
		result = append(result, row)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}

// normalizeValue turns pgx's decoded types into values that render sensibly
// as JSON and in a terminal table.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case [16]byte:
		return uuid.UUID(val).String()
	case pgtype.Numeric:
		return numericValue(val)
	default:
		return domain.JSONValue(v)
	}
}

func numericValue(n pgtype.Numeric) any {
	if !n.Valid {
		return nil
	}
	dv, err := n.Value()
	if err != nil {
		return nil
	}
	s, ok := dv.(string)
	if !ok {
		return dv
	}
	if strings.ContainsAny(s, "NnIi") {
		// NaN and Infinity have no JSON number form.
		return s
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return s
	}
	return json.Number(s)
}

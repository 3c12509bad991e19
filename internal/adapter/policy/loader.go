package policy

import (
	"fmt"
	"os"
	"strings"

	"github.com/guillermoBallester/askdb/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// LoadFromFile reads a YAML policy file and returns a validated Policy.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	var pol Policy
	if err := yaml.Unmarshal(data, &pol); err != nil {
		return nil, fmt.Errorf("parsing policy YAML: %w", err)
	}

	if err := validate(&pol); err != nil {
		return nil, fmt.Errorf("validating policy: %w", err)
	}

	return &pol, nil
}

func validate(pol *Policy) error {
	// Masks apply by result column name, so one name cannot carry two masks.
	seen := make(map[string]domain.MaskType)

	for key, tc := range pol.Context.Tables {
		if key == "" {
			return fmt.Errorf("context.tables contains an empty key")
		}
		for col, cc := range tc.Columns {
			if col == "" {
				return fmt.Errorf("context.tables[%q].columns contains an empty key", key)
			}
			if !cc.Mask.Valid() {
				return fmt.Errorf("context.tables[%q].columns[%q].mask: invalid value %q (allowed: redact, hash, partial, email, null)", key, col, cc.Mask)
			}
			if cc.Mask == "" {
				continue
			}
			name := strings.ToLower(col)
			if prev, ok := seen[name]; ok && prev != cc.Mask {
				return fmt.Errorf("conflicting masks for column %q: %q and %q", col, prev, cc.Mask)
			}
			seen[name] = cc.Mask
		}
	}

	for i, ex := range pol.Examples {
		if strings.TrimSpace(ex.Question) == "" || strings.TrimSpace(ex.SQL) == "" {
			return fmt.Errorf("examples[%d]: question and sql are required", i)
		}
		if _, err := domain.NewStatementValidator().Validate(ex.SQL); err != nil {
			return fmt.Errorf("examples[%d].sql: %w", i, err)
		}
	}
	return nil
}

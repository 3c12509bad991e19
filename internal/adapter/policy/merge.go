package policy

import (
	"strings"

	"github.com/guillermoBallester/askdb/internal/core/domain"
)

// ApplyToPrompt returns a copy of p enriched with the policy's descriptions
// and examples. Descriptions only fill gaps: a table that already has one,
// or a column line that already carries a "--" note, is left alone.
func ApplyToPrompt(p domain.PromptConfig, pol *Policy) domain.PromptConfig {
	if pol == nil {
		return p
	}

	tables := make([]domain.Table, len(p.Tables))
	for i, t := range p.Tables {
		t.Columns = append([]string(nil), t.Columns...)
		if tc, ok := lookupTable(pol.Context, t.Name); ok {
			if t.Description == "" {
				t.Description = tc.Description
			}
			for j, line := range t.Columns {
				cc, ok := tc.Columns[columnName(line)]
				if ok && cc.Description != "" && !strings.Contains(line, "--") {
					t.Columns[j] = line + "  -- " + cc.Description
				}
			}
		}
		tables[i] = t
	}
	p.Tables = tables

	examples := append([]domain.Example(nil), p.Examples...)
	for _, ex := range pol.Examples {
		examples = append(examples, domain.Example{Question: ex.Question, SQL: ex.SQL})
	}
	p.Examples = examples

	return p
}

// Masks extracts the column-name → mask map applied to query results.
func (pol *Policy) Masks() domain.ColumnMasks {
	masks := make(domain.ColumnMasks)
	if pol == nil {
		return masks
	}
	for _, tc := range pol.Context.Tables {
		for col, cc := range tc.Columns {
			if cc.Mask != "" {
				masks[strings.ToLower(col)] = cc.Mask
			}
		}
	}
	return masks
}

func lookupTable(ctx ContextConfig, name string) (TableContext, bool) {
	if tc, ok := ctx.Tables[name]; ok {
		return tc, true
	}
	tc, ok := ctx.Tables["public."+name]
	return tc, ok
}

func columnName(line string) string {
	if f := strings.Fields(line); len(f) > 0 {
		return f[0]
	}
	return ""
}

// Package policy loads the operator's YAML policy: business descriptions and
// extra examples that enrich the prompt, and column masks applied to results.
package policy

import (
	"fmt"

	"github.com/guillermoBallester/askdb/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// Policy holds operator-controlled configuration loaded from a YAML file.
type Policy struct {
	Context  ContextConfig   `yaml:"context"`
	Examples []ExampleConfig `yaml:"examples"`
}

// ContextConfig maps table names ("users" or "public.users") to business
// descriptions that are merged into the prompt.
type ContextConfig struct {
	Tables map[string]TableContext `yaml:"tables"`
}

// TableContext provides business descriptions and masking rules for a table and its columns.
type TableContext struct {
	Description string                   `yaml:"description"`
	Columns     map[string]ColumnContext `yaml:"columns"`
}

// ColumnContext holds a column's business description and optional mask directive.
type ColumnContext struct {
	Description string          `yaml:"description"`
	Mask        domain.MaskType `yaml:"mask,omitempty"`
}

// ExampleConfig is an extra few-shot pair appended after the built-in ones.
type ExampleConfig struct {
	Question string `yaml:"question"`
	SQL      string `yaml:"sql"`
}

// UnmarshalYAML accepts either a plain description string or a mapping.
//
//	columns:
//	  name: "Display name"     # plain string
//	  email:                   # mapping with optional mask
//	    description: "Login email"
//	    mask: "email"
func (cc *ColumnContext) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		cc.Description = value.Value
		return nil
	}
	type alias ColumnContext
	var a alias
	if err := value.Decode(&a); err != nil {
		return fmt.Errorf("decoding column context: %w", err)
	}
	*cc = ColumnContext(a)
	return nil
}

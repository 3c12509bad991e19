package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPrompt_Build(t *testing.T) {
	t.Parallel()
	p := DefaultPrompt()

	out := p.Build("Which user placed the most orders?")

	for _, table := range []string{"users", "products", "inventories", "orders", "order_items"} {
		assert.Contains(t, out, "Table: "+table+"\n")
	}
	for _, rel := range []string{
		"orders.user_id → users.id",
		"order_items.order_id → orders.id",
		"order_items.product_id → products.id",
		"inventories.product_id → products.id",
	} {
		assert.Contains(t, out, rel)
	}
	assert.Contains(t, out, "Q: \"List top 5 products by price\"")
	assert.Contains(t, out, "SELECT-only")
	assert.Contains(t, out, `Question: "Which user placed the most orders?"`)
}

func TestPromptConfig_TableNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		[]string{"users", "products", "inventories", "orders", "order_items"},
		DefaultPrompt().TableNames(),
	)
}

func TestPromptConfig_BuildWithoutExamples(t *testing.T) {
	t.Parallel()
	p := PromptConfig{Dialect: "PostgreSQL", Tables: []Table{{Name: "t", Columns: []string{"id INT"}}}}

	out := p.Build("count t")
	assert.NotContains(t, out, "Examples:")
	assert.NotContains(t, out, "Relationships:")
	assert.Contains(t, out, "- id INT")
}

func TestPromptConfig_BuildEmbedsQuestionVerbatim(t *testing.T) {
	t.Parallel()
	q := "orders placed\nlast week by \"vip\" users"

	out := DefaultPrompt().Build(q)
	assert.Contains(t, out, q)
}

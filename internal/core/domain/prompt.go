package domain

import (
	"fmt"
	"strings"
)

// Table is one relation described to the model. Each column is a DDL-style
// line starting with the column name.
type Table struct {
	Name        string
	Description string
	Columns     []string
}

// Example is a few-shot question/SQL pair.
type Example struct {
	Question string
	SQL      string
}

// PromptConfig is the static schema and guidance embedded in every prompt.
// It is configuration, never discovered from the database at runtime.
type PromptConfig struct {
	Dialect       string
	Tables        []Table
	Relationships []string
	Examples      []Example
}

// DefaultPrompt returns the compiled-in shop schema: users, products,
// inventories, orders and order_items.
func DefaultPrompt() PromptConfig {
	return PromptConfig{
		Dialect: "PostgreSQL",
		Tables: []Table{
			{Name: "users", Columns: []string{
				"id SERIAL PRIMARY KEY",
				"name VARCHAR(100) NOT NULL",
				"email VARCHAR(100) UNIQUE NOT NULL",
				"created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
			}},
			{Name: "products", Columns: []string{
				"id SERIAL PRIMARY KEY",
				"name VARCHAR(100) NOT NULL",
				"description TEXT",
				"price NUMERIC(10,2) NOT NULL",
				"created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
			}},
			{Name: "inventories", Columns: []string{
				"product_id INT PRIMARY KEY REFERENCES products(id) ON DELETE CASCADE",
				"quantity INT NOT NULL DEFAULT 0",
				"updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
			}},
			{Name: "orders", Columns: []string{
				"id SERIAL PRIMARY KEY",
				"user_id INT REFERENCES users(id) ON DELETE CASCADE",
				"order_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
				"status VARCHAR(20) DEFAULT 'pending'",
			}},
			{Name: "order_items", Columns: []string{
				"id SERIAL PRIMARY KEY",
				"order_id INT REFERENCES orders(id) ON DELETE CASCADE",
				"product_id INT REFERENCES products(id) ON DELETE CASCADE",
				"quantity INT NOT NULL",
				"price NUMERIC(10,2) NOT NULL  -- snapshot of product price",
				"UNIQUE(order_id, product_id)",
			}},
		},
		Relationships: []string{
			"orders.user_id → users.id",
			"order_items.order_id → orders.id",
			"order_items.product_id → products.id",
			"inventories.product_id → products.id",
		},
		Examples: []Example{
			{
				Question: "List top 5 products by price",
				SQL:      "SELECT name, price\nFROM products\nORDER BY price DESC\nLIMIT 5;",
			},
			{
				Question: "Which 5 products generated the highest total sales?",
				SQL: "SELECT p.name, SUM(oi.price * oi.quantity) AS total_sales\n" +
					"FROM order_items oi\nJOIN products p ON oi.product_id = p.id\n" +
					"GROUP BY p.name\nORDER BY total_sales DESC\nLIMIT 5;",
			},
			{
				Question: "Which user placed the most orders?",
				SQL: "SELECT u.name, COUNT(o.id) AS total_orders\n" +
					"FROM users u\nJOIN orders o ON o.user_id = u.id\n" +
					"GROUP BY u.name\nORDER BY total_orders DESC\nLIMIT 1;",
			},
		},
	}
}

// TableNames lists the tables the prompt describes.
func (p PromptConfig) TableNames() []string {
	names := make([]string, 0, len(p.Tables))
	for _, t := range p.Tables {
		names = append(names, t.Name)
	}
	return names
}

// Build renders the full prompt for question. The question is embedded
// verbatim.
func (p PromptConfig) Build(question string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert %s SQL assistant.\n\n", p.Dialect)
	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- Database is %s.\n", p.Dialect)
	b.WriteString("- The schema is already provided. Do not use DESCRIBE, SHOW TABLES, or \\d commands.\n")
	b.WriteString("- Only generate valid SELECT queries over the following tables:\n")

	for _, t := range p.Tables {
		fmt.Fprintf(&b, "\nTable: %s\n", t.Name)
		if t.Description != "" {
			fmt.Fprintf(&b, "(%s)\n", t.Description)
		}
		for _, c := range t.Columns {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	if len(p.Relationships) > 0 {
		b.WriteString("\n---\nRelationships:\n")
		for _, r := range p.Relationships {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}

	if len(p.Examples) > 0 {
		b.WriteString("\n---\nExamples:\n")
		for _, ex := range p.Examples {
			fmt.Fprintf(&b, "\nQ: \"%s\"\nSQL:\n%s\n", ex.Question, ex.SQL)
		}
	}

	b.WriteString("\n---\nTask:\n")
	fmt.Fprintf(&b, "Write a %s **SELECT-only** SQL query to answer the question below.\n", p.Dialect)
	b.WriteString("- Only use columns that exist in the schema.\n")
	b.WriteString("- Use proper JOINs when referencing multiple tables.\n")
	b.WriteString("- Do not include any explanation or commentary.\n")
	b.WriteString("- Output **only the SQL** (no backticks).\n")
	b.WriteString("- If unsure, return the closest meaningful SELECT instead.\n")

	fmt.Fprintf(&b, "\nQuestion: \"%s\"", question)

	return b.String()
}

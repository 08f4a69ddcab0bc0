// Package prompt renders the schema snapshot and the user's question into the
// instruction pair sent to the LLM. Rendering is deterministic for a fixed
// snapshot so the cache key stays stable across repeated calls.
package prompt

import (
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/schema"
)

// Prompt is the system/user instruction pair for one translation.
type Prompt struct {
	System string
	User   string
}

const systemTemplate = `You are an expert SQL query generator. Your task is to convert natural language questions into accurate SQL queries.

Rules:
1. Generate ONLY valid %s SQL queries
2. Use the exact table and column names from the provided schema
3. Do NOT include any explanations or markdown formatting in your response - just the SQL query
4. Use proper JOIN syntax when querying multiple tables
5. Use appropriate aggregate functions (COUNT, SUM, AVG, etc.) when needed
6. Ensure queries are efficient and use proper indexes when possible
7. Return only SELECT queries - never generate INSERT, UPDATE, DELETE, or DROP statements
8. Use proper SQL syntax including WHERE clauses, GROUP BY, ORDER BY as needed

The database schema will be provided in the user's message.`

const userTemplate = `Database Schema:
%s

Natural Language Query: %s

Generate a SQL query for the above question. Return ONLY the SQL query, no explanations.`

// Builder renders prompts for a single target dialect. Dialect is the
// human-readable engine name interpolated into the policy string, e.g.
// "SQLite" or "PostgreSQL".
type Builder struct {
	dialect string
}

func NewBuilder(dialect string) *Builder {
	if strings.TrimSpace(dialect) == "" {
		dialect = "SQLite"
	}
	return &Builder{dialect: dialect}
}

// Generate produces the instruction pair for one question against the given
// snapshot.
func (b *Builder) Generate(question string, model schema.Model) Prompt {
	return Prompt{
		System: fmt.Sprintf(systemTemplate, b.dialect),
		User:   fmt.Sprintf(userTemplate, RenderSchema(model), question),
	}
}

// RenderSchema formats the snapshot as indented text: one block per table in
// snapshot order, columns in catalog order with PRIMARY KEY / NOT NULL tags,
// then the foreign-key edges. The referenced column name defaults to "id"
// when the catalog did not report one.
func RenderSchema(model schema.Model) string {
	var sb strings.Builder
	for _, table := range model.Tables {
		fmt.Fprintf(&sb, "\nTable: %s\n", table.Name)
		fmt.Fprintf(&sb, "  Row count: %d\n", table.RowCount)
		sb.WriteString("  Columns:\n")
		for _, col := range table.Columns {
			fmt.Fprintf(&sb, "    - %s (%s)", col.Name, col.Type)
			if col.PrimaryKey {
				sb.WriteString(" [PRIMARY KEY]")
			}
			if !col.Nullable {
				sb.WriteString(" [NOT NULL]")
			}
			sb.WriteString("\n")
		}
		if len(table.ForeignKeys) > 0 {
			sb.WriteString("  Foreign Keys:\n")
			for _, fk := range table.ForeignKeys {
				if fk.Column == "" || fk.ReferencesTable == "" {
					continue
				}
				refColumn := fk.ReferencesColumn
				if refColumn == "" {
					refColumn = "id"
				}
				fmt.Fprintf(&sb, "    - %s -> %s.%s\n", fk.Column, fk.ReferencesTable, refColumn)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

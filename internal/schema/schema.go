// Package schema holds the structured snapshot of a database catalog used to
// ground prompt generation. A Model is built once per orchestrator lifetime
// and treated as read-only after construction.
package schema

// Column describes a single column as reported by the engine catalog. Type is
// the engine-native type name, not a normalized form.
type Column struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Nullable   bool    `json:"nullable"`
	Default    *string `json:"default"`
	PrimaryKey bool    `json:"primary_key"`
}

// ForeignKey is one outgoing edge from a table. ReferencesColumn may be empty
// when the engine does not report it; renderers default it to "id".
type ForeignKey struct {
	Column           string `json:"column"`
	ReferencesTable  string `json:"references_table"`
	ReferencesColumn string `json:"references_column"`
}

// Table carries columns in catalog order plus key metadata and a row count
// taken at snapshot time.
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKeys []string     `json:"primary_keys"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
	RowCount    int64        `json:"row_count"`
}

// Relationship is a derived, directional edge: one per foreign key, child
// pointing at parent. No attempt is made to close the reverse direction.
type Relationship struct {
	FromTable string `json:"from_table"`
	ToTable   string `json:"to_table"`
	ToColumn  string `json:"to_column"`
	Type      string `json:"relationship_type"`
}

const RelationshipManyToOne = "many_to_one"

// Model is a point-in-time snapshot of the catalog. Tables preserve catalog
// enumeration order so that downstream rendering is deterministic.
type Model struct {
	Tables        []Table        `json:"tables"`
	Relationships []Relationship `json:"relationships"`
}

// Table returns the table with the given name, or false when absent.
func (m Model) Table(name string) (Table, bool) {
	for _, table := range m.Tables {
		if table.Name == name {
			return table, true
		}
	}
	return Table{}, false
}

// DeriveRelationships produces the many-to-one edge list from the foreign
// keys of the given tables, in table order.
func DeriveRelationships(tables []Table) []Relationship {
	relationships := make([]Relationship, 0)
	for _, table := range tables {
		for _, fk := range table.ForeignKeys {
			relationships = append(relationships, Relationship{
				FromTable: table.Name,
				ToTable:   fk.ReferencesTable,
				ToColumn:  fk.ReferencesColumn,
				Type:      RelationshipManyToOne,
			})
		}
	}
	return relationships
}

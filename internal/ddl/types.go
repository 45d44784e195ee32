package ddl

import "salesetl/internal/schema"

// ColumnDef describes a single column in a table definition.
//
//   - Name: column name (emitted as-is)
//   - SQLType: dialect SQL type (e.g., TEXT, NUMERIC, DATE)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// ForeignKeyDef is a single-column reference to another table.
type ForeignKeyDef struct {
	Column    string
	RefTable  string
	RefColumn string
}

// TableDef holds the table name and its ordered columns and references.
type TableDef struct {
	FQN         string
	Columns     []ColumnDef
	ForeignKeys []ForeignKeyDef
}

// IndexDef is a secondary index.
type IndexDef struct {
	Name    string
	Table   string
	Columns []string
}

// TypeMapper renders a logical column type as a dialect SQL type.
type TypeMapper func(schema.Type) string

// FromTable converts a warehouse table into a TableDef using typeOf for
// column types. Required columns and the primary key are NOT NULL.
func FromTable(t schema.Table, typeOf TypeMapper) TableDef {
	td := TableDef{FQN: t.Name}
	for _, c := range t.Columns {
		pk := c.Name == t.PrimaryKey
		td.Columns = append(td.Columns, ColumnDef{
			Name:       c.Name,
			SQLType:    typeOf(c.Type),
			Nullable:   !(c.Required || pk),
			PrimaryKey: pk,
		})
	}
	for _, fk := range t.ForeignKeys {
		td.ForeignKeys = append(td.ForeignKeys, ForeignKeyDef(fk))
	}
	return td
}

// FromIndex converts a warehouse index into an IndexDef.
func FromIndex(ix schema.Index) IndexDef {
	return IndexDef{Name: ix.Name, Table: ix.Table, Columns: append([]string(nil), ix.Columns...)}
}

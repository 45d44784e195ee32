// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render CREATE TABLE and CREATE INDEX statements from that model.
//
// The package stays generic: it does not quote identifiers and does not emit
// dialect clauses such as IF NOT EXISTS. Dialects in internal/storage/* pick
// the SQL types and decide how to drop objects; rendering of the common
// CREATE statements happens here.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders a CREATE TABLE statement from a TableDef.
//
// A column is rendered as
//
//	<Name> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
// followed by a PRIMARY KEY (<pk-cols>) clause when any column is marked as
// part of the key, and one FOREIGN KEY clause per reference, in order.
func BuildCreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1+len(t.ForeignKeys))
	pks := make([]string, 0, 1)
	known := make(map[string]struct{}, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}
		known[name] = struct{}{}

		var sb strings.Builder
		sb.WriteString(name)
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, name)
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	for _, fk := range t.ForeignKeys {
		if _, ok := known[fk.Column]; !ok {
			return "", fmt.Errorf("ddl: foreign key on unknown column %s in table %s", fk.Column, fqn)
		}
		if fk.RefTable == "" || fk.RefColumn == "" {
			return "", fmt.Errorf("ddl: foreign key %s in table %s has no target", fk.Column, fqn)
		}
		cols = append(cols, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)", fk.Column, fk.RefTable, fk.RefColumn))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", fqn, strings.Join(cols, ",\n  ")), nil
}

// BuildCreateIndexSQL renders CREATE INDEX <name> ON <table>(<cols>);
func BuildCreateIndexSQL(ix IndexDef) (string, error) {
	if strings.TrimSpace(ix.Name) == "" || strings.TrimSpace(ix.Table) == "" {
		return "", fmt.Errorf("ddl: index name and table are required")
	}
	if len(ix.Columns) == 0 {
		return "", fmt.Errorf("ddl: index %s has no columns", ix.Name)
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s(%s);", ix.Name, ix.Table, strings.Join(ix.Columns, ", ")), nil
}

// Package ddl contains the SQLite dialect of the warehouse DDL.
//
// SQLite has no materialized views and no DROP ... CASCADE, so summaries are
// plain tables created from a SELECT and dependents are dropped first by the
// caller. Dates are stored as ISO-8601 text.
package ddl

import (
	"fmt"

	"salesetl/internal/schema"
)

// MapType maps a logical column type to a SQLite column type.
func MapType(t schema.Type) string {
	switch t {
	case schema.Integer:
		return "INTEGER"
	case schema.Decimal:
		return "NUMERIC"
	case schema.Date:
		return "DATE"
	default:
		return "TEXT"
	}
}

// Dialect renders SQLite DDL.
type Dialect struct{}

func (Dialect) Name() string                    { return "sqlite" }
func (Dialect) ColumnType(t schema.Type) string { return MapType(t) }

func (Dialect) DropTable(name string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", name)
}

func (Dialect) DropSummary(name string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", name)
}

func (Dialect) CreateSummary(name, selectList, from string) string {
	return fmt.Sprintf("CREATE TABLE %s AS\nSELECT %s\nFROM %s;", name, selectList, from)
}

func (Dialect) MonthStart(col string) string {
	return fmt.Sprintf("date(%s, 'start of month')", col)
}

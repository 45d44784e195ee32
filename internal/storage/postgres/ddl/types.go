// Package ddl contains the Postgres dialect of the warehouse DDL.
package ddl

import (
	"fmt"

	"salesetl/internal/schema"
)

// MapType maps a logical column type to a Postgres SQL type.
//
//	key, text -> TEXT
//	integer   -> INTEGER
//	decimal   -> NUMERIC (arbitrary precision, exact)
//	date      -> DATE
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

// Dialect renders Postgres DDL. Summaries are materialized views.
type Dialect struct{}

func (Dialect) Name() string                    { return "postgres" }
func (Dialect) ColumnType(t schema.Type) string { return MapType(t) }

func (Dialect) DropTable(name string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", name)
}

func (Dialect) DropSummary(name string) string {
	return fmt.Sprintf("DROP MATERIALIZED VIEW IF EXISTS %s CASCADE;", name)
}

func (Dialect) CreateSummary(name, selectList, from string) string {
	return fmt.Sprintf("CREATE MATERIALIZED VIEW %s AS\nSELECT %s\nFROM %s;", name, selectList, from)
}

func (Dialect) MonthStart(col string) string {
	return fmt.Sprintf("DATE_TRUNC('month', %s)::date", col)
}

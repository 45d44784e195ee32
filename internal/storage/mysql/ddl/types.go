// Package ddl contains the MySQL dialect of the warehouse DDL.
package ddl

import (
	"fmt"

	"salesetl/internal/schema"
)

// MapType maps a logical column type into a MySQL column type. Keys are
// VARCHAR because TEXT columns cannot be primary keys or plain indexes.
func MapType(t schema.Type) string {
	switch t {
	case schema.Key:
		return "VARCHAR(255)"
	case schema.Integer:
		return "INT"
	case schema.Decimal:
		return "DECIMAL(19, 4)"
	case schema.Date:
		return "DATE"
	default:
		return "TEXT"
	}
}

// Dialect renders MySQL DDL. Summaries are tables built with
// CREATE TABLE ... AS SELECT.
type Dialect struct{}

func (Dialect) Name() string                    { return "mysql" }
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
	return fmt.Sprintf("CAST(DATE_FORMAT(%s, '%%Y-%%m-01') AS DATE)", col)
}

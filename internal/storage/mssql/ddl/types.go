// Package ddl contains the SQL Server dialect of the warehouse DDL.
//
// SQL Server has no materialized views without schema binding restrictions,
// so summaries are tables filled with SELECT ... INTO.
package ddl

import (
	"fmt"

	"salesetl/internal/schema"
)

// MapType maps a logical column type into a SQL Server column type. Keys use
// a bounded NVARCHAR because NVARCHAR(MAX) cannot be indexed.
func MapType(t schema.Type) string {
	switch t {
	case schema.Key:
		return "NVARCHAR(255)"
	case schema.Integer:
		return "INT"
	case schema.Decimal:
		return "DECIMAL(19, 4)"
	case schema.Date:
		return "DATE"
	default:
		return "NVARCHAR(MAX)"
	}
}

// Dialect renders SQL Server DDL.
type Dialect struct{}

func (Dialect) Name() string                    { return "mssql" }
func (Dialect) ColumnType(t schema.Type) string { return MapType(t) }

func (Dialect) DropTable(name string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", name)
}

func (Dialect) DropSummary(name string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", name)
}

func (Dialect) CreateSummary(name, selectList, from string) string {
	return fmt.Sprintf("SELECT %s\nINTO %s\nFROM %s;", selectList, name, from)
}

func (Dialect) MonthStart(col string) string {
	return fmt.Sprintf("DATEFROMPARTS(YEAR(%s), MONTH(%s), 1)", col, col)
}

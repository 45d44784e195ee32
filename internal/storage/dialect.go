package storage

import (
	"fmt"
	"sync"

	"salesetl/internal/schema"
)

// Dialect renders the backend-specific parts of the warehouse DDL. CREATE
// TABLE and CREATE INDEX are shared (see internal/ddl); types, drops and
// summary objects differ per backend.
type Dialect interface {
	Name() string

	// ColumnType maps a logical column type to a SQL type.
	ColumnType(t schema.Type) string

	// DropTable returns a statement removing table if present, cascading to
	// dependents where the backend supports it.
	DropTable(name string) string

	// DropSummary and CreateSummary manage a derived summary object.
	// CreateSummary builds name from "SELECT <selectList> FROM <from>" as a
	// point-in-time snapshot: a materialized view where supported, otherwise
	// a table populated once.
	DropSummary(name string) string
	CreateSummary(name, selectList, from string) string

	// MonthStart returns an expression truncating the date column col to the
	// first day of its month.
	MonthStart(col string) string
}

var (
	dialectMu sync.RWMutex
	dialects  = map[string]Dialect{}
)

// RegisterDialect registers the dialect of a storage kind so DDL can be
// rendered without opening a connection.
func RegisterDialect(kind string, d Dialect) {
	dialectMu.Lock()
	defer dialectMu.Unlock()
	dialects[kind] = d
}

// DialectFor returns the dialect registered for kind.
func DialectFor(kind string) (Dialect, error) {
	dialectMu.RLock()
	d, ok := dialects[kind]
	dialectMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no dialect registered for storage.kind=%q", kind)
	}
	return d, nil
}

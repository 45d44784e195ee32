package warehouse

import (
	"errors"
	"fmt"

	"salesetl/internal/storage"
)

// SchemaError is a failed DDL statement during provisioning or view
// rebuilds. It is fatal to the run.
type SchemaError struct {
	Statement string
	Err       error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %v (statement: %s)", e.Err, firstLine(e.Statement))
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ReferentialError is a load rejected because a row references a key that
// is absent from a dimension table.
type ReferentialError struct {
	Table string
	Err   error
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("referential integrity: table=%s: %v", e.Table, e.Err)
}

func (e *ReferentialError) Unwrap() error { return e.Err }

// ConnectivityError is a lost or refused connection to the warehouse.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("connectivity: op=%s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// LoadError is any other failed bulk load, including constraint violations.
type LoadError struct {
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load: table=%s: %v", e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// loadError maps a backend error from a bulk load onto the taxonomy above.
func loadError(table string, err error) error {
	switch {
	case errors.Is(err, storage.ErrForeignKey):
		return &ReferentialError{Table: table, Err: err}
	case errors.Is(err, storage.ErrConnection):
		return &ConnectivityError{Op: "load " + table, Err: err}
	default:
		return &LoadError{Table: table, Err: err}
	}
}

// readError tags connection failures on read paths and wraps the rest.
func readError(op string, err error) error {
	if errors.Is(err, storage.ErrConnection) {
		return &ConnectivityError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i] + " ..."
		}
	}
	return s
}

// Package parser turns a raw entity file into records keyed by the file's
// own header names. Header cleanup beyond trimming is left to the
// transformer.
package parser

import (
	"io"

	"salesetl/pkg/records"
)

// Parser reads every data row of r. It returns the parsed records and the
// number of rows it had to skip as malformed.
type Parser interface {
	Parse(r io.Reader) ([]records.Record, int, error)
}

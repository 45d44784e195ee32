// Package csv parses delimited entity files.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"salesetl/pkg/records"
)

// Options configures the CSV parser. Zero values are usable.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims surrounding whitespace from each value.
	TrimSpace bool

	// Strict disables LazyQuotes.
	Strict bool
}

// Parser parses CSV input with a header row. It is safe to reuse across
// inputs but is not concurrency-safe.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

const utf8BOM = "\ufeff"

// skipLogLimit caps the per-file "skipping row" log lines.
const skipLogLimit = 50

// Parse reads the header row and then every data row of r.
//
// Rows shorter than the header are padded with nil; rows with more fields
// than the header, and rows encoding/csv rejects, are skipped and counted.
// Empty cells become nil.
func (p *Parser) Parse(r io.Reader) ([]records.Record, int, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = !p.opt.Strict

	h, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("read csv header: empty input")
		}
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}
	headers := cleanHeaders(h)

	var (
		out     []records.Record
		skipped int
	)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if skipped < skipLogLimit {
				log.Printf("csv: skipping line %d: %v", line, err)
			}
			skipped++
			continue
		}
		if len(row) > len(headers) {
			if skipped < skipLogLimit {
				log.Printf("csv: skipping line %d: %d fields, header has %d", line, len(row), len(headers))
			}
			skipped++
			continue
		}
		if blankRow(row) {
			continue
		}

		rec := make(records.Record, len(headers))
		for i, key := range headers {
			if i >= len(row) {
				rec[key] = nil
				continue
			}
			val := row[i]
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[key] = emptyToNil(val)
		}
		out = append(out, rec)
	}
	if skipped > 0 {
		log.Printf("csv: rows=%d skipped=%d", len(out), skipped)
	}
	return out, skipped, nil
}

// cleanHeaders trims header cells, strips a UTF-8 BOM from the first one and
// names empty headers col_N.
func cleanHeaders(h []string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := col
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		c = strings.TrimSpace(c)
		if c == "" {
			c = fmt.Sprintf("col_%d", i)
		}
		res[i] = c
	}
	return res
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

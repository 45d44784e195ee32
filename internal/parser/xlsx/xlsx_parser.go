// Package xlsx parses entity sheets out of Excel workbooks.
package xlsx

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"

	"salesetl/pkg/records"
)

// Options selects the sheet and header row to read.
type Options struct {
	// Sheet names the worksheet. When empty the first sheet is used.
	Sheet string

	// HeaderRow is the 1-based row holding column names. Defaults to 1.
	HeaderRow int
}

// Parser reads one worksheet of a workbook.
type Parser struct{ opt Options }

func NewParser(opt Options) *Parser {
	if opt.HeaderRow <= 0 {
		opt.HeaderRow = 1
	}
	return &Parser{opt: opt}
}

// Parse opens the workbook in r and returns the rows below the header row.
// Rows with more cells than the header are skipped and counted.
func (p *Parser) Parse(r io.Reader) ([]records.Record, int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := p.opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, 0, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, 0, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) < p.opt.HeaderRow {
		return nil, 0, fmt.Errorf("sheet %q: no header at row %d", sheet, p.opt.HeaderRow)
	}

	headers := make([]string, len(rows[p.opt.HeaderRow-1]))
	for i, h := range rows[p.opt.HeaderRow-1] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("col_%d", i)
		}
		headers[i] = h
	}

	var (
		out     []records.Record
		skipped int
	)
	for i, row := range rows[p.opt.HeaderRow:] {
		if len(row) > len(headers) {
			log.Printf("xlsx: %s: skipping row %d: %d cells, header has %d", sheet, p.opt.HeaderRow+i+1, len(row), len(headers))
			skipped++
			continue
		}
		if isBlank(row) {
			continue
		}
		rec := make(records.Record, len(headers))
		for j, key := range headers {
			if j >= len(row) || row[j] == "" {
				rec[key] = nil
				continue
			}
			rec[key] = row[j]
		}
		out = append(out, rec)
	}
	return out, skipped, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

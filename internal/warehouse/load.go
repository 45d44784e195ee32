package warehouse

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"salesetl/internal/metrics"
	"salesetl/internal/schema"
	"salesetl/internal/storage"
	"salesetl/internal/transformer"
	"salesetl/pkg/records"
)

// Load appends rows to the table of entity e and returns the number of rows
// written. Rows are projected onto the table's column order; missing keys
// load as NULL. Nothing already in the table is touched.
func (w *Warehouse) Load(ctx context.Context, e schema.Entity, rows []records.Record) (int64, error) {
	table, ok := w.star.TableFor(e)
	if !ok {
		return 0, fmt.Errorf("load: unknown entity %q", e)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	cols := table.ColumnNames()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan []any, w.batchSize)
	go func() {
		defer close(in)
		for _, r := range rows {
			vals := make([]any, len(cols))
			for i, c := range cols {
				vals[i] = r[c]
			}
			select {
			case in <- vals:
			case <-ctx.Done():
				return
			}
		}
	}()

	copyFn := func(ctx context.Context, columns []string, batch [][]any) (int64, error) {
		return w.repo.CopyFrom(ctx, table.Name, columns, batch)
	}
	n, batches, err := storage.LoadBatches(ctx, table.Name, cols, in, w.batchSize, copyFn)
	metrics.RecordBatches(w.job, batches)
	metrics.RecordRow(w.job, "inserted", n)
	if err != nil {
		return n, loadError(table.Name, err)
	}
	return n, nil
}

// Extractor supplies the raw records of one entity.
type Extractor interface {
	Extract(ctx context.Context, e schema.Entity) ([]records.Record, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, e schema.Entity) ([]records.Record, error)

func (f ExtractorFunc) Extract(ctx context.Context, e schema.Entity) ([]records.Record, error) {
	return f(ctx, e)
}

// EntityReport is the outcome of transforming and loading one entity.
type EntityReport struct {
	Table  string
	Result transformer.Result
	Loaded int64
}

// Summary collects the EntityReports of one TransformAndLoad call in load
// order.
type Summary struct {
	Entities []EntityReport
}

// Report returns the report for entity e.
func (s Summary) Report(e schema.Entity) (EntityReport, bool) {
	for _, r := range s.Entities {
		if r.Result.Entity == e {
			return r, true
		}
	}
	return EntityReport{}, false
}

// TransformAndLoad extracts, transforms and loads every entity in
// schema.LoadOrder, so dimensions are loaded before the fact table. The
// first fatal error stops the run; reports of entities already loaded are
// still returned.
func (w *Warehouse) TransformAndLoad(ctx context.Context, ex Extractor) (sum Summary, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(w.job, "transform_and_load", err, time.Since(start)) }()

	for _, e := range schema.LoadOrder {
		rep, err := w.transformAndLoadOne(ctx, ex, e)
		if err != nil {
			return sum, err
		}
		sum.Entities = append(sum.Entities, rep)
	}
	return sum, nil
}

func (w *Warehouse) transformAndLoadOne(ctx context.Context, ex Extractor, e schema.Entity) (EntityReport, error) {
	raw, err := ex.Extract(ctx, e)
	if err != nil {
		return EntityReport{}, fmt.Errorf("extract %s: %w", e, err)
	}
	res, err := transformer.Transform(raw, e, w.transform...)
	if err != nil {
		return EntityReport{}, err
	}
	metrics.RecordRow(w.job, string(e)+"_kept", int64(res.Kept))
	metrics.RecordRow(w.job, string(e)+"_dropped", int64(res.Dropped))
	log.Printf("transform: entity=%s read=%d kept=%d dropped=%d reasons=%s",
		e, res.Read, res.Kept, res.Dropped, FormatReasons(res.Reasons))

	table, _ := w.star.TableFor(e)
	n, err := w.Load(ctx, e, res.Rows)
	if err != nil {
		return EntityReport{Table: table.Name, Result: res, Loaded: n}, err
	}
	log.Printf("Loaded %s (%d rows)", table.Name, n)
	return EntityReport{Table: table.Name, Result: res, Loaded: n}, nil
}

// FormatReasons renders drop counts as "reason:n" pairs sorted by reason,
// or "none".
func FormatReasons(m map[transformer.Reason]int) string {
	if len(m) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s:%d", k, m[transformer.Reason(k)])
	}
	return strings.Join(parts, ",")
}

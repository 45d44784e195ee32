// Package warehouse provisions the sales star schema, loads cleaned entity
// rows into it and rebuilds the summary views.
//
// A Warehouse does not own its connection. The caller opens a
// storage.Repository once per run, passes it to New and closes it when the
// run is over.
package warehouse

import (
	"context"
	"fmt"
	"log"
	"time"

	"salesetl/internal/ddl"
	"salesetl/internal/metrics"
	"salesetl/internal/schema"
	"salesetl/internal/storage"
	"salesetl/internal/transformer"
)

// DefaultBatchSize is the number of rows sent per CopyFrom call.
const DefaultBatchSize = 5000

// Warehouse runs the schema, load and view steps against one repository.
type Warehouse struct {
	repo      storage.Repository
	star      schema.Star
	job       string
	batchSize int
	transform []transformer.Option
}

// Option configures a Warehouse.
type Option func(*Warehouse)

// WithBatchSize overrides DefaultBatchSize. Non-positive values are ignored.
func WithBatchSize(n int) Option {
	return func(w *Warehouse) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithJob sets the job label used for metrics.
func WithJob(job string) Option {
	return func(w *Warehouse) {
		if job != "" {
			w.job = job
		}
	}
}

// WithTransformOptions passes options to every transformer.Transform call
// made by TransformAndLoad.
func WithTransformOptions(opts ...transformer.Option) Option {
	return func(w *Warehouse) { w.transform = append(w.transform, opts...) }
}

// New returns a Warehouse bound to repo.
func New(repo storage.Repository, opts ...Option) *Warehouse {
	w := &Warehouse{
		repo:      repo,
		star:      schema.Warehouse(),
		job:       "salesetl",
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ProvisionStatements returns the DDL that resets the warehouse for dialect
// d: summaries and tables are dropped, then tables and indexes are created.
func ProvisionStatements(d storage.Dialect, star schema.Star) ([]string, error) {
	var stmts []string
	for i := len(star.Views) - 1; i >= 0; i-- {
		stmts = append(stmts, d.DropSummary(star.Views[i].Name))
	}
	for _, t := range star.DropOrder() {
		stmts = append(stmts, d.DropTable(t.Name))
	}
	for _, t := range star.Tables {
		sql, err := ddl.BuildCreateTableSQL(ddl.FromTable(t, d.ColumnType))
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		stmts = append(stmts, sql)
	}
	for _, ix := range star.Indexes {
		sql, err := ddl.BuildCreateIndexSQL(ddl.FromIndex(ix))
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", ix.Name, err)
		}
		stmts = append(stmts, sql)
	}
	return stmts, nil
}

// ProvisionSchema drops and recreates every warehouse table and index. All
// existing data is lost. Calling it twice leaves the same empty schema.
func (w *Warehouse) ProvisionSchema(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(w.job, "provision_schema", err, time.Since(start)) }()

	stmts, err := ProvisionStatements(w.repo.Dialect(), w.star)
	if err != nil {
		return &SchemaError{Err: err}
	}
	if err := w.execAll(ctx, stmts); err != nil {
		return err
	}
	log.Printf("warehouse: schema provisioned dialect=%s tables=%d indexes=%d",
		w.repo.Dialect().Name(), len(w.star.Tables), len(w.star.Indexes))
	return nil
}

func (w *Warehouse) execAll(ctx context.Context, stmts []string) error {
	for _, s := range stmts {
		if err := w.repo.Exec(ctx, s); err != nil {
			return &SchemaError{Statement: s, Err: err}
		}
	}
	return nil
}

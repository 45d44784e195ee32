// Package storage contains storage-agnostic contracts and utilities: the
// Repository handle shared by every pipeline stage, the backend factory,
// SQL dialects and the batched loader.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Repository is an open connection (pool or session) to the warehouse
// database. A single Repository is opened per run, passed to each stage and
// closed by the caller.
type Repository interface {
	// Kind is the registered backend name, e.g. "postgres".
	Kind() string
	Dialect() Dialect

	// Exec runs one statement that returns no rows (DDL, maintenance).
	Exec(ctx context.Context, sql string) error

	// CopyFrom bulk-inserts rows aligned to columns into table and returns
	// the number of rows written. Rows are appended; nothing is upserted.
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// Query runs a read-only statement and returns every row as driver values.
	Query(ctx context.Context, sql string) ([][]any, error)

	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string
	// MaxConns caps the pool size; zero keeps the backend default.
	MaxConns int
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind. Backends call it
// from init.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered backend kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

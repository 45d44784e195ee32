package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"salesetl/internal/storage"
)

func newMemRepo(tb testing.TB) *Repository {
	tb.Helper()
	r, closeFn, err := NewRepository(context.Background(), Config{DSN: ":memory:"})
	if err != nil {
		tb.Fatalf("open sqlite :memory:: %v", err)
	}
	tb.Cleanup(closeFn)
	return r
}

func mustExec(tb testing.TB, r *Repository, stmt string) {
	tb.Helper()
	if err := r.Exec(context.Background(), stmt); err != nil {
		tb.Fatalf("exec %q: %v", stmt, err)
	}
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	if _, _, err := NewRepository(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

// TestCopyFrom_TypedValues verifies decimals and dates survive a write and a
// read through Query.
func TestCopyFrom_TypedValues(t *testing.T) {
	r := newMemRepo(t)
	ctx := context.Background()
	mustExec(t, r, `CREATE TABLE s (id TEXT PRIMARY KEY, amount NUMERIC, day DATE, qty INTEGER)`)

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	n, err := r.CopyFrom(ctx, "s", []string{"id", "amount", "day", "qty"}, [][]any{
		{"a", decimal.RequireFromString("100"), day, int64(3)},
		{"b", decimal.RequireFromString("0.25"), day, int64(1)},
		{"c", nil, nil, nil},
	})
	if err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if n != 3 {
		t.Fatalf("CopyFrom = %d, want 3", n)
	}

	rows, err := r.Query(ctx, `SELECT id, amount, day, qty FROM s ORDER BY id`)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][1] != int64(100) {
		t.Fatalf("amount a = %#v, want int64(100)", rows[0][1])
	}
	if rows[1][1] != 0.25 {
		t.Fatalf("amount b = %#v, want 0.25", rows[1][1])
	}
	// The driver parses DATE-declared text columns back into time.Time.
	if got, ok := rows[0][2].(time.Time); !ok || !got.Equal(day) {
		t.Fatalf("day = %#v, want %s", rows[0][2], day)
	}
	if rows[2][1] != nil || rows[2][2] != nil {
		t.Fatalf("nil values should stay NULL: %#v", rows[2])
	}
}

func TestCopyFrom_ForeignKeyViolationIsClassified(t *testing.T) {
	r := newMemRepo(t)
	ctx := context.Background()
	mustExec(t, r, `CREATE TABLE p (id TEXT PRIMARY KEY)`)
	mustExec(t, r, `CREATE TABLE f (id TEXT PRIMARY KEY, pid TEXT NOT NULL, FOREIGN KEY (pid) REFERENCES p(id))`)

	_, err := r.CopyFrom(ctx, "f", []string{"id", "pid"}, [][]any{{"o1", "missing"}})
	if !errors.Is(err, storage.ErrForeignKey) {
		t.Fatalf("want storage.ErrForeignKey, got %v", err)
	}

	rows, err := r.Query(ctx, `SELECT COUNT(*) FROM f`)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if rows[0][0] != int64(0) {
		t.Fatalf("failed batch must roll back, count=%v", rows[0][0])
	}
}

func TestCopyFrom_DuplicateKeyIsConstraint(t *testing.T) {
	r := newMemRepo(t)
	mustExec(t, r, `CREATE TABLE c (id TEXT PRIMARY KEY)`)

	_, err := r.CopyFrom(context.Background(), "c", []string{"id"}, [][]any{{"C1"}, {"C1"}})
	if !errors.Is(err, storage.ErrConstraint) {
		t.Fatalf("want storage.ErrConstraint, got %v", err)
	}
	if errors.Is(err, storage.ErrForeignKey) {
		t.Fatalf("primary key violation misclassified as foreign key")
	}
}

func TestCopyFrom_RowLengthMismatch(t *testing.T) {
	r := newMemRepo(t)
	mustExec(t, r, `CREATE TABLE c (id TEXT, name TEXT)`)
	if _, err := r.CopyFrom(context.Background(), "c", []string{"id", "name"}, [][]any{{"only-one"}}); err == nil {
		t.Fatalf("expected row length error")
	}
}

func TestExec_Empty(t *testing.T) {
	r := newMemRepo(t)
	if err := r.Exec(context.Background(), "   "); err != nil {
		t.Fatalf("blank statement should be a no-op, got %v", err)
	}
}

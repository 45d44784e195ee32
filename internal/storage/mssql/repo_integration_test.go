//go:build integration

package mssql

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"salesetl/internal/storage"
)

// getTestDSN reads the MSSQL_TEST_DSN environment variable.
func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MSSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MSSQL_TEST_DSN not set; skipping MSSQL integration tests")
	}
	return dsn
}

// TestCopyFromAndForeignKeysIntegration creates a parent/child pair, bulk
// loads valid rows and checks that an orphan row is rejected.
func TestCopyFromAndForeignKeysIntegration(t *testing.T) {
	dsn := getTestDSN(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	repo, closeFn, err := NewRepository(ctx, Config{DSN: dsn})
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	defer closeFn()

	for _, stmt := range []string{
		"DROP TABLE IF EXISTS it_child;",
		"DROP TABLE IF EXISTS it_parent;",
		"CREATE TABLE it_parent (id NVARCHAR(255) NOT NULL PRIMARY KEY);",
		"CREATE TABLE it_child (id NVARCHAR(255) NOT NULL PRIMARY KEY, pid NVARCHAR(255) NOT NULL REFERENCES it_parent(id), amount DECIMAL(19,4));",
	} {
		if err := repo.Exec(ctx, stmt); err != nil {
			t.Fatalf("Exec(%q) error = %v", stmt, err)
		}
	}

	if _, err := repo.CopyFrom(ctx, "it_parent", []string{"id"}, [][]any{{"P1"}}); err != nil {
		t.Fatalf("CopyFrom(parent) error = %v", err)
	}
	n, err := repo.CopyFrom(ctx, "it_child", []string{"id", "pid", "amount"}, [][]any{
		{"O1", "P1", decimal.RequireFromString("12.50")},
	})
	if err != nil || n != 1 {
		t.Fatalf("CopyFrom(child) = %d, %v", n, err)
	}

	_, err = repo.CopyFrom(ctx, "it_child", []string{"id", "pid", "amount"}, [][]any{
		{"O2", "missing", decimal.RequireFromString("1")},
	})
	if !errors.Is(err, storage.ErrForeignKey) {
		t.Fatalf("orphan row: want storage.ErrForeignKey, got %v", err)
	}
}

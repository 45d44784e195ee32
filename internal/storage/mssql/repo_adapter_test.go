package mssql

import (
	"context"
	"errors"
	"fmt"
	"testing"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/shopspring/decimal"

	"salesetl/internal/storage"
)

// TestMSSQLStorageRegistrationUsesNewRepositoryHook verifies that the "mssql"
// backend registered in init() uses the newRepository hook and that
// wrappedRepo propagates configuration and close behavior.
func TestMSSQLStorageRegistrationUsesNewRepositoryHook(t *testing.T) {
	ctx := context.Background()

	origNewRepository := newRepository
	defer func() { newRepository = origNewRepository }()

	var (
		gotCfg   Config
		closed   bool
		fakeRepo = &Repository{}
	)
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return fakeRepo, func() { closed = true }, nil
	}

	repo, err := storage.New(ctx, storage.Config{Kind: "mssql", DSN: "sqlserver://example", MaxConns: 2})
	if err != nil {
		t.Fatalf("storage.New() error = %v, want nil", err)
	}
	if gotCfg.DSN != "sqlserver://example" || gotCfg.MaxConns != 2 {
		t.Errorf("hook cfg = %#v", gotCfg)
	}
	w, ok := repo.(*wrappedRepo)
	if !ok || w.Repository != fakeRepo {
		t.Fatalf("storage.New() = %T, want *wrappedRepo around the fake", repo)
	}
	if repo.Dialect().Name() != "mssql" {
		t.Fatalf("dialect = %q", repo.Dialect().Name())
	}
	repo.Close()
	if !closed {
		t.Fatalf("wrappedRepo.Close() did not invoke closeFn")
	}
}

func TestNewRepository_BadDSN(t *testing.T) {
	if _, _, err := NewRepository(context.Background(), Config{DSN: "sqlserver://%zz"}); err == nil {
		t.Fatalf("expected DSN parse error")
	}
}

func TestClassify(t *testing.T) {
	fk := fmt.Errorf("bulk finalize: %w", mssql.Error{Number: 547, Message: "The INSERT statement conflicted with the FOREIGN KEY constraint"})
	if got := classify(fk); !errors.Is(got, storage.ErrForeignKey) {
		t.Fatalf("547 should be a foreign key violation: %v", got)
	}
	pk := mssql.Error{Number: 2627, Message: "Violation of PRIMARY KEY constraint"}
	if got := classify(pk); !errors.Is(got, storage.ErrConstraint) {
		t.Fatalf("2627 should be a constraint violation: %v", got)
	}
	other := mssql.Error{Number: 208, Message: "Invalid object name"}
	if got := classify(other); errors.Is(got, storage.ErrConstraint) || errors.Is(got, storage.ErrForeignKey) {
		t.Fatalf("208 misclassified: %v", got)
	}
}

func TestToCopyVal(t *testing.T) {
	if got := toCopyVal(decimal.RequireFromString("19.99")); got != "19.99" {
		t.Fatalf("decimal = %#v, want \"19.99\"", got)
	}
	if got := toCopyVal(int64(3)); got != int64(3) {
		t.Fatalf("int64 = %#v", got)
	}
}

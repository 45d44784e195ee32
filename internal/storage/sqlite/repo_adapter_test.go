package sqlite

import (
	"context"
	"testing"

	"salesetl/internal/storage"
)

// TestSQLiteStorageRegistrationUsesNewRepositoryHook verifies that the
// "sqlite" backend registered in init() uses the newRepository hook and that
// wrappedRepo delegates Close.
func TestSQLiteStorageRegistrationUsesNewRepositoryHook(t *testing.T) {
	ctx := context.Background()

	origNewRepository := newRepository
	defer func() { newRepository = origNewRepository }()

	var (
		called   bool
		gotCfg   Config
		closed   bool
		fakeRepo = &Repository{}
	)
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		called = true
		gotCfg = cfg
		return fakeRepo, func() { closed = true }, nil
	}

	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: "file:test.db?mode=memory"})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	if !called || gotCfg.DSN != "file:test.db?mode=memory" {
		t.Fatalf("hook called=%v cfg=%#v", called, gotCfg)
	}
	w, ok := repo.(*wrappedRepo)
	if !ok {
		t.Fatalf("storage.New() type = %T, want *wrappedRepo", repo)
	}
	if w.Repository != fakeRepo {
		t.Fatalf("wrappedRepo.Repository = %p, want %p", w.Repository, fakeRepo)
	}
	if repo.Kind() != "sqlite" || repo.Dialect().Name() != "sqlite" {
		t.Fatalf("kind=%q dialect=%q", repo.Kind(), repo.Dialect().Name())
	}

	repo.Close()
	if !closed {
		t.Fatalf("wrappedRepo.Close() did not invoke closeFn")
	}
}

func TestWithForeignKeys(t *testing.T) {
	cases := map[string]string{
		":memory:":                     ":memory:?_pragma=foreign_keys(1)",
		"file:w.db?cache=shared":       "file:w.db?cache=shared&_pragma=foreign_keys(1)",
		"w.db?_pragma=foreign_keys(0)": "w.db?_pragma=foreign_keys(0)",
	}
	for in, want := range cases {
		if got := withForeignKeys(in); got != want {
			t.Fatalf("withForeignKeys(%q) = %q, want %q", in, got, want)
		}
	}
}

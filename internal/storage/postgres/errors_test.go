package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"salesetl/internal/storage"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"foreign key", &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}, storage.ErrForeignKey},
		{"unique", &pgconn.PgError{Code: "23505"}, storage.ErrConstraint},
		{"not null", fmt.Errorf("copy: %w", &pgconn.PgError{Code: "23502"}), storage.ErrConstraint},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, storage.ErrConnection},
		{"connection exception", &pgconn.PgError{Code: "08006"}, storage.ErrConnection},
	}
	for _, tt := range tests {
		got := classify(tt.err)
		if !errors.Is(got, tt.want) {
			t.Fatalf("%s: classify(%v) does not match %v", tt.name, tt.err, tt.want)
		}
		var pgErr *pgconn.PgError
		if !errors.As(got, &pgErr) {
			t.Fatalf("%s: driver error lost", tt.name)
		}
	}

	syntax := &pgconn.PgError{Code: "42601"}
	if got := classify(syntax); got != error(syntax) {
		t.Fatalf("unclassified error should pass through, got %v", got)
	}
	if classify(nil) != nil {
		t.Fatalf("classify(nil) != nil")
	}
}

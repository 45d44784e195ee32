package warehouse

import (
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func TestMonthOf(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "2024-02"},
		{"2024-01-01", "2024-01"},
		{[]byte("2023-12-01T00:00:00Z"), "2023-12"},
	}
	for _, tt := range tests {
		got, err := monthOf(tt.in)
		if err != nil {
			t.Fatalf("monthOf(%v): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("monthOf(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := monthOf("24-1"); err == nil {
		t.Fatalf("expected error for short month")
	}
	if _, err := monthOf(42); err == nil {
		t.Fatalf("expected error for int month")
	}
}

func TestDecimalOf(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{pgtype.Numeric{Int: big.NewInt(15050), Exp: -2, Valid: true}, "150.5"},
		{int64(150), "150"},
		{float64(0.25), "0.25"},
		{[]byte("1200.5000"), "1200.5"},
		{"30", "30"},
		{nil, "0"},
	}
	for _, tt := range tests {
		got, err := decimalOf(tt.in)
		if err != nil {
			t.Fatalf("decimalOf(%v): %v", tt.in, err)
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Fatalf("decimalOf(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestIntOf(t *testing.T) {
	for _, in := range []any{int64(7), int32(7), 7, "7", []byte("7")} {
		got, err := intOf(in)
		if err != nil || got != 7 {
			t.Fatalf("intOf(%#v) = %d, %v", in, got, err)
		}
	}
	if _, err := intOf(7.5); err == nil {
		t.Fatalf("expected error for float")
	}
}

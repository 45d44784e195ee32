package storage

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// TestLoadBatches_Basic verifies rows are grouped into batches and the total
// equals the sum of all successful copyFn returns.
func TestLoadBatches_Basic(t *testing.T) {
	t.Parallel()

	in := make(chan []any, 8)
	for i := 0; i < 7; i++ {
		in <- []any{i, "x"}
	}
	close(in)

	var calls int32
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		atomic.AddInt32(&calls, 1)
		return int64(len(rows)), nil
	}

	total, batches, err := LoadBatches(context.Background(), "customer_dim", []string{"c1", "c2"}, in, 3, copyFn)
	if err != nil {
		t.Fatalf("LoadBatches error: %v", err)
	}
	if total != 7 {
		t.Fatalf("total rows %d, want 7", total)
	}
	if batches != 3 || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("batches=%d calls=%d, want 3 (3+3+1)", batches, calls)
	}
}

func TestLoadBatches_Empty(t *testing.T) {
	t.Parallel()

	in := make(chan []any)
	close(in)
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		t.Fatalf("copyFn must not be called for empty input")
		return 0, nil
	}
	total, batches, err := LoadBatches(context.Background(), "t", []string{"c"}, in, 10, copyFn)
	if err != nil || total != 0 || batches != 0 {
		t.Fatalf("got total=%d batches=%d err=%v", total, batches, err)
	}
}

// TestLoadBatches_ErrorPropagation ensures the first copy error is returned
// and loading stops after that batch.
func TestLoadBatches_ErrorPropagation(t *testing.T) {
	t.Parallel()

	in := make(chan []any, 5)
	for i := 0; i < 5; i++ {
		in <- []any{i}
	}
	close(in)

	wantErr := errors.New("copy failed")
	var calls int
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		calls++
		if calls == 2 {
			return 0, wantErr
		}
		return int64(len(rows)), nil
	}

	total, batches, err := LoadBatches(context.Background(), "sales_fact", []string{"c"}, in, 2, copyFn)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want error %v, got %v", wantErr, err)
	}
	if total != 2 || batches != 1 || calls != 2 {
		t.Fatalf("total=%d batches=%d calls=%d, want 2/1/2", total, batches, calls)
	}
}

func TestLoadBatches_InvalidArgs(t *testing.T) {
	t.Parallel()

	in := make(chan []any)
	if _, _, err := LoadBatches(context.Background(), "t", nil, in, 0, nil); err == nil {
		t.Fatalf("expected error for batchSize=0")
	}
	if _, _, err := LoadBatches(context.Background(), "t", nil, in, 1, nil); err == nil {
		t.Fatalf("expected error for nil copyFn")
	}
}

// TestLoadBatches_ContextCancel checks the loader exits on cancellation.
func TestLoadBatches_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan []any)
	copyFn := func(ctx context.Context, _ []string, rows [][]any) (int64, error) {
		return int64(len(rows)), nil
	}

	errCh := make(chan error, 1)
	go func() {
		_, _, err := LoadBatches(ctx, "t", []string{"c"}, in, 2, copyFn)
		errCh <- err
	}()
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("LoadBatches did not return after context cancel")
	}
}

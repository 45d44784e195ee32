// Package runner drives the warehouse steps in their fixed order with
// bounded whole-run retries. Overlapping triggers share one run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"salesetl/internal/metrics"
	"salesetl/internal/warehouse"
)

// Steps is the part of *warehouse.Warehouse a run needs.
type Steps interface {
	ProvisionSchema(ctx context.Context) error
	TransformAndLoad(ctx context.Context, ex warehouse.Extractor) (warehouse.Summary, error)
	BuildViews(ctx context.Context) error
}

// ExtractorFactory returns a fresh extractor for each attempt.
type ExtractorFactory func(ctx context.Context) (warehouse.Extractor, error)

// State of the most recent run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// EntityStatus is the per-entity outcome of a run.
type EntityStatus struct {
	Entity  string         `json:"entity"`
	Table   string         `json:"table"`
	Read    int            `json:"read"`
	Kept    int            `json:"kept"`
	Dropped int            `json:"dropped"`
	Loaded  int64          `json:"loaded"`
	Reasons map[string]int `json:"reasons,omitempty"`
}

// Status describes one run.
type Status struct {
	RunID    string         `json:"run_id,omitempty"`
	State    State          `json:"state"`
	Started  time.Time      `json:"started,omitzero"`
	Finished time.Time      `json:"finished,omitzero"`
	Attempts int            `json:"attempts"`
	Error    string         `json:"error,omitempty"`
	Entities []EntityStatus `json:"entities,omitempty"`
}

// Config tunes a Runner.
type Config struct {
	Job string
	// Retries is the number of extra attempts after a failed one.
	Retries    int
	RetryDelay time.Duration
}

// Runner executes pipeline runs. It is safe for concurrent use.
type Runner struct {
	steps   Steps
	extract ExtractorFactory
	cfg     Config

	group singleflight.Group

	mu   sync.Mutex
	last Status

	// wait is swapped in tests to avoid real sleeps.
	wait func(ctx context.Context, d time.Duration) error
	now  func() time.Time
}

func New(steps Steps, extract ExtractorFactory, cfg Config) *Runner {
	if cfg.Job == "" {
		cfg.Job = "salesetl"
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Runner{
		steps:   steps,
		extract: extract,
		cfg:     cfg,
		last:    Status{State: StateIdle},
		wait:    waitContext,
		now:     time.Now,
	}
}

// Last returns the status of the current or most recent run.
func (r *Runner) Last() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Run executes provisioning, transform and load, then view building. If a
// run is already in flight the caller waits for it and gets its result.
func (r *Runner) Run(ctx context.Context) (Status, error) {
	v, err, shared := r.group.Do("run", func() (any, error) {
		st, err := r.run(ctx)
		return st, err
	})
	if shared {
		log.Printf("runner: joined in-flight run %s", v.(Status).RunID)
	}
	return v.(Status), err
}

func (r *Runner) run(ctx context.Context) (Status, error) {
	st := Status{
		RunID:   uuid.NewString(),
		State:   StateRunning,
		Started: r.now(),
	}
	r.setLast(st)
	log.Printf("runner: run_id=%s job=%s start", st.RunID, r.cfg.Job)

	var err error
	attempts := r.cfg.Retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		st.Attempts = attempt
		r.setLast(st)

		var sum warehouse.Summary
		sum, err = r.attempt(ctx)
		st.Entities = entityStatuses(sum)
		if err == nil {
			break
		}
		log.Printf("runner: run_id=%s attempt=%d/%d failed: %v", st.RunID, attempt, attempts, err)
		if attempt == attempts || !IsRetryable(err) || ctx.Err() != nil {
			break
		}
		log.Printf("runner: run_id=%s retrying in %s", st.RunID, r.cfg.RetryDelay)
		if werr := r.wait(ctx, r.cfg.RetryDelay); werr != nil {
			err = fmt.Errorf("%w (retry aborted: %v)", err, werr)
			break
		}
	}

	st.Finished = r.now()
	if err != nil {
		st.State = StateFailed
		st.Error = err.Error()
	} else {
		st.State = StateSucceeded
	}
	r.setLast(st)

	elapsed := st.Finished.Sub(st.Started)
	metrics.RecordRun(r.cfg.Job, err, elapsed, st.Finished)
	if ferr := metrics.Flush(); ferr != nil {
		log.Printf("runner: metrics flush: %v", ferr)
	}
	log.Printf("runner: run_id=%s state=%s attempts=%d elapsed=%s",
		st.RunID, st.State, st.Attempts, elapsed.Round(time.Millisecond))
	return st, err
}

func (r *Runner) attempt(ctx context.Context) (warehouse.Summary, error) {
	if err := r.steps.ProvisionSchema(ctx); err != nil {
		return warehouse.Summary{}, err
	}
	ex, err := r.extract(ctx)
	if err != nil {
		return warehouse.Summary{}, fmt.Errorf("prepare inputs: %w", err)
	}
	sum, err := r.steps.TransformAndLoad(ctx, ex)
	if err != nil {
		return sum, err
	}
	return sum, r.steps.BuildViews(ctx)
}

func (r *Runner) setLast(st Status) {
	r.mu.Lock()
	r.last = st
	r.mu.Unlock()
}

func entityStatuses(sum warehouse.Summary) []EntityStatus {
	out := make([]EntityStatus, 0, len(sum.Entities))
	for _, rep := range sum.Entities {
		reasons := make(map[string]int, len(rep.Result.Reasons))
		for k, n := range rep.Result.Reasons {
			reasons[string(k)] = n
		}
		out = append(out, EntityStatus{
			Entity:  string(rep.Result.Entity),
			Table:   rep.Table,
			Read:    rep.Result.Read,
			Kept:    rep.Result.Kept,
			Dropped: rep.Result.Dropped,
			Loaded:  rep.Loaded,
			Reasons: reasons,
		})
	}
	return out
}

func waitContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsRetryable reports whether err is worth another attempt. Context
// cancellation is not.
func IsRetryable(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

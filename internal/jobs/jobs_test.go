package jobs_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/garnizeh/interventions/internal/jobs"
)

var quiet = slog.New(slog.NewJSONHandler(io.Discard, nil))

func TestBackoffDuration(t *testing.T) {
	cases := map[int]time.Duration{
		0:   time.Second,
		1:   2 * time.Second,
		3:   8 * time.Second,
		9:   5 * time.Minute,
		100: 5 * time.Minute,
	}
	for attempt, want := range cases {
		if got := jobs.BackoffDuration(attempt); got != want {
			t.Fatalf("BackoffDuration(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestSchedulerRunsTasksRepeatedly(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	done := make(chan struct{})
	task := jobs.Task{Name: "tick", Interval: 5 * time.Millisecond, Run: func(ctx context.Context) error {
		if runs.Add(1) == 3 {
			close(done)
		}
		return nil
	}}

	s := jobs.NewScheduler(quiet, task)
	s.Start(context.Background())
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("task ran %d times, want 3", runs.Load())
	}
}

func TestSchedulerRetriesFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	done := make(chan struct{})
	task := jobs.Task{Name: "flaky", Interval: time.Hour, Run: func(ctx context.Context) error {
		if runs.Add(1) < 3 {
			return errors.New("database is locked")
		}
		close(done)
		return nil
	}}

	s := jobs.NewScheduler(quiet, task)
	s.SetBackoff(func(int) time.Duration { return time.Millisecond })
	s.Start(context.Background())
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("task ran %d times, expected retries to reach 3", runs.Load())
	}
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	s := jobs.NewScheduler(quiet,
		jobs.Task{Name: "idle", Interval: time.Hour, Run: func(context.Context) error { return nil }},
		jobs.Task{Name: "disabled", Interval: 0, Run: func(context.Context) error { return nil }},
	)
	s.Start(ctx)
	cancel()
	s.Stop()
	// second stop is a no-op
	s.Stop()
}

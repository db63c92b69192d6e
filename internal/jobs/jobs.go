// Package jobs runs periodic maintenance tasks next to the HTTP server.
package jobs

import (
	"context"
	"time"
)

// Task is a named unit of work repeated every Interval.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// BackoffDuration returns exponential backoff duration for attempt n
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	// simple exponential: base 2^attempt seconds, capped
	d := time.Duration(1<<uint(min(attempt, 16))) * time.Second
	maxBackoff := 5 * time.Minute
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// Sweeper removes expired sessions.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// SessionSweep builds the task that purges expired sessions.
func SessionSweep(s Sweeper, interval time.Duration) Task {
	return Task{
		Name:     "session-sweep",
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := s.SweepExpired(ctx)
			return err
		},
	}
}

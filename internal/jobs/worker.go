package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs each task on its own goroutine. A failing task is retried
// with exponential backoff instead of waiting a full interval.
type Scheduler struct {
	tasks   []Task
	logger  *slog.Logger
	backoff func(attempt int) time.Duration
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func NewScheduler(logger *slog.Logger, tasks ...Task) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{tasks: tasks, logger: logger, backoff: BackoffDuration, stop: make(chan struct{})}
}

// SetBackoff replaces the retry delay function. Intended for tests.
func (s *Scheduler) SetBackoff(fn func(attempt int) time.Duration) {
	if fn != nil {
		s.backoff = fn
	}
}

// Start launches one goroutine per task with a positive interval. Each task
// runs once right away.
func (s *Scheduler) Start(ctx context.Context) {
	for _, t := range s.tasks {
		if t.Interval <= 0 || t.Run == nil {
			s.logger.Info("task disabled", "task", t.Name)
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
}

// Stop signals tasks to stop and waits for them
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	defer s.wg.Done()
	failures := 0
	for {
		wait := t.Interval
		if err := t.Run(ctx); err != nil {
			failures++
			wait = min(s.backoff(failures), t.Interval)
			s.logger.Error("task failed", "task", t.Name, "attempt", failures, "retry_in", wait, "err", err)
		} else {
			failures = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-s.stop:
			timer.Stop()
			s.logger.Info("task stopping", "task", t.Name)
			return
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("context canceled, task exiting", "task", t.Name)
			return
		case <-timer.C:
		}
	}
}

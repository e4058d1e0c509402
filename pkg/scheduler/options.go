package scheduler

import (
	"log/slog"
	"time"
)

type Option func(*Scheduler)

// WithCheckInterval sets how often due tasks are looked up. Default 30s.
func WithCheckInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

type taskOptions struct {
	runOnStart bool
}

type TaskOption func(*taskOptions)

// WithRunOnStart makes the task due immediately instead of after its first interval.
func WithRunOnStart() TaskOption {
	return func(o *taskOptions) { o.runOnStart = true }
}

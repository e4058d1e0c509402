package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// TaskFunc is the work run on schedule.
type TaskFunc func(ctx context.Context) error

type task struct {
	name     string
	schedule Schedule
	fn       TaskFunc
	next     time.Time
	running  bool
}

// Scheduler runs registered tasks in-process when they are due.
// A task never overlaps with itself: a run that is still in progress when
// the task comes due again is skipped.
type Scheduler struct {
	mu       sync.Mutex
	tasks    map[string]*task
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		tasks:    make(map[string]*task),
		interval: 30 * time.Second,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddTask registers a periodic task. The first run is due at
// schedule.Next(now) unless WithRunOnStart was given.
func (s *Scheduler) AddTask(name string, schedule Schedule, fn TaskFunc, opts ...TaskOption) error {
	if name == "" || schedule == nil || fn == nil {
		return ErrInvalidTask
	}

	cfg := taskOptions{}
	for _, opt := range opts {
		opt(&cfg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		return ErrTaskAlreadyRegistered
	}
	now := s.now()
	next := schedule.Next(now)
	if cfg.runOnStart {
		next = now
	}
	s.tasks[name] = &task{name: name, schedule: schedule, fn: fn, next: next}

	s.logger.Info("registered periodic task",
		slog.String("task", name),
		slog.String("schedule", schedule.String()),
		slog.Time("next_run", next))
	return nil
}

// Tasks returns registered task names in alphabetical order.
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Start checks for due tasks every check interval until ctx is cancelled.
// It waits for running tasks before returning ctx.Err().
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	empty := len(s.tasks) == 0
	s.mu.Unlock()
	if empty {
		return ErrSchedulerNotConfigured
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runDue(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// RunNow runs the named task synchronously and returns its error.
// It does not move the task's next scheduled run.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	if ok && t.running {
		s.mu.Unlock()
		return ErrTaskRunning
	}
	if ok {
		t.running = true
	}
	s.mu.Unlock()

	if !ok {
		return ErrTaskNotFound
	}
	return s.run(ctx, t)
}

func (s *Scheduler) runDue(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var due []*task
	for _, t := range s.tasks {
		if t.running || t.next.After(now) {
			continue
		}
		t.running = true
		t.next = t.schedule.Next(now)
		due = append(due, t)
	}
	s.mu.Unlock()

	for _, t := range due {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			_ = s.run(ctx, t)
		}()
	}
}

func (s *Scheduler) run(ctx context.Context, t *task) (err error) {
	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}

		s.mu.Lock()
		t.running = false
		s.mu.Unlock()

		attrs := []any{
			slog.String("task", t.name),
			slog.Duration("duration", s.now().Sub(start)),
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "periodic task failed", append(attrs, slog.Any("error", err))...)
			return
		}
		s.logger.DebugContext(ctx, "periodic task completed", attrs...)
	}()

	return t.fn(ctx)
}

package scheduler_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subkit/pkg/scheduler"
)

func TestSchedules(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		schedule scheduler.Schedule
		want     time.Time
		str      string
	}{
		{"interval", scheduler.Every(time.Hour), from.Add(time.Hour), "every 1h0m0s"},
		{"interval fallback", scheduler.Every(0), from.Add(time.Minute), "every 1m0s"},
		{"daily later today", scheduler.DailyAt(18, 0), time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC), "daily at 18:00"},
		{"daily tomorrow", scheduler.DailyAt(3, 15), time.Date(2024, 3, 11, 3, 15, 0, 0, time.UTC), "daily at 03:15"},
		{"daily same instant moves a day", scheduler.DailyAt(12, 30), time.Date(2024, 3, 11, 12, 30, 0, 0, time.UTC), "daily at 12:30"},
		{"hourly this hour", scheduler.HourlyAt(45), time.Date(2024, 3, 10, 12, 45, 0, 0, time.UTC), "hourly at :45"},
		{"hourly next hour", scheduler.HourlyAt(5), time.Date(2024, 3, 10, 13, 5, 0, 0, time.UTC), "hourly at :05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.schedule.Next(from))
			assert.Equal(t, tt.str, tt.schedule.String())
		})
	}
}

func quiet() scheduler.Option {
	return scheduler.WithLogger(slog.New(slog.DiscardHandler))
}

func TestScheduler_AddTask(t *testing.T) {
	t.Parallel()

	s := scheduler.New(quiet())
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.AddTask("b", scheduler.Every(time.Hour), noop))
	require.NoError(t, s.AddTask("a", scheduler.Every(time.Hour), noop))
	assert.ErrorIs(t, s.AddTask("a", scheduler.Every(time.Hour), noop), scheduler.ErrTaskAlreadyRegistered)
	assert.ErrorIs(t, s.AddTask("", scheduler.Every(time.Hour), noop), scheduler.ErrInvalidTask)
	assert.ErrorIs(t, s.AddTask("c", nil, noop), scheduler.ErrInvalidTask)
	assert.ErrorIs(t, s.AddTask("c", scheduler.Every(time.Hour), nil), scheduler.ErrInvalidTask)
	assert.Equal(t, []string{"a", "b"}, s.Tasks())
}

func TestScheduler_RunNow(t *testing.T) {
	t.Parallel()

	s := scheduler.New(quiet())
	boom := errors.New("boom")
	require.NoError(t, s.AddTask("fails", scheduler.Every(time.Hour), func(context.Context) error { return boom }))
	require.NoError(t, s.AddTask("panics", scheduler.Every(time.Hour), func(context.Context) error { panic("bad") }))

	assert.ErrorIs(t, s.RunNow(context.Background(), "fails"), boom)
	assert.ErrorIs(t, s.RunNow(context.Background(), "panics"), scheduler.ErrTaskPanicked)
	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), scheduler.ErrTaskNotFound)
}

func TestScheduler_Start(t *testing.T) {
	t.Parallel()

	t.Run("no tasks", func(t *testing.T) {
		t.Parallel()
		s := scheduler.New(quiet())
		assert.ErrorIs(t, s.Start(context.Background()), scheduler.ErrSchedulerNotConfigured)
	})

	t.Run("runs due tasks until cancelled", func(t *testing.T) {
		t.Parallel()
		s := scheduler.New(quiet(), scheduler.WithCheckInterval(5*time.Millisecond))

		var onStart, later atomic.Int32
		require.NoError(t, s.AddTask("on-start", scheduler.Every(time.Hour), func(context.Context) error {
			onStart.Add(1)
			return nil
		}, scheduler.WithRunOnStart()))
		require.NoError(t, s.AddTask("frequent", scheduler.Every(10*time.Millisecond), func(context.Context) error {
			later.Add(1)
			return nil
		}))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Start(ctx) }()

		require.Eventually(t, func() bool { return later.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(2 * time.Second):
			t.Fatal("scheduler did not stop")
		}
		assert.Equal(t, int32(1), onStart.Load())
	})

	t.Run("task does not overlap itself", func(t *testing.T) {
		t.Parallel()
		s := scheduler.New(quiet(), scheduler.WithCheckInterval(2*time.Millisecond))

		release := make(chan struct{})
		var concurrent, maxConcurrent atomic.Int32
		require.NoError(t, s.AddTask("slow", scheduler.Every(time.Millisecond), func(context.Context) error {
			n := concurrent.Add(1)
			if n > maxConcurrent.Load() {
				maxConcurrent.Store(n)
			}
			<-release
			concurrent.Add(-1)
			return nil
		}, scheduler.WithRunOnStart()))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Start(ctx) }()

		require.Eventually(t, func() bool { return concurrent.Load() == 1 }, time.Second, time.Millisecond)
		assert.ErrorIs(t, s.RunNow(context.Background(), "slow"), scheduler.ErrTaskRunning)
		time.Sleep(20 * time.Millisecond)

		cancel()
		close(release)
		<-done
		assert.Equal(t, int32(1), maxConcurrent.Load())
	})
}

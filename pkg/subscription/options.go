package subscription

import (
	"log/slog"
	"time"
)

// DefaultGracePeriod is how long an expired subscription keeps its group membership.
const DefaultGracePeriod = 2 * 24 * time.Hour

// ManagerOption configures a Manager instance.
type ManagerOption func(*Manager)

// WithGracePeriod sets the grace period after the expiry date.
// Negative values are ignored.
func WithGracePeriod(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d >= 0 {
			m.grace = d
		}
	}
}

// WithConfig applies settings from Config.
func WithConfig(cfg Config) ManagerOption {
	return func(m *Manager) {
		m.grace = cfg.GracePeriod()
	}
}

// WithClock overrides the time source. Useful in tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSignals shares a dispatcher between managers or with application code.
func WithSignals(s *Signals) ManagerOption {
	return func(m *Manager) {
		if s != nil {
			m.signals = s
		}
	}
}

package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event describes a lifecycle transition.
type Event struct {
	Type             EventType
	Plan             *Plan
	UserID           uuid.UUID
	UserSubscription *UserSubscription
	Reason           string // set for EventUnsubscribed
	OccurredAt       time.Time
}

// Receiver handles a lifecycle event.
type Receiver func(ctx context.Context, event Event)

// ChangeCheck decides whether us may switch to target.
// It returns an empty string when the change is possible,
// or a reason to display to the user otherwise.
type ChangeCheck func(ctx context.Context, us *UserSubscription, target *Plan) string

// Signals is a synchronous dispatcher for lifecycle events.
// Receivers run in registration order on the caller's goroutine.
// A panicking receiver is recovered and logged.
type Signals struct {
	mu        sync.RWMutex
	receivers map[EventType][]Receiver
	checks    []ChangeCheck
	logger    *slog.Logger
}

// NewSignals creates an empty dispatcher.
func NewSignals(logger *slog.Logger) *Signals {
	if logger == nil {
		logger = slog.Default()
	}
	return &Signals{
		receivers: make(map[EventType][]Receiver),
		logger:    logger,
	}
}

// Connect registers a receiver for the event type.
func (s *Signals) Connect(typ EventType, r Receiver) {
	if r == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receivers[typ] = append(s.receivers[typ], r)
}

// ConnectChangeCheck registers a plan change check.
func (s *Signals) ConnectChangeCheck(c ChangeCheck) {
	if c == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, c)
}

// Send delivers the event to every receiver connected to its type.
func (s *Signals) Send(ctx context.Context, event Event) {
	s.mu.RLock()
	receivers := append([]Receiver(nil), s.receivers[event.Type]...)
	s.mu.RUnlock()

	for _, r := range receivers {
		s.deliver(ctx, r, event)
	}
}

func (s *Signals) deliver(ctx context.Context, r Receiver, event Event) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "subscription signal receiver panicked",
				slog.String("event", string(event.Type)),
				slog.String("panic", fmt.Sprint(rec)))
		}
	}()
	r(ctx, event)
}

// CheckChange collects the non-empty reasons returned by change checks.
func (s *Signals) CheckChange(ctx context.Context, us *UserSubscription, target *Plan) []string {
	s.mu.RLock()
	checks := append([]ChangeCheck(nil), s.checks...)
	s.mu.RUnlock()

	var reasons []string
	for _, c := range checks {
		if reason := s.check(ctx, c, us, target); reason != "" {
			reasons = append(reasons, reason)
		}
	}
	return reasons
}

func (s *Signals) check(ctx context.Context, c ChangeCheck, us *UserSubscription, target *Plan) (reason string) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "subscription change check panicked",
				slog.String("panic", fmt.Sprint(rec)))
			reason = ""
		}
	}()
	return c(ctx, us, target)
}

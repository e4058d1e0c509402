package subscription

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
)

// CurrentSubscriptionReason is returned by TryChange when the target plan is
// the plan the user is already subscribed to.
const CurrentSubscriptionReason = "This is your current subscription."

// Manager runs the user subscription lifecycle and keeps group membership
// in line with billing state.
type Manager struct {
	plans   PlanStore
	subs    UserSubscriptionStore
	groups  GroupMembership
	signals *Signals
	grace   time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewManager creates a Manager with the given dependencies.
// Panics if any store is nil to fail fast during initialization.
func NewManager(plans PlanStore, subs UserSubscriptionStore, groups GroupMembership, opts ...ManagerOption) *Manager {
	if plans == nil {
		panic("subscription: PlanStore is required")
	}
	if subs == nil {
		panic("subscription: UserSubscriptionStore is required")
	}
	if groups == nil {
		panic("subscription: GroupMembership is required")
	}

	m := &Manager{
		plans:  plans,
		subs:   subs,
		groups: groups,
		grace:  DefaultGracePeriod,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.signals == nil {
		m.signals = NewSignals(m.logger)
	}

	return m
}

// Signals returns the dispatcher lifecycle events are sent through.
func (m *Manager) Signals() *Signals {
	return m.signals
}

// GracePeriod returns the configured grace period.
func (m *Manager) GracePeriod() time.Duration {
	return m.grace
}

// Today returns the current calendar date.
func (m *Manager) Today() time.Time {
	return DateOf(m.now())
}

// CreatePlan validates and stores a new plan, assigning an ID when missing.
func (m *Manager) CreatePlan(ctx context.Context, plan *Plan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	if err := m.plans.SavePlan(ctx, plan); err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

// Plan returns a plan by ID.
func (m *Manager) Plan(ctx context.Context, id uuid.UUID) (*Plan, error) {
	return m.plans.GetPlan(ctx, id)
}

// Plans returns all plans in display order.
func (m *Manager) Plans(ctx context.Context) ([]Plan, error) {
	plans, err := m.plans.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	SortPlans(plans)
	return plans, nil
}

// Get returns a user subscription by ID.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*UserSubscription, error) {
	return m.subs.Get(ctx, id)
}

// UserSubscriptionFor returns the user's existing subscription to the plan,
// or a new unsaved one with default state.
func (m *Manager) UserSubscriptionFor(ctx context.Context, userID, planID uuid.UUID) (*UserSubscription, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUserID
	}
	if _, err := m.plans.GetPlan(ctx, planID); err != nil {
		return nil, err
	}

	us, err := m.subs.GetByUserAndPlan(ctx, userID, planID)
	if err == nil {
		return us, nil
	}
	if !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}
	return NewUserSubscription(userID, planID, m.now()), nil
}

// IsGroupMember reports whether the user is a member of the plan's group.
func (m *Manager) IsGroupMember(ctx context.Context, us *UserSubscription) (bool, error) {
	plan, err := m.plans.GetPlan(ctx, us.PlanID)
	if err != nil {
		return false, err
	}
	return m.groups.IsMember(ctx, us.UserID, plan.Group)
}

// Expired reports whether more than the grace period has passed since the expiry date.
func (m *Manager) Expired(us *UserSubscription) bool {
	return us.ExpiredAt(m.now(), m.grace)
}

// Valid reports whether group membership matches the subscription state:
// not a member when expired or inactive, a member otherwise.
func (m *Manager) Valid(ctx context.Context, us *UserSubscription) (bool, error) {
	member, err := m.IsGroupMember(ctx, us)
	if err != nil {
		return false, err
	}
	return us.ValidAt(m.now(), m.grace, member), nil
}

// Fix repairs group membership when it does not match the subscription state.
// Expired or inactive subscriptions lose membership and are deleted when
// cancelled; live subscriptions regain membership.
func (m *Manager) Fix(ctx context.Context, us *UserSubscription) error {
	_, err := m.fix(ctx, us)
	return err
}

func (m *Manager) fix(ctx context.Context, us *UserSubscription) (bool, error) {
	plan, err := m.plans.GetPlan(ctx, us.PlanID)
	if err != nil {
		return false, err
	}
	member, err := m.groups.IsMember(ctx, us.UserID, plan.Group)
	if err != nil {
		return false, err
	}

	now := m.now()
	if us.ValidAt(now, m.grace, member) {
		return false, nil
	}

	expired := us.ExpiredAt(now, m.grace)
	if !expired && us.Active {
		if err := m.subscribe(ctx, us, plan); err != nil {
			return false, err
		}
		m.logger.DebugContext(ctx, "restored subscription group membership", m.attrs(us, plan)...)
		return true, nil
	}

	if err := m.unsubscribe(ctx, us, plan); err != nil {
		return false, err
	}
	if us.Cancelled {
		if err := m.subs.Delete(ctx, us.ID); err != nil {
			return false, fmt.Errorf("failed to delete user subscription: %w", err)
		}
	}

	reason := ReasonInactive
	if expired {
		reason = ReasonExpired
	}
	m.logger.InfoContext(ctx, "revoked subscription group membership",
		append(m.attrs(us, plan), slog.String("reason", reason))...)
	m.signals.Send(ctx, m.event(EventUnsubscribed, us, plan, reason))
	return true, nil
}

// Activate marks the subscription as paid. Call it after the user signed up
// and the payment was confirmed. One-time plans grant membership and never
// expire; recurring plans extend the expiry date by one recurrence period.
func (m *Manager) Activate(ctx context.Context, us *UserSubscription) error {
	plan, err := m.plans.GetPlan(ctx, us.PlanID)
	if err != nil {
		return err
	}

	if !plan.IsRecurring() {
		if err := m.subscribe(ctx, us, plan); err != nil {
			return err
		}
		us.Expires = nil
		us.Active = true
	} else {
		us.extendBy(plan, m.now())
	}

	if err := m.save(ctx, us); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "user subscription activated", m.attrs(us, plan)...)
	m.signals.Send(ctx, m.event(EventPaid, us, plan, ""))
	return nil
}

// Signup subscribes the user to this plan. Every other subscription of the
// user loses its group membership and is deleted when cancelled or
// deactivated otherwise.
func (m *Manager) Signup(ctx context.Context, us *UserSubscription) error {
	plan, err := m.plans.GetPlan(ctx, us.PlanID)
	if err != nil {
		return err
	}

	others, err := m.subs.ListByUser(ctx, us.UserID)
	if err != nil {
		return fmt.Errorf("failed to list user subscriptions: %w", err)
	}

	for _, old := range others {
		if old.ID == us.ID {
			continue
		}

		oldPlan, err := m.plans.GetPlan(ctx, old.PlanID)
		if err != nil {
			return err
		}
		if err := m.unsubscribe(ctx, old, oldPlan); err != nil {
			return err
		}
		if old.Cancelled {
			if err := m.subs.Delete(ctx, old.ID); err != nil {
				return fmt.Errorf("failed to delete user subscription: %w", err)
			}
			continue
		}
		old.Active = false
		if err := m.save(ctx, old); err != nil {
			return err
		}
	}

	if err := m.subscribe(ctx, us, plan); err != nil {
		return err
	}
	us.Active = true
	us.Cancelled = false
	if err := m.save(ctx, us); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "user signed up to subscription", m.attrs(us, plan)...)
	m.signals.Send(ctx, m.event(EventSubscribed, us, plan, ""))
	return nil
}

// Cancel cancels the subscription. Inactive subscriptions are removed at once;
// active ones are flagged and keep membership until they expire.
func (m *Manager) Cancel(ctx context.Context, us *UserSubscription) error {
	plan, err := m.plans.GetPlan(ctx, us.PlanID)
	if err != nil {
		return err
	}

	if !us.Active {
		if err := m.unsubscribe(ctx, us, plan); err != nil {
			return err
		}
		if err := m.subs.Delete(ctx, us.ID); err != nil {
			return fmt.Errorf("failed to delete user subscription: %w", err)
		}
	} else {
		us.Cancelled = true
		if err := m.save(ctx, us); err != nil {
			return err
		}
	}

	m.logger.InfoContext(ctx, "user subscription cancelled", m.attrs(us, plan)...)
	m.signals.Send(ctx, m.event(EventUnsubscribed, us, plan, ReasonCancel))
	return nil
}

// TryChange checks whether switching us to target is possible.
// It returns nil when the change is possible and the reasons to display otherwise.
// Re-subscribing to the current plan is allowed only after it was cancelled.
func (m *Manager) TryChange(ctx context.Context, us *UserSubscription, target *Plan) ([]string, error) {
	if target == nil {
		return nil, ErrPlanNotFound
	}
	if us.PlanID == target.ID {
		if us.Active && us.Cancelled {
			return nil, nil
		}
		return []string{CurrentSubscriptionReason}, nil
	}
	return m.signals.CheckChange(ctx, us, target), nil
}

// UnsubscribeExpired fixes every subscription whose expiry date has passed.
// Run it periodically. Failures on single records are logged and returned
// joined; the sweep continues with the remaining records.
// It returns the number of subscriptions whose membership changed.
func (m *Manager) UnsubscribeExpired(ctx context.Context) (int, error) {
	stale, err := m.subs.ListExpiringBefore(ctx, m.Today())
	if err != nil {
		return 0, fmt.Errorf("failed to list expired subscriptions: %w", err)
	}

	var (
		fixed int
		errs  []error
	)
	for _, us := range stale {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		changed, err := m.fix(ctx, us)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to fix expired subscription",
				slog.String("user_subscription_id", us.ID.String()),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("user subscription %s: %w", us.ID, err))
			continue
		}
		if changed {
			fixed++
		}
	}

	m.logger.InfoContext(ctx, "expired subscriptions reconciled",
		slog.Int("checked", len(stale)),
		slog.Int("fixed", fixed),
		slog.Int("failed", len(errs)))

	return fixed, errors.Join(errs...)
}

// UserPlan returns the first plan, in display order, whose group the user belongs to.
// Results are memoised for the request when the context carries a plan cache.
func (m *Manager) UserPlan(ctx context.Context, userID uuid.UUID) (*Plan, error) {
	if p, ok := cachedPlan(ctx, userID); ok {
		if p == nil {
			return nil, ErrPlanNotFound
		}
		return p, nil
	}

	groups, err := m.groups.Groups(ctx, userID)
	if err != nil {
		return nil, err
	}
	plans, err := m.Plans(ctx)
	if err != nil {
		return nil, err
	}

	for i := range plans {
		if slices.Contains(groups, plans[i].Group) {
			storePlan(ctx, userID, &plans[i])
			return &plans[i], nil
		}
	}
	storePlan(ctx, userID, nil)
	return nil, ErrPlanNotFound
}

// ActiveSubscription returns the user's live subscription: active and not expired.
// Returns ErrNoActiveSubscription when there is none.
func (m *Manager) ActiveSubscription(ctx context.Context, userID uuid.UUID) (*UserSubscription, error) {
	list, err := m.subs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	live := slices.DeleteFunc(list, func(us *UserSubscription) bool {
		return !us.Active || us.ExpiredAt(now, m.grace)
	})
	if len(live) == 0 {
		return nil, ErrNoActiveSubscription
	}

	// Signup leaves one active subscription; prefer the newest if a store holds more.
	return slices.MaxFunc(live, func(a, b *UserSubscription) int {
		return cmp.Compare(a.UpdatedAt.UnixNano(), b.UpdatedAt.UnixNano())
	}), nil
}

// ListActive returns all subscriptions with the active flag set.
func (m *Manager) ListActive(ctx context.Context) ([]*UserSubscription, error) {
	return m.subs.ListActive(ctx)
}

// Describe renders the subscription for logs and admin views.
func (m *Manager) Describe(ctx context.Context, us *UserSubscription) (string, error) {
	plan, err := m.plans.GetPlan(ctx, us.PlanID)
	if err != nil {
		return "", err
	}
	return us.Describe(us.UserID.String(), plan, m.Expired(us)), nil
}

func (m *Manager) subscribe(ctx context.Context, us *UserSubscription, plan *Plan) error {
	if err := m.groups.AddToGroup(ctx, us.UserID, plan.Group); err != nil {
		return errors.Join(ErrGroupMembershipFailed, err)
	}
	return nil
}

func (m *Manager) unsubscribe(ctx context.Context, us *UserSubscription, plan *Plan) error {
	if err := m.groups.RemoveFromGroup(ctx, us.UserID, plan.Group); err != nil {
		return errors.Join(ErrGroupMembershipFailed, err)
	}
	return nil
}

func (m *Manager) save(ctx context.Context, us *UserSubscription) error {
	us.UpdatedAt = m.now()
	if us.CreatedAt.IsZero() {
		us.CreatedAt = us.UpdatedAt
	}
	if err := m.subs.Save(ctx, us); err != nil {
		return fmt.Errorf("failed to save user subscription: %w", err)
	}
	return nil
}

func (m *Manager) event(typ EventType, us *UserSubscription, plan *Plan, reason string) Event {
	return Event{
		Type:             typ,
		Plan:             plan,
		UserID:           us.UserID,
		UserSubscription: us,
		Reason:           reason,
		OccurredAt:       m.now(),
	}
}

func (m *Manager) attrs(us *UserSubscription, plan *Plan) []any {
	return []any{
		slog.String("user_subscription_id", us.ID.String()),
		slog.String("user_id", us.UserID.String()),
		slog.String("plan", plan.Name),
	}
}

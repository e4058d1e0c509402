package subscription

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserSubscription binds a user to a plan and carries the billing state
// that decides the user's membership in the plan's group.
// Each (UserID, PlanID) pair exists at most once.
type UserSubscription struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	PlanID    uuid.UUID
	Expires   *time.Time // calendar date; nil never expires
	Active    bool
	Cancelled bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUserSubscription returns a subscription with the default state:
// expiring today, active and cancelled until Signup clears the flag.
func NewUserSubscription(userID uuid.UUID, planID uuid.UUID, now time.Time) *UserSubscription {
	today := DateOf(now)
	return &UserSubscription{
		ID:        uuid.New(),
		UserID:    userID,
		PlanID:    planID,
		Expires:   &today,
		Active:    true,
		Cancelled: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ExpiredAt reports whether more than grace has passed since the expiry date.
func (us *UserSubscription) ExpiredAt(now time.Time, grace time.Duration) bool {
	if us.Expires == nil {
		return false
	}
	return addDays(*us.Expires, grace).Before(DateOf(now))
}

// ValidAt reports whether group membership matches the billing state.
// An expired or inactive subscription is valid when the user is not a member;
// a live one is valid when the user is a member.
func (us *UserSubscription) ValidAt(now time.Time, grace time.Duration, member bool) bool {
	if us.ExpiredAt(now, grace) || !us.Active {
		return !member
	}
	return member
}

// Extend moves the expiry date forward by d. Subscriptions without an expiry
// date start counting from today.
func (us *UserSubscription) Extend(d time.Duration, now time.Time) {
	base := DateOf(now)
	if us.Expires != nil {
		base = *us.Expires
	}
	next := addDays(base, d)
	us.Expires = &next
}

// extendBy moves the expiry date forward by one plan recurrence.
// One-time plans clear the expiry date.
func (us *UserSubscription) extendBy(plan *Plan, now time.Time) {
	if !plan.IsRecurring() {
		us.Expires = nil
		return
	}
	base := DateOf(now)
	if us.Expires != nil {
		base = *us.Expires
	}
	next := ExtendDate(base, plan.RecurrencePeriod, plan.RecurrenceUnit)
	us.Expires = &next
}

// Describe renders "<user>'s <plan>", marking expired subscriptions.
func (us *UserSubscription) Describe(user string, plan *Plan, expired bool) string {
	s := fmt.Sprintf("%s's %s", user, plan)
	if expired {
		s += " (expired)"
	}
	return s
}

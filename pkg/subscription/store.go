package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PlanStore defines plan persistence.
type PlanStore interface {
	// GetPlan returns ErrPlanNotFound if no plan exists.
	GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error)

	// ListPlans returns all plans ordered by ComparePlans.
	ListPlans(ctx context.Context) ([]Plan, error)

	// SavePlan creates or updates a plan. Returns ErrPlanNameTaken
	// when another plan already uses the name.
	SavePlan(ctx context.Context, plan *Plan) error
}

// UserSubscriptionStore defines user subscription persistence.
type UserSubscriptionStore interface {
	// Get returns ErrSubscriptionNotFound if no record exists.
	Get(ctx context.Context, id uuid.UUID) (*UserSubscription, error)

	// GetByUserAndPlan returns ErrSubscriptionNotFound if the user never subscribed to the plan.
	GetByUserAndPlan(ctx context.Context, userID, planID uuid.UUID) (*UserSubscription, error)

	// ListByUser returns all subscriptions of a user.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*UserSubscription, error)

	// ListExpiringBefore returns subscriptions whose expiry date is before date.
	ListExpiringBefore(ctx context.Context, date time.Time) ([]*UserSubscription, error)

	// ListActive returns subscriptions with Active set.
	ListActive(ctx context.Context) ([]*UserSubscription, error)

	// Save creates or updates a subscription. Returns ErrSubscriptionAlreadyExists
	// when a different record already binds the same user and plan.
	Save(ctx context.Context, us *UserSubscription) error

	// Delete removes a subscription. Deleting a missing record is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}

// GroupMembership manages the authorization groups a user belongs to.
type GroupMembership interface {
	AddToGroup(ctx context.Context, userID uuid.UUID, group string) error
	RemoveFromGroup(ctx context.Context, userID uuid.UUID, group string) error
	IsMember(ctx context.Context, userID uuid.UUID, group string) (bool, error)
	Groups(ctx context.Context, userID uuid.UUID) ([]string, error)
}

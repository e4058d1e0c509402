package subscription

import "errors"

var (
	ErrPlanNotFound             = errors.New("subscription plan not found")
	ErrInvalidPlanConfiguration = errors.New("invalid subscription plan configuration")
	ErrInvalidTimeUnit          = errors.New("invalid subscription time unit")
	ErrPlanNameTaken            = errors.New("subscription plan name already taken")
	ErrInvalidPlanCatalog       = errors.New("invalid subscription plan catalog")

	ErrSubscriptionNotFound      = errors.New("user subscription not found")
	ErrSubscriptionAlreadyExists = errors.New("user subscription already exists")
	ErrNoActiveSubscription      = errors.New("user has no active subscription")

	ErrMissingUserID         = errors.New("user ID is required")
	ErrUserIDNotInContext    = errors.New("user ID not found in context")
	ErrGroupMembershipFailed = errors.New("failed to update group membership")
	ErrUserNotFound          = errors.New("user not found")
)

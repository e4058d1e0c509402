package billing

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/subkit/binder"
	"github.com/dmitrymomot/subkit/handler"
	"github.com/dmitrymomot/subkit/pkg/subscription"
)

// ErrNoActiveSubscription is returned when the caller has no live subscription.
var ErrNoActiveSubscription = handler.NewHTTPError(http.StatusNotFound, "no_active_subscription")

// ChangeNotPossibleCode is the error code of a refused signup.
// The reasons are listed under details.reasons.
const ChangeNotPossibleCode = "change_not_possible"

func changeNotPossible(reasons []string) handler.Response {
	return handler.JSONError(&handler.ErrorDetail{
		Code:    ChangeNotPossibleCode,
		Message: "subscription change is not possible",
		Details: map[string][]string{"reasons": reasons},
	}, handler.WithJSONStatus(http.StatusConflict))
}

// mapError maps domain errors onto HTTP errors, keeping the cause in the chain.
// Anything unrecognised is left alone and renders as a 500.
func mapError(err error) error {
	var httpErr error
	switch {
	case errors.As(err, new(handler.HTTPError)):
		return err
	case errors.Is(err, binder.ErrInvalidPath),
		errors.Is(err, subscription.ErrPlanNotFound),
		errors.Is(err, subscription.ErrSubscriptionNotFound):
		httpErr = handler.ErrNotFound
	case errors.Is(err, subscription.ErrNoActiveSubscription):
		httpErr = ErrNoActiveSubscription
	case errors.Is(err, subscription.ErrMissingUserID),
		errors.Is(err, subscription.ErrUserIDNotInContext):
		httpErr = handler.ErrUnauthorized
	case errors.Is(err, subscription.ErrSubscriptionAlreadyExists):
		httpErr = handler.ErrConflict
	default:
		return err
	}
	return fmt.Errorf("%w: %w", httpErr, err)
}

// fail renders err and logs it when it is a server error.
func (s *Service) fail(ctx handler.Context, msg string, err error) handler.Response {
	err = mapError(err)
	if info := handler.ClassifyError(err); info.StatusCode >= http.StatusInternalServerError {
		handler.LogError(s.logger, ctx.Request(), msg, err, info)
	}
	return handler.JSONError(err)
}

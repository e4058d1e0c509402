package subscription

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"github.com/google/uuid"
)

// DefaultRedirectField is the query parameter carrying the originally requested URL.
const DefaultRedirectField = "next"

// ActiveSubscriptionFinder resolves a user's live subscription.
// *Manager implements it.
type ActiveSubscriptionFinder interface {
	ActiveSubscription(ctx context.Context, userID uuid.UUID) (*UserSubscription, error)
}

// UserResolver extracts the authenticated user from a request.
type UserResolver func(r *http.Request) (uuid.UUID, bool)

// BypassFunc grants access regardless of subscription state, e.g. for staff.
type BypassFunc func(r *http.Request, userID uuid.UUID) bool

// AccessErrorHandler handles lookup failures other than a missing subscription.
type AccessErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type accessConfig struct {
	resolveUser   UserResolver
	bypass        []BypassFunc
	loginURL      string
	redirectField string
	errorHandler  AccessErrorHandler
	logger        *slog.Logger
}

// AccessOption configures the access middleware.
type AccessOption func(*accessConfig)

// WithUserResolver overrides how the user is read from the request.
// The default reads the ID stored by SetUserIDToContext.
func WithUserResolver(fn UserResolver) AccessOption {
	return func(c *accessConfig) {
		if fn != nil {
			c.resolveUser = fn
		}
	}
}

// WithBypass adds a predicate that lets a user through RequireSubscription
// without a subscription.
func WithBypass(fn BypassFunc) AccessOption {
	return func(c *accessConfig) {
		if fn != nil {
			c.bypass = append(c.bypass, fn)
		}
	}
}

// WithLoginURL sets where rejected users are redirected.
// Without it rejected requests get 403 Forbidden.
func WithLoginURL(u string) AccessOption {
	return func(c *accessConfig) {
		c.loginURL = u
	}
}

// WithRedirectField sets the query parameter name for the original URL.
func WithRedirectField(name string) AccessOption {
	return func(c *accessConfig) {
		if name != "" {
			c.redirectField = name
		}
	}
}

// WithAccessErrorHandler sets the handler for lookup failures.
func WithAccessErrorHandler(h AccessErrorHandler) AccessOption {
	return func(c *accessConfig) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithAccessLogger sets the logger for lookup failures.
func WithAccessLogger(logger *slog.Logger) AccessOption {
	return func(c *accessConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func newAccessConfig(opts []AccessOption) *accessConfig {
	cfg := &accessConfig{
		resolveUser: func(r *http.Request) (uuid.UUID, bool) {
			return GetUserIDFromContext(r.Context())
		},
		redirectField: DefaultRedirectField,
		errorHandler: func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// RequireSubscription lets a request through when its user has any active
// subscription or a bypass predicate holds. Other requests are redirected
// to the login URL.
func RequireSubscription(finder ActiveSubscriptionFinder, opts ...AccessOption) func(http.Handler) http.Handler {
	cfg := newAccessConfig(opts)
	return cfg.middleware(finder, func(r *http.Request, userID uuid.UUID, us *UserSubscription) bool {
		if us != nil {
			return true
		}
		return slices.ContainsFunc(cfg.bypass, func(fn BypassFunc) bool { return fn(r, userID) })
	})
}

// RequireSubscriptionIn lets a request through only when its user's active
// subscription is to one of the listed plans. Bypass predicates do not apply.
func RequireSubscriptionIn(finder ActiveSubscriptionFinder, planIDs []uuid.UUID, opts ...AccessOption) func(http.Handler) http.Handler {
	cfg := newAccessConfig(opts)
	allowed := slices.Clone(planIDs)
	return cfg.middleware(finder, func(_ *http.Request, _ uuid.UUID, us *UserSubscription) bool {
		return us != nil && slices.Contains(allowed, us.PlanID)
	})
}

func (c *accessConfig) middleware(finder ActiveSubscriptionFinder, test func(*http.Request, uuid.UUID, *UserSubscription) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(WithPlanCache(r.Context()))

			userID, ok := c.resolveUser(r)
			if !ok {
				c.reject(w, r)
				return
			}

			us, err := finder.ActiveSubscription(r.Context(), userID)
			if err != nil && !errors.Is(err, ErrNoActiveSubscription) {
				c.logger.ErrorContext(r.Context(), "failed to resolve active subscription",
					slog.String("user_id", userID.String()),
					slog.String("error", err.Error()))
				c.errorHandler(w, r, err)
				return
			}

			if !test(r, userID, us) {
				c.reject(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (c *accessConfig) reject(w http.ResponseWriter, r *http.Request) {
	if c.loginURL == "" {
		http.Error(w, "Subscription required", http.StatusForbidden)
		return
	}

	target, err := url.Parse(c.loginURL)
	if err != nil {
		http.Error(w, "Subscription required", http.StatusForbidden)
		return
	}
	q := target.Query()
	q.Set(c.redirectField, r.URL.RequestURI())
	target.RawQuery = q.Encode()

	http.Redirect(w, r, target.String(), http.StatusFound)
}

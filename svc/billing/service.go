// Package billing exposes the subscription lifecycle over HTTP and wires the
// periodic sweep, payment webhook and email notifications around a
// subscription.Manager.
package billing

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/subkit/binder"
	"github.com/dmitrymomot/subkit/handler"
	"github.com/dmitrymomot/subkit/pkg/requestid"
	"github.com/dmitrymomot/subkit/pkg/scheduler"
	"github.com/dmitrymomot/subkit/pkg/subscription"
)

// SweepTaskName is the scheduler task that reconciles expired subscriptions.
const SweepTaskName = "unsubscribe-expired"

// Service serves the billing API.
type Service struct {
	manager    *subscription.Manager
	webhook    http.Handler
	userHeader string
	access     []subscription.AccessOption
	logger     *slog.Logger
	errors     handler.ErrorHandler[handler.Context]
}

// Option configures a Service.
type Option func(*Service)

// WithWebhook mounts h at POST /webhooks/paddle.
func WithWebhook(h http.Handler) Option {
	return func(s *Service) { s.webhook = h }
}

// WithUserHeader sets the header carrying the authenticated user ID.
func WithUserHeader(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.userHeader = name
		}
	}
}

// WithAccessOptions configures the subscription gate on GET /subscription.
func WithAccessOptions(opts ...subscription.AccessOption) Option {
	return func(s *Service) { s.access = append(s.access, opts...) }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(manager *subscription.Manager, opts ...Option) *Service {
	if manager == nil {
		panic("billing: manager is required")
	}
	s := &Service{
		manager:    manager,
		userHeader: "X-User-ID",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.errors = handler.NewErrorHandler(s.logger, handler.ErrorHandlerConfig{MapError: mapError})
	return s
}

// wrap binds path parameters into R and renders binding failures through
// the service error handler.
func wrap[R any](s *Service, h func(handler.Context, R) handler.Response) http.HandlerFunc {
	return handler.Wrap(handler.HandlerFunc[handler.Context, R](h),
		handler.WithBinders[handler.Context, R](binder.Path(chi.URLParam)),
		handler.WithErrorHandler[handler.Context, R](s.errors),
	)
}

// RegisterSweep schedules UnsubscribeExpired every interval, starting
// immediately when the scheduler starts.
func (s *Service) RegisterSweep(sched *scheduler.Scheduler, interval time.Duration) error {
	return sched.AddTask(SweepTaskName, scheduler.Every(interval), func(ctx context.Context) error {
		_, err := s.manager.UnsubscribeExpired(ctx)
		return err
	}, scheduler.WithRunOnStart())
}

// Router builds the HTTP API. Callers may mount more routes on the result.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware())
	r.Use(middleware.Recoverer)
	r.Use(UserFromHeader(s.userHeader))

	r.Get("/plans", wrap(s, s.listPlans))
	r.Get("/plans/{planID}", wrap(s, s.getPlan))

	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/plans/{planID}/signup", wrap(s, s.signup))
		r.Get("/plans/{planID}/change", wrap(s, s.tryChange))
		r.Get("/subscriptions/{id}", wrap(s, s.getSubscription))
		r.Post("/subscriptions/{id}/cancel", wrap(s, s.cancel))
	})

	access := append([]subscription.AccessOption{subscription.WithAccessLogger(s.logger)}, s.access...)
	r.With(subscription.RequireSubscription(s.manager, access...)).Get("/subscription", wrap(s, s.currentSubscription))

	if s.webhook != nil {
		r.Method(http.MethodPost, "/webhooks/paddle", s.webhook)
	}
	return r
}

package billing

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/dmitrymomot/subkit/handler"
	payments "github.com/dmitrymomot/subkit/pkg/billing"
	"github.com/dmitrymomot/subkit/pkg/subscription"
)

const dateLayout = "2006-01-02"

type priceView struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type planView struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug,omitempty"`
	Description      string    `json:"description,omitempty"`
	Price            priceView `json:"price"`
	PricePerDay      float64   `json:"price_per_day"`
	Recurring        bool      `json:"recurring"`
	RecurrencePeriod int       `json:"recurrence_period,omitempty"`
	RecurrenceUnit   string    `json:"recurrence_unit,omitempty"`
	TrialPeriod      int       `json:"trial_period,omitempty"`
	TrialUnit        string    `json:"trial_unit,omitempty"`
	Pricing          string    `json:"pricing"`
	Trial            string    `json:"trial"`
	URL              string    `json:"url"`
}

type subscriptionView struct {
	ID          uuid.UUID `json:"id"`
	PlanID      uuid.UUID `json:"plan_id"`
	Expires     *string   `json:"expires"`
	Active      bool      `json:"active"`
	Cancelled   bool      `json:"cancelled"`
	Expired     bool      `json:"expired"`
	Description string    `json:"description"`
}

type signupView struct {
	Subscription subscriptionView `json:"subscription"`
	Checkout     map[string]any   `json:"checkout,omitempty"`
}

type planRequest struct {
	PlanID uuid.UUID `path:"planID"`
}

type subscriptionRequest struct {
	ID uuid.UUID `path:"id"`
}

type changeView struct {
	Possible bool     `json:"possible"`
	Reasons  []string `json:"reasons"`
}

func newPlanView(p subscription.Plan, lang language.Tag) planView {
	return planView{
		ID:               p.ID,
		Name:             p.Name,
		Slug:             p.Slug,
		Description:      p.Description,
		Price:            priceView{Amount: p.Price.Amount, Currency: p.Price.Currency},
		PricePerDay:      p.PricePerDay(),
		Recurring:        p.IsRecurring(),
		RecurrencePeriod: p.RecurrencePeriod,
		RecurrenceUnit:   string(p.RecurrenceUnit),
		TrialPeriod:      p.TrialPeriod,
		TrialUnit:        string(p.TrialUnit),
		Pricing:          p.PricingDisplay(lang),
		Trial:            p.TrialDisplay(lang),
		URL:              "/plans/" + p.ID.String(),
	}
}

func (s *Service) newSubscriptionView(ctx context.Context, us *subscription.UserSubscription) (subscriptionView, error) {
	desc, err := s.manager.Describe(ctx, us)
	if err != nil {
		return subscriptionView{}, err
	}
	v := subscriptionView{
		ID:          us.ID,
		PlanID:      us.PlanID,
		Active:      us.Active,
		Cancelled:   us.Cancelled,
		Expired:     s.manager.Expired(us),
		Description: desc,
	}
	if us.Expires != nil {
		d := us.Expires.Format(dateLayout)
		v.Expires = &d
	}
	return v, nil
}

// requestLanguage picks the first Accept-Language tag, English otherwise.
func requestLanguage(r *http.Request) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return language.English
	}
	return tags[0]
}

func (s *Service) listPlans(ctx handler.Context, _ struct{}) handler.Response {
	plans, err := s.manager.Plans(ctx)
	if err != nil {
		return s.fail(ctx, "failed to list plans", err)
	}
	lang := requestLanguage(ctx.Request())
	out := make([]planView, 0, len(plans))
	for _, p := range plans {
		out = append(out, newPlanView(p, lang))
	}
	return handler.JSON(out)
}

func (s *Service) getPlan(ctx handler.Context, req planRequest) handler.Response {
	plan, err := s.manager.Plan(ctx, req.PlanID)
	if err != nil {
		return s.fail(ctx, "failed to load plan", err)
	}
	return handler.JSON(newPlanView(*plan, requestLanguage(ctx.Request())))
}

// ownSubscription loads the subscription named in the path and hides
// other users' subscriptions behind 404.
func (s *Service) ownSubscription(ctx context.Context, id uuid.UUID) (*subscription.UserSubscription, error) {
	us, err := s.manager.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID, _ := subscription.GetUserIDFromContext(ctx); us.UserID != userID {
		return nil, handler.ErrNotFound
	}
	return us, nil
}

func (s *Service) getSubscription(ctx handler.Context, req subscriptionRequest) handler.Response {
	us, err := s.ownSubscription(ctx, req.ID)
	if err != nil {
		return s.fail(ctx, "failed to load subscription", err)
	}
	v, err := s.newSubscriptionView(ctx, us)
	if err != nil {
		return s.fail(ctx, "failed to describe subscription", err)
	}
	return handler.JSON(v)
}

func (s *Service) currentSubscription(ctx handler.Context, _ struct{}) handler.Response {
	userID, _ := subscription.GetUserIDFromContext(ctx)
	us, err := s.manager.ActiveSubscription(ctx, userID)
	if err != nil {
		return s.fail(ctx, "failed to load active subscription", err)
	}
	v, err := s.newSubscriptionView(ctx, us)
	if err != nil {
		return s.fail(ctx, "failed to describe subscription", err)
	}
	return handler.JSON(v)
}

// changeReasons checks a switch to plan against the user's live
// subscription. Without one, only the registered change checks apply:
// lapsed or deactivated records never block a new signup.
func (s *Service) changeReasons(ctx context.Context, target *subscription.UserSubscription, plan *subscription.Plan) ([]string, error) {
	current, err := s.manager.ActiveSubscription(ctx, target.UserID)
	switch {
	case errors.Is(err, subscription.ErrNoActiveSubscription):
		return s.manager.Signals().CheckChange(ctx, target, plan), nil
	case err != nil:
		return nil, err
	}
	return s.manager.TryChange(ctx, current, plan)
}

func (s *Service) tryChange(ctx handler.Context, req planRequest) handler.Response {
	userID, _ := subscription.GetUserIDFromContext(ctx)
	plan, err := s.manager.Plan(ctx, req.PlanID)
	if err != nil {
		return s.fail(ctx, "failed to load plan", err)
	}
	target, err := s.manager.UserSubscriptionFor(ctx, userID, req.PlanID)
	if err != nil {
		return s.fail(ctx, "failed to load subscription", err)
	}
	reasons, err := s.changeReasons(ctx, target, plan)
	if err != nil {
		return s.fail(ctx, "failed to check plan change", err)
	}
	return handler.JSON(changeView{Possible: len(reasons) == 0, Reasons: append([]string{}, reasons...)})
}

// signup subscribes the caller to the plan. Free plans are activated at
// once; paid plans wait for the payment webhook, so the response carries the
// custom data to attach to the checkout.
func (s *Service) signup(ctx handler.Context, req planRequest) handler.Response {
	userID, _ := subscription.GetUserIDFromContext(ctx)

	plan, err := s.manager.Plan(ctx, req.PlanID)
	if err != nil {
		return s.fail(ctx, "failed to load plan", err)
	}
	us, err := s.manager.UserSubscriptionFor(ctx, userID, req.PlanID)
	if err != nil {
		return s.fail(ctx, "failed to load subscription", err)
	}
	reasons, err := s.changeReasons(ctx, us, plan)
	if err != nil {
		return s.fail(ctx, "failed to check plan change", err)
	}
	if len(reasons) > 0 {
		return changeNotPossible(reasons)
	}

	if err := s.manager.Signup(ctx, us); err != nil {
		return s.fail(ctx, "failed to sign up", err)
	}
	if plan.IsFree() {
		if err := s.manager.Activate(ctx, us); err != nil {
			return s.fail(ctx, "failed to activate free plan", err)
		}
	}

	v, err := s.newSubscriptionView(ctx, us)
	if err != nil {
		return s.fail(ctx, "failed to describe subscription", err)
	}
	out := signupView{Subscription: v}
	if !plan.IsFree() {
		out.Checkout = map[string]any{
			"custom_data": map[string]string{payments.CustomDataKey: us.ID.String()},
		}
	}
	return handler.JSON(out, handler.WithJSONStatus(http.StatusCreated))
}

func (s *Service) cancel(ctx handler.Context, req subscriptionRequest) handler.Response {
	us, err := s.ownSubscription(ctx, req.ID)
	if err != nil {
		return s.fail(ctx, "failed to load subscription", err)
	}
	wasActive := us.Active
	if err := s.manager.Cancel(ctx, us); err != nil {
		return s.fail(ctx, "failed to cancel subscription", err)
	}
	if !wasActive {
		return handler.JSON(map[string]any{"id": us.ID, "deleted": true})
	}
	v, err := s.newSubscriptionView(ctx, us)
	if err != nil {
		return s.fail(ctx, "failed to describe subscription", err)
	}
	return handler.JSON(v)
}

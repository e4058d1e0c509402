package subscription

import (
	"cmp"
	"errors"
	"slices"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subkit/pkg/validator"
)

// maxNameLength bounds plan names and slugs.
const maxNameLength = 100

// Plan describes a subscription plan and the authorization group it grants.
// A plan without a recurrence unit is a one-time purchase that never expires.
type Plan struct {
	ID               uuid.UUID
	Name             string // unique across plans
	Slug             string
	Description      string
	Price            Money
	TrialPeriod      int
	TrialUnit        TimeUnit
	RecurrencePeriod int
	RecurrenceUnit   TimeUnit
	Group            string // authorization group granted while subscribed
}

func (p Plan) String() string {
	return p.Name
}

// IsRecurring reports whether the plan renews every RecurrencePeriod units.
func (p Plan) IsRecurring() bool {
	return p.RecurrenceUnit != UnitNone
}

// IsFree reports whether the plan costs nothing.
func (p Plan) IsFree() bool {
	return p.Price.IsZero()
}

// HasTrial reports whether the plan offers a trial period.
func (p Plan) HasTrial() bool {
	return p.TrialPeriod > 0 && p.TrialUnit != UnitNone
}

// PricePerDay estimates the plan price per day. It is used to charge the
// difference when a user changes plans. Month length is 30.4368 days and year
// length 365.2425 days. One-time plans return 0.
func (p Plan) PricePerDay() float64 {
	if !p.IsRecurring() || p.RecurrencePeriod <= 0 {
		return 0
	}
	return p.Price.Float() / (float64(p.RecurrencePeriod) * p.RecurrenceUnit.Days())
}

// Validate checks the plan is internally consistent. The returned error
// wraps ErrInvalidPlanConfiguration and validator.ValidationErrors.
func (p Plan) Validate() error {
	err := validator.Apply(
		validator.Required("name", p.Name),
		validator.MaxLen("name", p.Name, maxNameLength),
		validator.MaxLen("slug", p.Slug, maxNameLength),
		validator.Required("group", p.Group),
		validator.NonNegativeAmount("price.amount", p.Price.Amount),
		validator.InList("trial_unit", p.TrialUnit, timeUnits),
		validator.InList("recurrence_unit", p.RecurrenceUnit, timeUnits),
		validator.MinNum("trial_period", p.TrialPeriod, 0),
		validator.MinNum("recurrence_period", p.RecurrencePeriod, 0),
		validator.RequiredNumIf("trial_period", p.TrialPeriod, p.TrialUnit != UnitNone),
		validator.RequiredNumIf("recurrence_period", p.RecurrencePeriod, p.RecurrenceUnit != UnitNone),
	)
	if err != nil {
		return errors.Join(ErrInvalidPlanConfiguration, err)
	}
	return nil
}

// ComparePlans orders plans by price ascending, then by recurrence period descending.
func ComparePlans(a, b Plan) int {
	if c := cmp.Compare(a.Price.Amount, b.Price.Amount); c != 0 {
		return c
	}
	return cmp.Compare(b.RecurrencePeriod, a.RecurrencePeriod)
}

// SortPlans sorts plans in place using ComparePlans.
func SortPlans(plans []Plan) {
	slices.SortStableFunc(plans, ComparePlans)
}

package subscription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/subkit/pkg/validator"
)

// planNamespace derives stable plan IDs from plan slugs.
var planNamespace = uuid.MustParse("5b0e2f7e-6c1d-4f0a-9a57-3f1c2b8d4e10")

type catalogFile struct {
	Plans []catalogPlan `yaml:"plans"`
}

type catalogPlan struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
	Group       string `yaml:"group"`
	Price       struct {
		Amount   int64  `yaml:"amount"`
		Currency string `yaml:"currency"`
	} `yaml:"price"`
	Trial      string `yaml:"trial"`
	Recurrence string `yaml:"recurrence"`
}

// ParsePlanCatalog reads plan definitions from YAML:
//
//	plans:
//	  - name: Pro
//	    slug: pro
//	    group: pro
//	    price: {amount: 1000, currency: USD}
//	    trial: 2 weeks
//	    recurrence: 1 month
//
// Plans without an id get one derived from the slug (or name) so that
// re-reading the same catalog yields the same IDs.
func ParsePlanCatalog(r io.Reader) ([]Plan, error) {
	var f catalogFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.Join(ErrInvalidPlanCatalog, err)
	}
	if len(f.Plans) == 0 {
		return nil, fmt.Errorf("%w: no plans defined", ErrInvalidPlanCatalog)
	}

	plans := make([]Plan, 0, len(f.Plans))
	for i, cp := range f.Plans {
		p, err := cp.plan()
		if err != nil {
			return nil, fmt.Errorf("%w: plan #%d: %w", ErrInvalidPlanCatalog, i+1, err)
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// validate checks the catalog-only fields before conversion.
// Paid plans need a currency; ids and slugs must be well formed when given.
func (cp catalogPlan) validate() error {
	rules := []validator.Rule{
		validator.Required("name", cp.Name),
		validator.Required("group", cp.Group),
	}
	if cp.ID != "" {
		rules = append(rules, validator.ValidUUID("id", cp.ID))
	}
	if cp.Slug != "" {
		rules = append(rules, validator.ValidSlug("slug", cp.Slug))
	}
	if cp.Price.Amount > 0 {
		rules = append(rules, validator.Len("price.currency", cp.Price.Currency, 3))
	}
	return validator.Apply(rules...)
}

func (cp catalogPlan) plan() (Plan, error) {
	if err := cp.validate(); err != nil {
		return Plan{}, err
	}

	p := Plan{
		Name:        cp.Name,
		Slug:        cp.Slug,
		Description: cp.Description,
		Group:       cp.Group,
		Price:       Money{Amount: cp.Price.Amount, Currency: strings.ToUpper(cp.Price.Currency)},
	}

	var err error
	if p.TrialPeriod, p.TrialUnit, err = parsePeriod(cp.Trial); err != nil {
		return Plan{}, err
	}
	if p.RecurrencePeriod, p.RecurrenceUnit, err = parsePeriod(cp.Recurrence); err != nil {
		return Plan{}, err
	}

	switch {
	case cp.ID != "":
		if p.ID, err = uuid.Parse(cp.ID); err != nil {
			return Plan{}, err
		}
	case p.Slug != "":
		p.ID = uuid.NewSHA1(planNamespace, []byte(p.Slug))
	default:
		p.ID = uuid.NewSHA1(planNamespace, []byte(p.Name))
	}

	return p, p.Validate()
}

// parsePeriod accepts "", "month", "3 months" or "2W".
func parsePeriod(s string) (int, TimeUnit, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, UnitNone, nil
	}

	n, unit := 1, s
	if i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }); i > 0 {
		if _, err := fmt.Sscanf(s[:i], "%d", &n); err != nil {
			return 0, UnitNone, err
		}
		unit = s[i:]
	} else if i < 0 {
		return 0, UnitNone, fmt.Errorf("%w: %q has no unit", ErrInvalidTimeUnit, s)
	}

	u, err := ParseTimeUnit(unit)
	if err != nil {
		return 0, UnitNone, err
	}
	return n, u, nil
}

// SyncPlans creates or updates every plan in the catalog.
func (m *Manager) SyncPlans(ctx context.Context, plans []Plan) error {
	for i := range plans {
		if err := m.CreatePlan(ctx, &plans[i]); err != nil {
			return fmt.Errorf("plan %q: %w", plans[i].Name, err)
		}
	}
	m.logger.InfoContext(ctx, "subscription plans synced", "count", len(plans))
	return nil
}

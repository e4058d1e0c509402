package subscription

import (
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	msgFree       = "Free"
	msgNoTrial    = "No trial"
	msgOneTimeFee = "%.2[1]f one-time fee"
	msgRecurring  = "subscription.pricing.recurring"
	msgTrial      = "subscription.pricing.trial"
)

var (
	displayCatalog = newDisplayCatalog()
	displayMatcher = language.NewMatcher(displayCatalog.Languages())
)

func newDisplayCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	// Arguments: price, period, singular unit, plural unit.
	_ = b.Set(language.English, msgRecurring, plural.Selectf(2, "%d",
		"one", "%.2[1]f / %[3]s",
		"other", "%.2[1]f / %[2]d %[4]s",
	))
	// Arguments: period, singular unit, plural unit.
	_ = b.Set(language.English, msgTrial, plural.Selectf(1, "%d",
		"one", "One %[2]s",
		"other", "%[1]d %[3]s",
	))
	_ = b.SetString(language.English, msgFree, "Free")
	_ = b.SetString(language.English, msgNoTrial, "No trial")
	_ = b.SetString(language.English, msgOneTimeFee, "%.2[1]f one-time fee")
	return b
}

// NewPrinter returns a printer bound to the closest supported display language.
func NewPrinter(lang language.Tag) *message.Printer {
	langs := displayCatalog.Languages()
	_, idx, _ := displayMatcher.Match(lang)
	return message.NewPrinter(langs[idx], message.Catalog(displayCatalog))
}

// PricingDisplay renders the plan price, e.g. "10.00 / Month",
// "25.00 / 3 months", "99.00 one-time fee" or "Free".
func (p Plan) PricingDisplay(lang language.Tag) string {
	pr := NewPrinter(lang)
	switch {
	case p.IsFree():
		return pr.Sprintf(msgFree)
	case p.RecurrencePeriod > 0 && p.IsRecurring():
		return pr.Sprintf(msgRecurring,
			p.Price.Float(), p.RecurrencePeriod,
			p.RecurrenceUnit.String(), p.RecurrenceUnit.plural())
	default:
		return pr.Sprintf(msgOneTimeFee, p.Price.Float())
	}
}

// TrialDisplay renders the trial length, e.g. "One week", "14 days" or "No trial".
func (p Plan) TrialDisplay(lang language.Tag) string {
	pr := NewPrinter(lang)
	if !p.HasTrial() {
		return pr.Sprintf(msgNoTrial)
	}
	return pr.Sprintf(msgTrial,
		p.TrialPeriod,
		strings.ToLower(p.TrialUnit.String()), p.TrialUnit.plural())
}

package subscription

import (
	"fmt"
	"strings"
)

// TimeUnit is the unit of a trial or recurrence period.
// The zero value means "no trial" or "no recurrence".
type TimeUnit string

const (
	UnitNone  TimeUnit = ""
	UnitDay   TimeUnit = "D"
	UnitWeek  TimeUnit = "W"
	UnitMonth TimeUnit = "M"
	UnitYear  TimeUnit = "Y"
)

var timeUnits = []TimeUnit{UnitNone, UnitDay, UnitWeek, UnitMonth, UnitYear}

// Average unit lengths in days. Month and year include leap years.
const (
	daysPerDay   = 1.0
	daysPerWeek  = 7.0
	daysPerMonth = 30.4368
	daysPerYear  = 365.2425
)

// Valid reports whether u is a known unit or UnitNone.
func (u TimeUnit) Valid() bool {
	switch u {
	case UnitNone, UnitDay, UnitWeek, UnitMonth, UnitYear:
		return true
	}
	return false
}

// Days returns the average length of the unit in days, 0 for UnitNone.
func (u TimeUnit) Days() float64 {
	switch u {
	case UnitDay:
		return daysPerDay
	case UnitWeek:
		return daysPerWeek
	case UnitMonth:
		return daysPerMonth
	case UnitYear:
		return daysPerYear
	}
	return 0
}

func (u TimeUnit) String() string {
	switch u {
	case UnitDay:
		return "Day"
	case UnitWeek:
		return "Week"
	case UnitMonth:
		return "Month"
	case UnitYear:
		return "Year"
	}
	return ""
}

// plural returns the lowercase plural name used in display strings.
func (u TimeUnit) plural() string {
	switch u {
	case UnitDay:
		return "days"
	case UnitWeek:
		return "weeks"
	case UnitMonth:
		return "months"
	case UnitYear:
		return "years"
	}
	return ""
}

// ParseTimeUnit accepts the single-letter code or the unit name, case-insensitive.
func ParseTimeUnit(s string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return UnitNone, nil
	case "d", "day", "days":
		return UnitDay, nil
	case "w", "week", "weeks":
		return UnitWeek, nil
	case "m", "month", "months":
		return UnitMonth, nil
	case "y", "year", "years":
		return UnitYear, nil
	}
	return UnitNone, fmt.Errorf("%w: %q", ErrInvalidTimeUnit, s)
}

// Money represents a monetary amount in the smallest currency unit.
// For example, $10.99 USD would be Amount: 1099, Currency: "USD".
type Money struct {
	Amount   int64  // Amount in smallest currency unit (cents for USD)
	Currency string // ISO 4217 currency code
}

// Float returns the amount in major units.
func (m Money) Float() float64 {
	return float64(m.Amount) / 100
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// EventType identifies a lifecycle signal.
type EventType string

const (
	EventPaid         EventType = "paid"
	EventSubscribed   EventType = "subscribed"
	EventUnsubscribed EventType = "unsubscribed"
)

// Reasons attached to EventUnsubscribed.
const (
	ReasonCancel   = "cancel"
	ReasonExpired  = "expired"
	ReasonInactive = "inactive"
)

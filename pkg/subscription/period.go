package subscription

import "time"

// DateOf truncates t to midnight in its location.
// Expiry dates are calendar dates, so all comparisons go through DateOf.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ExtendDate moves date forward by period units.
// Months and years keep the day of month when it exists in the target month
// and clamp to the last day otherwise (Jan 31 + 1 month = Feb 28/29).
func ExtendDate(date time.Time, period int, unit TimeUnit) time.Time {
	date = DateOf(date)
	switch unit {
	case UnitDay:
		return date.AddDate(0, 0, period)
	case UnitWeek:
		return date.AddDate(0, 0, 7*period)
	case UnitMonth:
		return addMonths(date, period)
	case UnitYear:
		return addMonths(date, 12*period)
	}
	return date
}

// addMonths avoids time.AddDate normalisation, which would turn
// Jan 31 + 1 month into Mar 2/3.
func addMonths(date time.Time, months int) time.Time {
	y, m, d := date.Date()
	total := int(m) - 1 + months
	y += total / 12
	total %= 12
	if total < 0 {
		total += 12
		y--
	}
	month := time.Month(total + 1)
	if last := daysIn(y, month, date.Location()); d > last {
		d = last
	}
	return time.Date(y, month, d, 0, 0, 0, 0, date.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// addDays adds the whole days of d to a date. Sub-day remainders are dropped
// and DST shifts cannot move the result to a neighbouring date.
func addDays(date time.Time, d time.Duration) time.Time {
	return DateOf(date).AddDate(0, 0, int(d/(24*time.Hour)))
}

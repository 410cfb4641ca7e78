package types

import (
	"time"

	ierr "github.com/tirelane/tirelane/internal/errors"
)

// BillingCycle is the recurrence granularity of a subscription.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "MONTHLY"
	BillingCycleYearly  BillingCycle = "YEARLY"
)

func (c BillingCycle) String() string {
	return string(c)
}

func (c BillingCycle) Validate() error {
	switch c {
	case BillingCycleMonthly, BillingCycleYearly:
		return nil
	default:
		return ierr.NewErrorf("invalid billing cycle: %s", c).
			WithHint("Billing cycle must be MONTHLY or YEARLY").
			WithReportableDetails(map[string]interface{}{
				"billing_cycle": string(c),
			}).
			Mark(ierr.ErrValidation)
	}
}

// NextBillingDate returns the end of the billing period that starts at start.
//
// Calendar roll-forward clamps to the end of the target month: a monthly
// period starting Jan 31 ends Feb 28 (29 in leap years), and a yearly period
// starting Feb 29 ends Feb 28. time.AddDate is not used because it overflows
// short months instead of clamping, which drifts the anchor day over many
// cycles.
func NextBillingDate(start time.Time, cycle BillingCycle) time.Time {
	switch cycle {
	case BillingCycleYearly:
		return addMonthsClamped(start, 12)
	default:
		return addMonthsClamped(start, 1)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	// Normalize the target year/month via the zeroth-day trick.
	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysInMonth(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StartOfNextDay returns midnight of the day after t in the given location.
// A subscription whose next billing date falls anywhere within today is due.
func StartOfNextDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func TestNextBillingDateMonthly(t *testing.T) {
	testCases := []struct {
		name     string
		start    time.Time
		expected time.Time
	}{
		{
			name:     "mid month",
			start:    date(2025, time.March, 15),
			expected: date(2025, time.April, 15),
		},
		{
			name:     "jan 31 clamps to feb 28",
			start:    date(2025, time.January, 31),
			expected: date(2025, time.February, 28),
		},
		{
			name:     "jan 31 clamps to feb 29 in leap year",
			start:    date(2024, time.January, 31),
			expected: date(2024, time.February, 29),
		},
		{
			name:     "may 31 clamps to jun 30",
			start:    date(2025, time.May, 31),
			expected: date(2025, time.June, 30),
		},
		{
			name:     "december rolls into next year",
			start:    date(2025, time.December, 5),
			expected: date(2026, time.January, 5),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NextBillingDate(tc.start, BillingCycleMonthly))
		})
	}
}

func TestNextBillingDateYearly(t *testing.T) {
	testCases := []struct {
		name     string
		start    time.Time
		expected time.Time
	}{
		{
			name:     "plain year",
			start:    date(2025, time.March, 15),
			expected: date(2026, time.March, 15),
		},
		{
			name:     "feb 29 clamps to feb 28",
			start:    date(2024, time.February, 29),
			expected: date(2025, time.February, 28),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NextBillingDate(tc.start, BillingCycleYearly))
		})
	}
}

// Each roll lands in the immediately following month. Overflow semantics
// (Jan 31 plus one month becoming Mar 3) would skip February entirely.
func TestNextBillingDateNeverOverflows(t *testing.T) {
	current := date(2025, time.January, 31)
	for i := 0; i < 24; i++ {
		next := NextBillingDate(current, BillingCycleMonthly)
		assert.True(t, next.After(current))
		assert.LessOrEqual(t, next.Day(), 31)
		assert.NotEqual(t, current.Month(), next.Month())
		current = next
	}
}

func TestBillingCycleValidate(t *testing.T) {
	assert.NoError(t, BillingCycleMonthly.Validate())
	assert.NoError(t, BillingCycleYearly.Validate())
	assert.Error(t, BillingCycle("WEEKLY").Validate())
	assert.Error(t, BillingCycle("").Validate())
}

func TestStartOfNextDay(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	assert.NoError(t, err)

	// 2025-03-10 20:00 UTC is already 05:00 on the 11th in Seoul, so the
	// boundary is Seoul midnight of the 12th.
	at := time.Date(2025, time.March, 10, 20, 0, 0, 0, time.UTC)
	boundary := StartOfNextDay(at, seoul)
	assert.Equal(t, time.Date(2025, time.March, 12, 0, 0, 0, 0, seoul), boundary)

	// In UTC the same instant is still the 10th.
	assert.Equal(t,
		time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC),
		StartOfNextDay(at, time.UTC))
}

package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pakjc16/realty-flow/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(year int, month time.Month, day int) billing.Date {
	return billing.NewDate(year, month, day)
}

func won(v int64) billing.Money {
	return billing.NewMoney(v)
}

// =============================================================================
// CLAMPING
// =============================================================================

func TestClampPaymentDay_ShortMonths(t *testing.T) {
	// GIVEN: A payment day of 31
	// WHEN: Clamping against months without a 31st
	// THEN: The due date lands on the month's last day

	assert.Equal(t, d(2024, time.April, 30), billing.ClampPaymentDay(2024, time.April, 31))
	assert.Equal(t, d(2023, time.February, 28), billing.ClampPaymentDay(2023, time.February, 31))
	assert.Equal(t, d(2024, time.February, 29), billing.ClampPaymentDay(2024, time.February, 31), "leap year keeps the 29th")
	assert.Equal(t, d(2024, time.January, 31), billing.ClampPaymentDay(2024, time.January, 31))
}

func TestClampPaymentDay_ValidDayUnchanged(t *testing.T) {
	assert.Equal(t, d(2024, time.February, 25), billing.ClampPaymentDay(2024, time.February, 25))
}

func TestClampPaymentDay_OutOfRangeDegradesToEndOfMonth(t *testing.T) {
	// An unparseable or out-of-range payment day must not abort billing;
	// it falls back to the last day of the month.
	assert.Equal(t, d(2024, time.March, 31), billing.ClampPaymentDay(2024, time.March, 0))
	assert.Equal(t, d(2024, time.March, 31), billing.ClampPaymentDay(2024, time.March, -5))
	assert.Equal(t, d(2024, time.June, 30), billing.ClampPaymentDay(2024, time.June, 99))
}

// =============================================================================
// MONTH BUCKETS
// =============================================================================

func TestMonthOf(t *testing.T) {
	assert.Equal(t, billing.MonthKey("2024-03"), billing.MonthOf(d(2024, time.March, 17)))
	assert.Equal(t, billing.MonthKey("2024-12"), billing.MonthOf(d(2024, time.December, 1)))
}

func TestEndOfMonth(t *testing.T) {
	assert.Equal(t, d(2024, time.February, 29), billing.EndOfMonth(d(2024, time.February, 10)))
	assert.Equal(t, d(2024, time.December, 31), billing.EndOfMonth(d(2024, time.December, 1)))
}

func TestParseDate(t *testing.T) {
	got, err := billing.ParseDate("2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, d(2024, time.March, 10), got)

	bad, err := billing.ParseDate("not-a-date")
	assert.Error(t, err)
	assert.True(t, bad.IsZero(), "malformed input yields the zero date")
}

// =============================================================================
// DUE-DATE COMPARISON
// =============================================================================

func TestIsPastDue_StrictLessThan(t *testing.T) {
	today := d(2024, time.March, 10)

	assert.True(t, billing.IsPastDue(d(2024, time.March, 9), today))
	assert.False(t, billing.IsPastDue(d(2024, time.March, 10), today), "due today is not yet overdue")
	assert.False(t, billing.IsPastDue(d(2024, time.March, 11), today))
}

// =============================================================================
// MONTH WALK
// =============================================================================

func TestWalkMonths_InclusiveBounds(t *testing.T) {
	// GIVEN: A range from mid-January to early March
	// WHEN: Walking months
	// THEN: Jan, Feb, and Mar first-of-month dates are produced

	walk := billing.WalkMonths(d(2024, time.January, 15), d(2024, time.March, 2))

	var months []billing.Date
	for m, ok := walk.Next(); ok; m, ok = walk.Next() {
		months = append(months, m)
	}

	require.Len(t, months, 3)
	assert.Equal(t, d(2024, time.January, 1), months[0])
	assert.Equal(t, d(2024, time.February, 1), months[1])
	assert.Equal(t, d(2024, time.March, 1), months[2])
}

func TestWalkMonths_Restartable(t *testing.T) {
	walk := billing.WalkMonths(d(2024, time.January, 1), d(2024, time.February, 1))

	first, ok := walk.Next()
	require.True(t, ok)

	walk.Reset()
	again, ok := walk.Next()
	require.True(t, ok)
	assert.Equal(t, first, again)
}

func TestWalkMonths_EmptyWhenEndBeforeStart(t *testing.T) {
	walk := billing.WalkMonths(d(2024, time.May, 1), d(2024, time.January, 1))
	_, ok := walk.Next()
	assert.False(t, ok)
}

func TestWalkMonths_YearBoundary(t *testing.T) {
	walk := billing.WalkMonths(d(2023, time.November, 20), d(2024, time.February, 5))

	var keys []billing.MonthKey
	for m, ok := walk.Next(); ok; m, ok = walk.Next() {
		keys = append(keys, billing.MonthOf(m))
	}
	assert.Equal(t, []billing.MonthKey{"2023-11", "2023-12", "2024-01", "2024-02"}, keys)
}

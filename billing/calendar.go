/*
calendar.go - Civil-date and month-bucket utilities for the billing engine

PURPOSE:
  Every billing decision in this system is made at day granularity: a charge
  belongs to a calendar month, falls due on a specific day, and is overdue
  strictly after that day has passed. This file provides the small date
  vocabulary the generator is built on.

KEY CONCEPTS:
  - Date:      A civil date (no time of day, always UTC)
  - MonthKey:  A "YYYY-MM" month bucket used as part of transaction identity
  - MonthWalk: A finite, restartable walk over first-of-month dates

CLAMPING:
  Contracts store a payment day 1..31. Not every month has that day, so the
  due date clamps to the last calendar day of the month (Feb 28/29, Apr 30).
  An out-of-range or unparseable payment day degrades to end of month rather
  than failing the whole billing run.

SEE ALSO:
  - contract.go: Financial terms resolved against month boundaries
  - generator.go: The monthly walk driving transaction generation
*/
package billing

import (
	"time"
)

// =============================================================================
// DATE - Civil date at day granularity
// =============================================================================

// Date is a calendar day in UTC. The zero Date means "unknown" and never
// matches any billing period.
type Date struct {
	Time time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an arbitrary timestamp to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar day. The engine never calls this; the
// reference day is always injected so generation stays testable.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses "YYYY-MM-DD". A malformed string yields the zero Date,
// which callers treat as missing coverage rather than an error; the overall
// billing run must not abort on one bad contract field.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Comparison (day granularity, time of day ignored)
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return DateOf(d.Time.AddDate(0, 0, n)) }
func (d Date) AddMonths(n int) Date { return DateOf(d.Time.AddDate(0, n, 0)) }
func (d Date) AddYears(n int) Date  { return DateOf(d.Time.AddDate(n, 0, 0)) }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) String() string { return d.normalize().Format(dateLayout) }

// Min returns the earlier of two dates.
func (d Date) Min(other Date) Date {
	if other.Before(d) {
		return other
	}
	return d
}

// IsPastDue reports whether a due date has passed relative to a reference
// day. Strict less-than: a charge due today is not yet overdue.
func IsPastDue(due, reference Date) bool {
	return due.Before(reference)
}

// =============================================================================
// MONTH KEY - "YYYY-MM" bucket
// =============================================================================

// MonthKey identifies a calendar month ("2024-03"). It is one third of a
// transaction's identity, so its format must stay stable.
type MonthKey string

func (k MonthKey) String() string { return string(k) }

// MonthOf returns the month bucket containing the date.
func MonthOf(d Date) MonthKey {
	return MonthKey(d.normalize().Format("2006-01"))
}

// StartOfMonth floors a date to the first of its month.
func StartOfMonth(d Date) Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// EndOfMonth returns the last calendar day of the date's month.
func EndOfMonth(d Date) Date {
	return NewDate(d.Year(), d.Month()+1, 1).AddDays(-1)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return EndOfMonth(NewDate(year, month, 1)).Day()
}

// ClampPaymentDay returns the day-th of the month, clamped to the month's
// last day when the configured day does not exist (31st in April, 30th in
// February). A day outside 1..31 also degrades to end of month.
func ClampPaymentDay(year int, month time.Month, day int) Date {
	last := DaysInMonth(year, month)
	if day < 1 || day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// =============================================================================
// MONTH WALK - Finite, restartable iteration over month starts
// =============================================================================

// MonthWalk yields the first-of-month date for every calendar month from
// start's month through end's month inclusive. Callers bound end (the
// generator caps it at a fixed horizon), so the walk always terminates.
type MonthWalk struct {
	start   Date
	end     Date
	current Date
}

// WalkMonths creates a walk over [start's month, end's month].
func WalkMonths(start, end Date) *MonthWalk {
	w := &MonthWalk{start: StartOfMonth(start), end: end}
	w.Reset()
	return w
}

// Next returns the next month start, or false when the walk is exhausted.
func (w *MonthWalk) Next() (Date, bool) {
	if w.current.After(w.end) {
		return Date{}, false
	}
	m := w.current
	w.current = w.current.AddMonths(1)
	return m, true
}

// Reset rewinds the walk to its first month.
func (w *MonthWalk) Reset() {
	w.current = w.start
}

// Package schedule computes next trigger times from declarative schedule
// specs. Calculations are pure: no I/O, no shared state, and they never
// fail. Anything unresolvable falls back to the default interval, so a bad
// spec can degrade a timer's cadence but never stall the scheduler.
package schedule

import (
	"time"

	"github.com/scarramanga/StackMotive-V12-sub006/internal/models"
)

// DefaultFallbackInterval applies when a calculator is constructed without
// an explicit one.
const DefaultFallbackInterval = 24 * time.Hour

// ExpressionEvaluator resolves custom recurrence expressions. The calculator
// stores and forwards expressions verbatim; it never parses them itself.
type ExpressionEvaluator interface {
	Next(expression string, from time.Time) (time.Time, error)
}

type Calculator struct {
	// FallbackInterval backs unknown specs and custom expressions when
	// Expressions is nil or rejects the expression.
	FallbackInterval time.Duration

	MarketCloseHour   int
	MarketCloseMinute int

	Expressions ExpressionEvaluator
}

// Next returns the first occurrence of spec strictly after from.
func (c *Calculator) Next(spec models.ScheduleSpec, from time.Time) time.Time {
	switch spec.Type {
	case models.ScheduleFixedInterval:
		if spec.IntervalMs <= 0 {
			return from.Add(c.fallback())
		}
		return from.Add(time.Duration(spec.IntervalMs) * time.Millisecond)

	case models.ScheduleDaily:
		return nextDaily(from, spec.Hour, spec.Minute)

	case models.ScheduleWeekly:
		return nextWeekly(from, time.Weekday(spec.DayOfWeek), spec.Hour, spec.Minute)

	case models.ScheduleMonthly:
		return nextMonthly(from, spec.DayOfMonth, spec.Hour, spec.Minute)

	case models.ScheduleMarketClose:
		// Next calendar day at the exchange-close anchor, regardless of
		// whether today's close is still ahead.
		d := from.AddDate(0, 0, 1)
		return time.Date(d.Year(), d.Month(), d.Day(), c.MarketCloseHour, c.MarketCloseMinute, 0, 0, from.Location())

	case models.ScheduleCustom:
		if c.Expressions != nil && spec.Expression != "" {
			next, err := c.Expressions.Next(spec.Expression, from)
			if err == nil && next.After(from) {
				return next
			}
		}
		return from.Add(c.fallback())

	default:
		return from.Add(c.fallback())
	}
}

func (c *Calculator) fallback() time.Duration {
	if c == nil || c.FallbackInterval <= 0 {
		return DefaultFallbackInterval
	}
	return c.FallbackInterval
}

func nextDaily(from time.Time, hour, minute int) time.Time {
	candidate := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())
	if !candidate.After(from) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// nextWeekly always looks at least one day ahead: recomputing right after a
// fire on the target weekday must land on next week, never "today".
func nextWeekly(from time.Time, day time.Weekday, hour, minute int) time.Time {
	daysAhead := int(day-from.Weekday()+7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	d := from.AddDate(0, 0, daysAhead)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, from.Location())
}

// nextMonthly advances one calendar month and clamps day-of-month overflow
// to the target month's last day (day 31 in February fires on the 28th or
// 29th, it does not roll into March).
func nextMonthly(from time.Time, dayOfMonth, hour, minute int) time.Time {
	year, month := from.Year(), from.Month()+1
	if month > time.December {
		month = time.January
		year++
	}
	if last := daysInMonth(year, month); dayOfMonth > last {
		dayOfMonth = last
	}
	if dayOfMonth < 1 {
		dayOfMonth = 1
	}
	return time.Date(year, month, dayOfMonth, hour, minute, 0, 0, from.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the following month normalizes to this month's last day.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

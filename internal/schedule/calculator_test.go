package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/scarramanga/StackMotive-V12-sub006/internal/models"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

func TestNext_FixedInterval(t *testing.T) {
	calc := &Calculator{}
	from := mustParse(t, "2026-03-10T09:00:00Z")
	next := calc.Next(models.ScheduleSpec{Type: models.ScheduleFixedInterval, IntervalMs: 3_600_000}, from)
	if want := from.Add(time.Hour); !next.Equal(want) {
		t.Fatalf("next=%s want=%s", next, want)
	}
}

func TestNext_FixedIntervalNonPositiveFallsBack(t *testing.T) {
	calc := &Calculator{FallbackInterval: 6 * time.Hour}
	from := mustParse(t, "2026-03-10T09:00:00Z")
	next := calc.Next(models.ScheduleSpec{Type: models.ScheduleFixedInterval, IntervalMs: 0}, from)
	if want := from.Add(6 * time.Hour); !next.Equal(want) {
		t.Fatalf("next=%s want=%s", next, want)
	}
}

func TestNext_DailyBeforeAndAfterTarget(t *testing.T) {
	calc := &Calculator{}
	spec := models.ScheduleSpec{Type: models.ScheduleDaily, Hour: 14, Minute: 30}

	from := mustParse(t, "2026-03-10T09:00:00Z")
	next := calc.Next(spec, from)
	if want := mustParse(t, "2026-03-10T14:30:00Z"); !next.Equal(want) {
		t.Fatalf("before target: next=%s want=%s", next, want)
	}

	from = mustParse(t, "2026-03-10T15:00:00Z")
	next = calc.Next(spec, from)
	if want := mustParse(t, "2026-03-11T14:30:00Z"); !next.Equal(want) {
		t.Fatalf("after target: next=%s want=%s", next, want)
	}
}

func TestNext_DailyExactlyAtTargetAdvancesADay(t *testing.T) {
	calc := &Calculator{}
	from := mustParse(t, "2026-03-10T14:30:00Z")
	next := calc.Next(models.ScheduleSpec{Type: models.ScheduleDaily, Hour: 14, Minute: 30}, from)
	if want := mustParse(t, "2026-03-11T14:30:00Z"); !next.Equal(want) {
		t.Fatalf("next=%s want=%s", next, want)
	}
}

func TestNext_WeeklySameWeekdayGoesToNextWeek(t *testing.T) {
	calc := &Calculator{}
	// 2026-03-10 is a Tuesday.
	from := mustParse(t, "2026-03-10T08:00:00Z")
	spec := models.ScheduleSpec{Type: models.ScheduleWeekly, DayOfWeek: int(time.Tuesday), Hour: 9, Minute: 0}
	next := calc.Next(spec, from)
	if want := mustParse(t, "2026-03-17T09:00:00Z"); !next.Equal(want) {
		t.Fatalf("next=%s want=%s", next, want)
	}
}

func TestNext_WeeklyLaterWeekday(t *testing.T) {
	calc := &Calculator{}
	from := mustParse(t, "2026-03-10T08:00:00Z")
	spec := models.ScheduleSpec{Type: models.ScheduleWeekly, DayOfWeek: int(time.Friday), Hour: 9, Minute: 0}
	next := calc.Next(spec, from)
	if want := mustParse(t, "2026-03-13T09:00:00Z"); !next.Equal(want) {
		t.Fatalf("next=%s want=%s", next, want)
	}
}

func TestNext_MonthlyClampsShortMonth(t *testing.T) {
	calc := &Calculator{}
	// Advancing from January 31 lands in February, which has no day 31.
	from := mustParse(t, "2026-01-31T10:00:00Z")
	spec := models.ScheduleSpec{Type: models.ScheduleMonthly, DayOfMonth: 31, Hour: 10, Minute: 0}
	next := calc.Next(spec, from)
	if want := mustParse(t, "2026-02-28T10:00:00Z"); !next.Equal(want) {
		t.Fatalf("next=%s want=%s", next, want)
	}
}

func TestNext_MonthlyLeapFebruary(t *testing.T) {
	calc := &Calculator{}
	from := mustParse(t, "2028-01-31T10:00:00Z")
	spec := models.ScheduleSpec{Type: models.ScheduleMonthly, DayOfMonth: 30, Hour: 10, Minute: 0}
	next := calc.Next(spec, from)
	if want := mustParse(t, "2028-02-29T10:00:00Z"); !next.Equal(want) {
		t.Fatalf("next=%s want=%s", next, want)
	}
}

func TestNext_MonthlyDecemberWraps(t *testing.T) {
	calc := &Calculator{}
	from := mustParse(t, "2026-12-15T10:00:00Z")
	spec := models.ScheduleSpec{Type: models.ScheduleMonthly, DayOfMonth: 15, Hour: 10, Minute: 0}
	next := calc.Next(spec, from)
	if want := mustParse(t, "2027-01-15T10:00:00Z"); !next.Equal(want) {
		t.Fatalf("next=%s want=%s", next, want)
	}
}

func TestNext_MarketCloseAlwaysNextDay(t *testing.T) {
	calc := &Calculator{MarketCloseHour: 16, MarketCloseMinute: 0}
	// Morning: today's close is still ahead, but the anchor is next day.
	from := mustParse(t, "2026-03-10T09:00:00Z")
	next := calc.Next(models.ScheduleSpec{Type: models.ScheduleMarketClose}, from)
	if want := mustParse(t, "2026-03-11T16:00:00Z"); !next.Equal(want) {
		t.Fatalf("next=%s want=%s", next, want)
	}
}

type stubEvaluator struct {
	next time.Time
	err  error
}

func (s *stubEvaluator) Next(expression string, from time.Time) (time.Time, error) {
	return s.next, s.err
}

func TestNext_CustomUsesEvaluator(t *testing.T) {
	from := mustParse(t, "2026-03-10T09:00:00Z")
	want := mustParse(t, "2026-03-10T12:00:00Z")
	calc := &Calculator{Expressions: &stubEvaluator{next: want}}
	next := calc.Next(models.ScheduleSpec{Type: models.ScheduleCustom, Expression: "0 12 * * *"}, from)
	if !next.Equal(want) {
		t.Fatalf("next=%s want=%s", next, want)
	}
}

func TestNext_CustomEvaluatorErrorFallsBack(t *testing.T) {
	from := mustParse(t, "2026-03-10T09:00:00Z")
	calc := &Calculator{
		FallbackInterval: 2 * time.Hour,
		Expressions:      &stubEvaluator{err: errors.New("bad expression")},
	}
	next := calc.Next(models.ScheduleSpec{Type: models.ScheduleCustom, Expression: "nonsense"}, from)
	if want := from.Add(2 * time.Hour); !next.Equal(want) {
		t.Fatalf("next=%s want=%s", next, want)
	}
}

func TestNext_CustomEvaluatorPastResultFallsBack(t *testing.T) {
	from := mustParse(t, "2026-03-10T09:00:00Z")
	calc := &Calculator{Expressions: &stubEvaluator{next: from.Add(-time.Hour)}}
	next := calc.Next(models.ScheduleSpec{Type: models.ScheduleCustom, Expression: "0 12 * * *"}, from)
	if want := from.Add(DefaultFallbackInterval); !next.Equal(want) {
		t.Fatalf("next=%s want=%s", next, want)
	}
}

func TestNext_UnknownTypeFallsBack(t *testing.T) {
	calc := &Calculator{}
	from := mustParse(t, "2026-03-10T09:00:00Z")
	next := calc.Next(models.ScheduleSpec{Type: "lunar"}, from)
	if want := from.Add(DefaultFallbackInterval); !next.Equal(want) {
		t.Fatalf("next=%s want=%s", next, want)
	}
}

// Recomputing from each result must keep moving strictly forward for every
// schedule type; a stuck calculation would pin a timer to one instant.
func TestNext_StrictlyAdvancesOnRepeatedRecompute(t *testing.T) {
	calc := &Calculator{MarketCloseHour: 16}
	specs := []models.ScheduleSpec{
		{Type: models.ScheduleFixedInterval, IntervalMs: 60_000},
		{Type: models.ScheduleDaily, Hour: 14, Minute: 30},
		{Type: models.ScheduleWeekly, DayOfWeek: int(time.Monday), Hour: 9},
		{Type: models.ScheduleMonthly, DayOfMonth: 31, Hour: 10},
		{Type: models.ScheduleMarketClose},
	}
	for _, spec := range specs {
		cur := mustParse(t, "2026-01-31T10:00:00Z")
		for i := 0; i < 8; i++ {
			next := calc.Next(spec, cur)
			if !next.After(cur) {
				t.Fatalf("type=%s iteration=%d next=%s not after %s", spec.Type, i, next, cur)
			}
			cur = next
		}
	}
}

func TestCronEvaluator_Next(t *testing.T) {
	eval := NewCronEvaluator()
	from := mustParse(t, "2026-03-10T09:15:00Z")
	next, err := eval.Next("0 12 * * *", from)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if want := mustParse(t, "2026-03-10T12:00:00Z"); !next.Equal(want) {
		t.Fatalf("next=%s want=%s", next, want)
	}
}

func TestCronEvaluator_Invalid(t *testing.T) {
	eval := NewCronEvaluator()
	if _, err := eval.Next("not a cron line", time.Now()); err == nil {
		t.Fatalf("want error for invalid expression")
	}
}

package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ScheduleType string

const (
	ScheduleFixedInterval ScheduleType = "fixed_interval"
	ScheduleDaily         ScheduleType = "daily"
	ScheduleWeekly        ScheduleType = "weekly"
	ScheduleMonthly       ScheduleType = "monthly"
	ScheduleMarketClose   ScheduleType = "market_close"
	ScheduleCustom        ScheduleType = "custom"
)

// ScheduleSpec is the declarative recurrence rule attached to a timer.
// Only the fields relevant to Type are meaningful; the rest stay zero.
// Custom expressions are stored verbatim and handed to the expression
// evaluator; nothing here parses them.
type ScheduleSpec struct {
	Type ScheduleType `json:"type"`

	IntervalMs int64 `json:"interval_ms,omitempty"`

	Hour   int `json:"hour,omitempty"`
	Minute int `json:"minute,omitempty"`

	DayOfWeek  int `json:"day_of_week,omitempty"`
	DayOfMonth int `json:"day_of_month,omitempty"`

	Expression string `json:"expression,omitempty"`
}

// Validate rejects malformed specs at the API boundary, before any state
// is written.
func (s ScheduleSpec) Validate() error {
	switch s.Type {
	case ScheduleFixedInterval:
		if s.IntervalMs <= 0 {
			return fmt.Errorf("fixed_interval: interval_ms must be positive, got %d", s.IntervalMs)
		}
	case ScheduleDaily:
		return validateClock(s.Hour, s.Minute)
	case ScheduleWeekly:
		if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
			return fmt.Errorf("weekly: day_of_week must be in [0,6], got %d", s.DayOfWeek)
		}
		return validateClock(s.Hour, s.Minute)
	case ScheduleMonthly:
		if s.DayOfMonth < 1 || s.DayOfMonth > 31 {
			return fmt.Errorf("monthly: day_of_month must be in [1,31], got %d", s.DayOfMonth)
		}
		return validateClock(s.Hour, s.Minute)
	case ScheduleMarketClose:
		// Close time is service configuration, nothing to validate per timer.
	case ScheduleCustom:
		if strings.TrimSpace(s.Expression) == "" {
			return fmt.Errorf("custom: expression required")
		}
	default:
		return fmt.Errorf("unknown schedule type %q", s.Type)
	}
	return nil
}

func validateClock(hour, minute int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("hour must be in [0,23], got %d", hour)
	}
	if minute < 0 || minute > 59 {
		return fmt.Errorf("minute must be in [0,59], got %d", minute)
	}
	return nil
}

func (s ScheduleSpec) MarshalBinary() ([]byte, error) {
	return json.Marshal(s)
}

// ParseScheduleSpec decodes and validates a stored or submitted spec.
func ParseScheduleSpec(raw []byte) (ScheduleSpec, error) {
	var s ScheduleSpec
	if err := json.Unmarshal(raw, &s); err != nil {
		return ScheduleSpec{}, err
	}
	if err := s.Validate(); err != nil {
		return ScheduleSpec{}, err
	}
	return s, nil
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// Timer is one configured recurring rebalance schedule bound to a strategy.
type Timer struct {
	ID         string `gorm:"type:varchar(36);primaryKey"`
	StrategyID string `gorm:"type:varchar(100);not null;index"`
	Name       string `gorm:"type:varchar(200);not null"`

	// Schedule holds the serialized ScheduleSpec.
	Schedule datatypes.JSON `gorm:"type:jsonb;not null"`

	OwnerID *string `gorm:"type:varchar(100);index"`

	IsActive bool `gorm:"not null;default:false;index"`

	// NextTrigger is non-null whenever IsActive is true. It is retained
	// (stale) after a stop so the UI can still display the last computed
	// occurrence.
	NextTrigger   *time.Time `gorm:"type:timestamptz;index"`
	LastTriggered *time.Time `gorm:"type:timestamptz"`
	TriggerCount  uint64     `gorm:"not null;default:0"`

	// Timestamps are set from the injected clock, not gorm auto-time, so
	// deterministic tests see them advance with the fake clock.
	CreatedAt time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

func (Timer) TableName() string {
	return "rebalance_timers"
}

// Spec decodes the stored schedule. Decode failures surface as an unknown
// spec, which the trigger calculator resolves with its fallback interval.
func (t *Timer) Spec() ScheduleSpec {
	var s ScheduleSpec
	if len(t.Schedule) == 0 {
		return s
	}
	s, _ = ParseScheduleSpec(t.Schedule)
	return s
}

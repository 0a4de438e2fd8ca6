package models

import (
	"time"

	"gorm.io/datatypes"
)

type AlertKind string

const (
	AlertScheduled AlertKind = "scheduled"
	AlertManual    AlertKind = "manual"
)

// Alert is the immutable record of one firing. Only the acknowledgement
// fields ever change after creation.
type Alert struct {
	ID         string    `gorm:"type:varchar(36);primaryKey"`
	TimerID    string    `gorm:"type:varchar(36);not null;index"`
	StrategyID string    `gorm:"type:varchar(100);not null;index"`
	Kind       AlertKind `gorm:"type:varchar(20);not null;index"`
	Reason     string    `gorm:"type:text"`

	// ScheduledFor is the nextTrigger the firing was computed against; set
	// for scheduled alerts only. Feeds the trigger-accuracy statistic.
	ScheduledFor *time.Time `gorm:"type:timestamptz"`

	Acknowledged   bool       `gorm:"not null;default:false;index"`
	AcknowledgedAt *time.Time `gorm:"type:timestamptz"`
	AcknowledgedBy *string    `gorm:"type:varchar(100)"`

	// Data is an informational snapshot (timer name, trigger count at firing,
	// computed next trigger). Never re-interpreted by the engine.
	Data datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;not null;index"`
}

func (Alert) TableName() string {
	return "rebalance_alerts"
}

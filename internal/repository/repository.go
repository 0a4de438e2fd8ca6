package repository

import (
	"context"
	"errors"
	"time"

	"github.com/scarramanga/StackMotive-V12-sub006/internal/models"
)

// ErrNotFound is returned by UpdateTimer when the id no longer exists.
// Lookups report absence as a nil pointer instead.
var ErrNotFound = errors.New("not found")

// Repository is the single serialized access point for timer, alert and rule
// state. Both the gorm and the in-memory backends satisfy it; no component
// mutates the collections directly.
type Repository interface {
	// Timers
	CreateTimer(ctx context.Context, item *models.Timer) error
	GetTimer(ctx context.Context, id string) (*models.Timer, error)
	ListTimers(ctx context.Context, params ListTimersParams) ([]models.Timer, error)
	CountTimers(ctx context.Context, params ListTimersParams) (int64, error)
	UpdateTimer(ctx context.Context, item *models.Timer) error
	DeleteTimer(ctx context.Context, id string) (bool, error)
	// ListDueTimers returns active timers whose next trigger is at or before
	// now, ordered by next trigger ascending.
	ListDueTimers(ctx context.Context, now time.Time) ([]models.Timer, error)
	// ListUpcomingTimers returns active timers due in (now, until], ordered
	// by next trigger ascending.
	ListUpcomingTimers(ctx context.Context, now, until time.Time, limit int) ([]models.Timer, error)
	SumTriggerCounts(ctx context.Context) (int64, error)

	// Alerts
	InsertAlert(ctx context.Context, item *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	ListAlerts(ctx context.Context, params ListAlertsParams) ([]models.Alert, error)
	CountAlerts(ctx context.Context, params ListAlertsParams) (int64, error)
	AcknowledgeAlert(ctx context.Context, id string, by *string, at time.Time) (bool, error)

	// Rules
	UpsertRule(ctx context.Context, item *models.Rule) error
	GetRule(ctx context.Context, id string) (*models.Rule, error)
	ListRules(ctx context.Context) ([]models.Rule, error)
	DeleteRule(ctx context.Context, id string) (bool, error)
}

type ListTimersParams struct {
	Limit      int
	Offset     int
	StrategyID *string
	Active     *bool
	OwnerID    *string
}

type ListAlertsParams struct {
	Limit        int
	Offset       int
	TimerID      *string
	StrategyID   *string
	Kind         *models.AlertKind
	Acknowledged *bool
	Since        *time.Time
}

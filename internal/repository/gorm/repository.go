package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scarramanga/StackMotive-V12-sub006/internal/models"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- timers -----------------------------------------------------------------

func (s *Store) CreateTimer(ctx context.Context, item *models.Timer) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetTimer(ctx context.Context, id string) (*models.Timer, error) {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return nil, nil
	}
	var item models.Timer
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTimers(ctx context.Context, params repository.ListTimersParams) ([]models.Timer, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyTimerFilters(s.db.WithContext(ctx).Model(&models.Timer{}), params)
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Timer
	if err := query.Order("created_at asc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTimers(ctx context.Context, params repository.ListTimersParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int64
	err := applyTimerFilters(s.db.WithContext(ctx).Model(&models.Timer{}), params).Count(&n).Error
	return n, err
}

func applyTimerFilters(query *gorm.DB, params repository.ListTimersParams) *gorm.DB {
	if params.StrategyID != nil && strings.TrimSpace(*params.StrategyID) != "" {
		query = query.Where("strategy_id = ?", strings.TrimSpace(*params.StrategyID))
	}
	if params.Active != nil {
		query = query.Where("is_active = ?", *params.Active)
	}
	if params.OwnerID != nil && strings.TrimSpace(*params.OwnerID) != "" {
		query = query.Where("owner_id = ?", strings.TrimSpace(*params.OwnerID))
	}
	return query
}

func (s *Store) UpdateTimer(ctx context.Context, item *models.Timer) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	// Save with Select("*") so cleared optionals (next_trigger) persist as NULL.
	res := s.db.WithContext(ctx).Model(&models.Timer{}).
		Where("id = ?", item.ID).
		Select("*").Omit("id", "created_at").
		Updates(item)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTimer(ctx context.Context, id string) (bool, error) {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return false, nil
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Timer{})
	return res.RowsAffected > 0, res.Error
}

func (s *Store) ListDueTimers(ctx context.Context, now time.Time) ([]models.Timer, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Timer
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("next_trigger IS NOT NULL").
		Where("next_trigger <= ?", now).
		Order("next_trigger asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListUpcomingTimers(ctx context.Context, now, until time.Time, limit int) ([]models.Timer, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 200)
	var items []models.Timer
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("next_trigger IS NOT NULL").
		Where("next_trigger > ?", now).
		Where("next_trigger <= ?", until).
		Order("next_trigger asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SumTriggerCounts(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total *int64
	err := s.db.WithContext(ctx).Model(&models.Timer{}).
		Select("SUM(trigger_count)").Scan(&total).Error
	if err != nil || total == nil {
		return 0, err
	}
	return *total, nil
}

// --- alerts -----------------------------------------------------------------

func (s *Store) InsertAlert(ctx context.Context, item *models.Alert) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return nil, nil
	}
	var item models.Alert
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAlerts(ctx context.Context, params repository.ListAlertsParams) ([]models.Alert, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyAlertFilters(s.db.WithContext(ctx).Model(&models.Alert{}), params)
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Alert
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountAlerts(ctx context.Context, params repository.ListAlertsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int64
	err := applyAlertFilters(s.db.WithContext(ctx).Model(&models.Alert{}), params).Count(&n).Error
	return n, err
}

func applyAlertFilters(query *gorm.DB, params repository.ListAlertsParams) *gorm.DB {
	if params.TimerID != nil && strings.TrimSpace(*params.TimerID) != "" {
		query = query.Where("timer_id = ?", strings.TrimSpace(*params.TimerID))
	}
	if params.StrategyID != nil && strings.TrimSpace(*params.StrategyID) != "" {
		query = query.Where("strategy_id = ?", strings.TrimSpace(*params.StrategyID))
	}
	if params.Kind != nil && *params.Kind != "" {
		query = query.Where("kind = ?", *params.Kind)
	}
	if params.Acknowledged != nil {
		query = query.Where("acknowledged = ?", *params.Acknowledged)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	return query
}

func (s *Store) AcknowledgeAlert(ctx context.Context, id string, by *string, at time.Time) (bool, error) {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Alert{}).
		Where("id = ?", id).
		Where("acknowledged = ?", false).
		Updates(map[string]any{
			"acknowledged":    true,
			"acknowledged_at": at,
			"acknowledged_by": by,
		})
	return res.RowsAffected > 0, res.Error
}

// --- rules ------------------------------------------------------------------

func (s *Store) UpsertRule(ctx context.Context, item *models.Rule) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"enabled",
			"position",
			"conditions",
			"actions",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetRule(ctx context.Context, id string) (*models.Rule, error) {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return nil, nil
	}
	var item models.Rule
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListRules(ctx context.Context) ([]models.Rule, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Rule
	if err := s.db.WithContext(ctx).
		Model(&models.Rule{}).
		Order("position asc, created_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteRule(ctx context.Context, id string) (bool, error) {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return false, nil
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Rule{})
	return res.RowsAffected > 0, res.Error
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 || limit > 1000 {
		return fallback
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

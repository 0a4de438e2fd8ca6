// Package memoryrepository is the map-backed storage backend. It satisfies
// the same contract and invariants as the gorm backend and is the default
// for tests and DSN-less deployments.
package memoryrepository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/scarramanga/StackMotive-V12-sub006/internal/models"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/repository"
)

type Store struct {
	mu     sync.RWMutex
	timers map[string]models.Timer
	alerts map[string]models.Alert
	rules  map[string]models.Rule
}

func New() *Store {
	return &Store{
		timers: make(map[string]models.Timer),
		alerts: make(map[string]models.Alert),
		rules:  make(map[string]models.Rule),
	}
}

// --- timers -----------------------------------------------------------------

func (s *Store) CreateTimer(ctx context.Context, item *models.Timer) error {
	if s == nil || item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[item.ID] = *item
	return nil
}

func (s *Store) GetTimer(ctx context.Context, id string) (*models.Timer, error) {
	if s == nil || strings.TrimSpace(id) == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.timers[id]
	if !ok {
		return nil, nil
	}
	out := item
	return &out, nil
}

func (s *Store) ListTimers(ctx context.Context, params repository.ListTimersParams) ([]models.Timer, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []models.Timer
	for _, t := range s.timers {
		if !timerMatches(t, params) {
			continue
		}
		items = append(items, t)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return paginateTimers(items, params.Limit, params.Offset), nil
}

func (s *Store) CountTimers(ctx context.Context, params repository.ListTimersParams) (int64, error) {
	if s == nil {
		return 0, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, t := range s.timers {
		if timerMatches(t, params) {
			n++
		}
	}
	return n, nil
}

func timerMatches(t models.Timer, params repository.ListTimersParams) bool {
	if params.StrategyID != nil && *params.StrategyID != "" && t.StrategyID != *params.StrategyID {
		return false
	}
	if params.Active != nil && t.IsActive != *params.Active {
		return false
	}
	if params.OwnerID != nil && *params.OwnerID != "" {
		if t.OwnerID == nil || *t.OwnerID != *params.OwnerID {
			return false
		}
	}
	return true
}

func paginateTimers(items []models.Timer, limit, offset int) []models.Timer {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (s *Store) UpdateTimer(ctx context.Context, item *models.Timer) error {
	if s == nil || item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[item.ID]; !ok {
		return repository.ErrNotFound
	}
	s.timers[item.ID] = *item
	return nil
}

func (s *Store) DeleteTimer(ctx context.Context, id string) (bool, error) {
	if s == nil || strings.TrimSpace(id) == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[id]; !ok {
		return false, nil
	}
	delete(s.timers, id)
	return true, nil
}

func (s *Store) ListDueTimers(ctx context.Context, now time.Time) ([]models.Timer, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []models.Timer
	for _, t := range s.timers {
		if !t.IsActive || t.NextTrigger == nil {
			continue
		}
		if t.NextTrigger.After(now) {
			continue
		}
		items = append(items, t)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].NextTrigger.Before(*items[j].NextTrigger) })
	return items, nil
}

func (s *Store) ListUpcomingTimers(ctx context.Context, now, until time.Time, limit int) ([]models.Timer, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []models.Timer
	for _, t := range s.timers {
		if !t.IsActive || t.NextTrigger == nil {
			continue
		}
		if !t.NextTrigger.After(now) || t.NextTrigger.After(until) {
			continue
		}
		items = append(items, t)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].NextTrigger.Before(*items[j].NextTrigger) })
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) SumTriggerCounts(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, t := range s.timers {
		total += int64(t.TriggerCount)
	}
	return total, nil
}

// --- alerts -----------------------------------------------------------------

func (s *Store) InsertAlert(ctx context.Context, item *models.Alert) error {
	if s == nil || item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[item.ID] = *item
	return nil
}

func (s *Store) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	if s == nil || strings.TrimSpace(id) == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.alerts[id]
	if !ok {
		return nil, nil
	}
	out := item
	return &out, nil
}

func (s *Store) ListAlerts(ctx context.Context, params repository.ListAlertsParams) ([]models.Alert, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []models.Alert
	for _, a := range s.alerts {
		if !alertMatches(a, params) {
			continue
		}
		items = append(items, a)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	if params.Offset > 0 {
		if params.Offset >= len(items) {
			return nil, nil
		}
		items = items[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(items) {
		items = items[:params.Limit]
	}
	return items, nil
}

func (s *Store) CountAlerts(ctx context.Context, params repository.ListAlertsParams) (int64, error) {
	if s == nil {
		return 0, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, a := range s.alerts {
		if alertMatches(a, params) {
			n++
		}
	}
	return n, nil
}

func alertMatches(a models.Alert, params repository.ListAlertsParams) bool {
	if params.TimerID != nil && *params.TimerID != "" && a.TimerID != *params.TimerID {
		return false
	}
	if params.StrategyID != nil && *params.StrategyID != "" && a.StrategyID != *params.StrategyID {
		return false
	}
	if params.Kind != nil && *params.Kind != "" && a.Kind != *params.Kind {
		return false
	}
	if params.Acknowledged != nil && a.Acknowledged != *params.Acknowledged {
		return false
	}
	if params.Since != nil && a.CreatedAt.Before(*params.Since) {
		return false
	}
	return true
}

func (s *Store) AcknowledgeAlert(ctx context.Context, id string, by *string, at time.Time) (bool, error) {
	if s == nil || strings.TrimSpace(id) == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.alerts[id]
	if !ok || item.Acknowledged {
		return false, nil
	}
	item.Acknowledged = true
	item.AcknowledgedAt = &at
	item.AcknowledgedBy = by
	s.alerts[id] = item
	return true, nil
}

// --- rules ------------------------------------------------------------------

func (s *Store) UpsertRule(ctx context.Context, item *models.Rule) error {
	if s == nil || item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[item.ID] = *item
	return nil
}

func (s *Store) GetRule(ctx context.Context, id string) (*models.Rule, error) {
	if s == nil || strings.TrimSpace(id) == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.rules[id]
	if !ok {
		return nil, nil
	}
	out := item
	return &out, nil
}

func (s *Store) ListRules(ctx context.Context) ([]models.Rule, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		items = append(items, r)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Position != items[j].Position {
			return items[i].Position < items[j].Position
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) DeleteRule(ctx context.Context, id string) (bool, error) {
	if s == nil || strings.TrimSpace(id) == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return false, nil
	}
	delete(s.rules, id)
	return true, nil
}

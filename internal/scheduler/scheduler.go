// Package scheduler drives the timer lifecycle: arming per-timer wake-ups,
// sweeping for due timers, and funneling both detection paths through one
// serialized firing routine so a due interval fires exactly once.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/scarramanga/StackMotive-V12-sub006/internal/clock"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/models"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/repository"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/schedule"
)

// ErrInvalidSchedule marks a malformed schedule spec rejected at the API
// boundary before any state mutation.
var ErrInvalidSchedule = errors.New("invalid schedule")

// AlertSink records a firing. Implemented by the alert package.
type AlertSink interface {
	Fire(ctx context.Context, timer *models.Timer, kind models.AlertKind, reason string, scheduledFor *time.Time) (*models.Alert, error)
}

type Scheduler struct {
	repo   repository.Repository
	calc   *schedule.Calculator
	sink   AlertSink
	clk    clock.Clock
	logger *zap.Logger

	scanInterval time.Duration
	baseCtx      context.Context

	mu      sync.Mutex
	wakeups map[string]*time.Timer

	// fireHook runs between a firing's commit and its re-arm step; set by
	// tests to interleave Stop/Delete with an in-flight firing.
	fireHook func(timerID string)
}

func New(repo repository.Repository, calc *schedule.Calculator, sink AlertSink, clk clock.Clock, logger *zap.Logger, scanInterval time.Duration) *Scheduler {
	if clk == nil {
		clk = clock.System()
	}
	if scanInterval <= 0 {
		scanInterval = time.Minute
	}
	return &Scheduler{
		repo:         repo,
		calc:         calc,
		sink:         sink,
		clk:          clk,
		logger:       logger,
		scanInterval: scanInterval,
		baseCtx:      context.Background(),
		wakeups:      make(map[string]*time.Timer),
	}
}

type CreateTimerInput struct {
	StrategyID string
	Name       string
	Schedule   models.ScheduleSpec
	OwnerID    *string
}

type UpdateTimerInput struct {
	Name       *string
	StrategyID *string
	OwnerID    *string
	Schedule   *models.ScheduleSpec
}

// CreateTimer stores a new, inactive timer. The next trigger is computed
// immediately so callers can preview it before starting.
func (s *Scheduler) CreateTimer(ctx context.Context, in CreateTimerInput) (*models.Timer, error) {
	if err := in.Schedule.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	raw, err := in.Schedule.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	now := s.clk.Now()
	next := s.calc.Next(in.Schedule, now)
	item := &models.Timer{
		ID:          uuid.New().String(),
		StrategyID:  in.StrategyID,
		Name:        in.Name,
		Schedule:    datatypes.JSON(raw),
		OwnerID:     in.OwnerID,
		IsActive:    false,
		NextTrigger: &next,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateTimer(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// StartTimer activates a timer and arms its wake-up. Starting an already
// active timer is a no-op success and does not double-arm.
func (s *Scheduler) StartTimer(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.repo.GetTimer(ctx, id)
	if err != nil || item == nil {
		return false, err
	}
	if item.IsActive {
		if _, armed := s.wakeups[id]; !armed && item.NextTrigger != nil {
			s.armLocked(id, *item.NextTrigger)
		}
		return true, nil
	}

	now := s.clk.Now()
	// A stale preview from before a long inactive stretch would fire
	// immediately; recompute so the active invariant (next trigger at or
	// after now) holds.
	if item.NextTrigger == nil || !item.NextTrigger.After(now) {
		next := s.calc.Next(item.Spec(), now)
		item.NextTrigger = &next
	}
	item.IsActive = true
	item.UpdatedAt = now
	if err := s.repo.UpdateTimer(ctx, item); err != nil {
		return false, err
	}
	s.armLocked(id, *item.NextTrigger)
	return true, nil
}

// StopTimer deactivates a timer and disarms its wake-up. The stored next
// trigger is kept for display. Idempotent.
func (s *Scheduler) StopTimer(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(ctx, id)
}

func (s *Scheduler) stopLocked(ctx context.Context, id string) (bool, error) {
	item, err := s.repo.GetTimer(ctx, id)
	if err != nil || item == nil {
		return false, err
	}
	s.disarmLocked(id)
	if !item.IsActive {
		return true, nil
	}
	item.IsActive = false
	item.UpdatedAt = s.clk.Now()
	if err := s.repo.UpdateTimer(ctx, item); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateTimer applies metadata or schedule changes. It never flips the
// active state, but an active timer is internally stopped and restarted so
// a schedule change re-arms immediately.
func (s *Scheduler) UpdateTimer(ctx context.Context, id string, in UpdateTimerInput) (bool, error) {
	if in.Schedule != nil {
		if err := in.Schedule.Validate(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.repo.GetTimer(ctx, id)
	if err != nil || item == nil {
		return false, err
	}

	wasActive := item.IsActive
	if wasActive {
		s.disarmLocked(id)
	}

	if in.Name != nil {
		item.Name = *in.Name
	}
	if in.StrategyID != nil {
		item.StrategyID = *in.StrategyID
	}
	if in.OwnerID != nil {
		item.OwnerID = in.OwnerID
	}
	now := s.clk.Now()
	if in.Schedule != nil {
		raw, err := in.Schedule.MarshalBinary()
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
		item.Schedule = datatypes.JSON(raw)
		next := s.calc.Next(*in.Schedule, now)
		item.NextTrigger = &next
	}
	item.UpdatedAt = now

	if err := s.repo.UpdateTimer(ctx, item); err != nil {
		return false, err
	}
	if wasActive && item.NextTrigger != nil {
		s.armLocked(id, *item.NextTrigger)
	}
	return true, nil
}

// DeleteTimer removes the timer and its wake-up atomically: once this
// returns, no firing for the id can be observed.
func (s *Scheduler) DeleteTimer(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarmLocked(id)
	return s.repo.DeleteTimer(ctx, id)
}

// TriggerManually fires a timer on demand. Returns nil without error when
// the id does not exist.
func (s *Scheduler) TriggerManually(ctx context.Context, id, reason string) (*models.Alert, error) {
	if reason == "" {
		reason = "manual trigger"
	}
	return s.fire(ctx, id, models.AlertManual, reason)
}

// Run re-arms wake-ups for all active timers, then sweeps for due timers at
// the scan cadence until ctx is done. The sweep recovers firings whose
// wake-up never ran (process suspension, missed ticks).
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.rearmAll(ctx)

	t := time.NewTicker(s.scanInterval)
	defer t.Stop()
	for {
		if err := s.DueScan(ctx); err != nil && s.logger != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("due scan failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// DueScan fires every active timer whose next trigger has passed. Firing
// errors are logged per timer; the sweep itself only fails when the listing
// does.
func (s *Scheduler) DueScan(ctx context.Context) error {
	due, err := s.repo.ListDueTimers(ctx, s.clk.Now())
	if err != nil {
		return err
	}
	for _, item := range due {
		if _, err := s.fire(ctx, item.ID, models.AlertScheduled, "scheduled trigger"); err != nil {
			if s.logger != nil {
				s.logger.Warn("scheduled firing failed, will retry on next scan",
					zap.String("timer_id", item.ID), zap.Error(err))
			}
		}
	}
	return nil
}

func (s *Scheduler) rearmAll(ctx context.Context) {
	active := true
	items, err := s.repo.ListTimers(ctx, repository.ListTimersParams{Active: &active, Limit: 1000})
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("wake-up recovery listing failed", zap.Error(err))
		}
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		if item.NextTrigger != nil {
			s.armLocked(item.ID, *item.NextTrigger)
		}
	}
}

// fire is the single firing routine shared by wake-ups, the due-scan and
// manual triggers. Scheduled firings re-check due-ness under the lock, so
// whichever path loses the race becomes a no-op rather than a double fire.
func (s *Scheduler) fire(ctx context.Context, id string, kind models.AlertKind, reason string) (*models.Alert, error) {
	s.mu.Lock()
	item, err := s.repo.GetTimer(ctx, id)
	if err != nil || item == nil {
		s.mu.Unlock()
		return nil, err
	}
	now := s.clk.Now()

	var scheduledFor *time.Time
	if kind == models.AlertScheduled {
		if !item.IsActive || item.NextTrigger == nil || item.NextTrigger.After(now) {
			s.mu.Unlock()
			return nil, nil
		}
		due := *item.NextTrigger
		scheduledFor = &due
	}

	// Commit point: the next trigger is recomputed from the firing time,
	// not the previous one, so a dormant timer fires once instead of
	// replaying every missed interval.
	item.LastTriggered = &now
	item.TriggerCount++
	next := s.calc.Next(item.Spec(), now)
	item.NextTrigger = &next
	item.UpdatedAt = now
	if err := s.repo.UpdateTimer(ctx, item); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	if s.fireHook != nil {
		s.fireHook(id)
	}

	alertItem, sinkErr := s.sink.Fire(ctx, item, kind, reason, scheduledFor)
	if sinkErr != nil && s.logger != nil {
		s.logger.Error("alert sink failed after firing commit",
			zap.String("timer_id", id), zap.Error(sinkErr))
	}

	// Re-arm only if the store still reports the timer active; a Stop or
	// Delete that landed during the firing wins here.
	s.mu.Lock()
	cur, err := s.repo.GetTimer(ctx, id)
	if err == nil && cur != nil && cur.IsActive && cur.NextTrigger != nil {
		s.armLocked(id, *cur.NextTrigger)
	} else {
		s.disarmLocked(id)
	}
	s.mu.Unlock()

	return alertItem, sinkErr
}

func (s *Scheduler) armLocked(id string, at time.Time) {
	if prev, ok := s.wakeups[id]; ok {
		prev.Stop()
	}
	d := at.Sub(s.clk.Now())
	if d < 0 {
		d = 0
	}
	s.wakeups[id] = time.AfterFunc(d, func() {
		s.onWakeup(id)
	})
}

func (s *Scheduler) disarmLocked(id string) {
	if prev, ok := s.wakeups[id]; ok {
		prev.Stop()
		delete(s.wakeups, id)
	}
}

func (s *Scheduler) onWakeup(id string) {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	if _, err := s.fire(ctx, id, models.AlertScheduled, "scheduled trigger"); err != nil {
		if s.logger != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("wake-up firing failed, due-scan will retry",
				zap.String("timer_id", id), zap.Error(err))
		}
	}
}

// Package alert records firings as alert rows and hands them to the
// delivery channel. An alert is always committed once a firing reaches the
// sink; rule outcomes and delivery failures can only decorate it, never
// roll it back.
package alert

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/scarramanga/StackMotive-V12-sub006/internal/clock"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/models"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/repository"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/rule"
)

// Notifier delivers a committed alert to an external channel. Delivery is
// best-effort from the sink's perspective.
type Notifier interface {
	Deliver(ctx context.Context, item *models.Alert) error
}

// PortfolioValuer resolves the current valuation of a strategy's portfolio
// for rule conditions. Implemented elsewhere; nil means valuation unknown.
type PortfolioValuer interface {
	Value(ctx context.Context, strategyID string) (decimal.Decimal, error)
}

type Sink struct {
	Repo     repository.Repository
	Rules    *rule.Engine
	Notifier Notifier
	Valuer   PortfolioValuer
	Clock    clock.Clock
	Logger   *zap.Logger
}

// Fire records one firing of timer. The timer has already been advanced by
// the scheduler, so scheduledFor carries the due time the firing was
// detected against (nil for manual triggers). For scheduled firings the
// rule outcome may auto-acknowledge the alert or suppress delivery; manual
// firings are evaluated for logging only and always produce a delivered
// alert.
func (s *Sink) Fire(ctx context.Context, timer *models.Timer, kind models.AlertKind, reason string, scheduledFor *time.Time) (*models.Alert, error) {
	now := s.now()

	item := &models.Alert{
		ID:           uuid.New().String(),
		TimerID:      timer.ID,
		StrategyID:   timer.StrategyID,
		Kind:         kind,
		Reason:       reason,
		ScheduledFor: scheduledFor,
		CreatedAt:    now,
	}
	item.Data = snapshot(timer)

	outcome := s.evaluateRules(ctx, timer, kind)
	if kind == models.AlertScheduled && outcome.AutoAcknowledge {
		item.Acknowledged = true
		item.AcknowledgedAt = &now
	}

	if err := s.Repo.InsertAlert(ctx, item); err != nil {
		return nil, err
	}

	suppress := kind == models.AlertScheduled && outcome.SuppressDelivery
	if s.Notifier != nil && !suppress {
		if err := s.Notifier.Deliver(ctx, item); err != nil && s.Logger != nil {
			// Non-fatal: the alert row is already committed.
			s.Logger.Warn("alert delivery failed",
				zap.String("alert_id", item.ID),
				zap.String("timer_id", timer.ID),
				zap.Error(err))
		}
	}
	return item, nil
}

func (s *Sink) evaluateRules(ctx context.Context, timer *models.Timer, kind models.AlertKind) rule.Outcome {
	if s.Rules == nil {
		return rule.Outcome{}
	}
	rules, err := s.Repo.ListRules(ctx)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("rule load failed, firing ungated", zap.Error(err))
		}
		return rule.Outcome{}
	}
	if len(rules) == 0 {
		return rule.Outcome{}
	}

	cand := rule.Candidate{
		TimerID:    timer.ID,
		StrategyID: timer.StrategyID,
		Kind:       kind,
	}
	if s.Valuer != nil {
		if v, err := s.Valuer.Value(ctx, timer.StrategyID); err == nil {
			cand.PortfolioValue = &v
		} else if s.Logger != nil {
			s.Logger.Warn("portfolio valuation failed", zap.String("strategy_id", timer.StrategyID), zap.Error(err))
		}
	}

	outcome := s.Rules.Evaluate(cand, rules)
	if kind == models.AlertManual {
		// Manual triggers are human-requested: log the matches, apply nothing.
		if len(outcome.Matched) > 0 && s.Logger != nil {
			s.Logger.Info("rules matched manual trigger (not applied)",
				zap.String("timer_id", timer.ID),
				zap.Strings("rules", outcome.Matched))
		}
		return rule.Outcome{}
	}
	return outcome
}

func snapshot(timer *models.Timer) datatypes.JSON {
	snap := map[string]any{
		"timer_name":    timer.Name,
		"trigger_count": timer.TriggerCount,
	}
	if timer.NextTrigger != nil {
		snap["next_trigger"] = timer.NextTrigger.Format(time.RFC3339)
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func (s *Sink) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now().UTC()
}

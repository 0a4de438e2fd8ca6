// Package stats aggregates read-only figures over timer and alert state for
// dashboards. Nothing here mutates; every figure can be recomputed freely.
package stats

import (
	"context"
	"time"

	"github.com/scarramanga/StackMotive-V12-sub006/internal/clock"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/models"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/repository"
)

type Provider struct {
	Repo  repository.Repository
	Clock clock.Clock

	// AccuracyTolerance is the max delay between a scheduled alert's
	// computed trigger time and its creation for the firing to count as
	// on time.
	AccuracyTolerance time.Duration
	// TrailingWindow bounds the recent-alert count and the accuracy sample.
	TrailingWindow time.Duration
}

type Snapshot struct {
	TotalTimers     int64   `json:"total_timers"`
	ActiveTimers    int64   `json:"active_timers"`
	TotalTriggers   int64   `json:"total_triggers"`
	RecentAlerts    int64   `json:"recent_alerts"`
	UnackedAlerts   int64   `json:"unacked_alerts"`
	TriggerAccuracy float64 `json:"trigger_accuracy"`
}

type UpcomingTrigger struct {
	Timer       models.Timer `json:"timer"`
	TriggerTime time.Time    `json:"trigger_time"`
}

func (p *Provider) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	now := p.now()

	total, err := p.Repo.CountTimers(ctx, repository.ListTimersParams{})
	if err != nil {
		return snap, err
	}
	active := true
	activeCount, err := p.Repo.CountTimers(ctx, repository.ListTimersParams{Active: &active})
	if err != nil {
		return snap, err
	}
	triggers, err := p.Repo.SumTriggerCounts(ctx)
	if err != nil {
		return snap, err
	}

	since := now.Add(-p.window())
	recent, err := p.Repo.CountAlerts(ctx, repository.ListAlertsParams{Since: &since})
	if err != nil {
		return snap, err
	}
	unacked := false
	pending, err := p.Repo.CountAlerts(ctx, repository.ListAlertsParams{Acknowledged: &unacked})
	if err != nil {
		return snap, err
	}
	accuracy, err := p.triggerAccuracy(ctx, since)
	if err != nil {
		return snap, err
	}

	snap.TotalTimers = total
	snap.ActiveTimers = activeCount
	snap.TotalTriggers = triggers
	snap.RecentAlerts = recent
	snap.UnackedAlerts = pending
	snap.TriggerAccuracy = accuracy
	return snap, nil
}

// triggerAccuracy is the ratio of recent scheduled firings whose alert was
// created within the tolerance of its computed trigger time. 1.0 when there
// is no sample yet.
func (p *Provider) triggerAccuracy(ctx context.Context, since time.Time) (float64, error) {
	kind := models.AlertScheduled
	items, err := p.Repo.ListAlerts(ctx, repository.ListAlertsParams{
		Kind:  &kind,
		Since: &since,
		Limit: 1000,
	})
	if err != nil {
		return 0, err
	}
	tolerance := p.AccuracyTolerance
	if tolerance <= 0 {
		tolerance = 2 * time.Minute
	}
	var sampled, onTime int
	for _, a := range items {
		if a.ScheduledFor == nil {
			continue
		}
		sampled++
		delay := a.CreatedAt.Sub(*a.ScheduledFor)
		if delay < 0 {
			delay = -delay
		}
		if delay <= tolerance {
			onTime++
		}
	}
	if sampled == 0 {
		return 1.0, nil
	}
	return float64(onTime) / float64(sampled), nil
}

// ListUpcoming returns active timers due within the next days, ascending by
// trigger time.
func (p *Provider) ListUpcoming(ctx context.Context, days int) ([]UpcomingTrigger, error) {
	if days <= 0 {
		days = 7
	}
	now := p.now()
	until := now.AddDate(0, 0, days)
	items, err := p.Repo.ListUpcomingTimers(ctx, now, until, 0)
	if err != nil {
		return nil, err
	}
	out := make([]UpcomingTrigger, 0, len(items))
	for _, t := range items {
		if t.NextTrigger == nil {
			continue
		}
		out = append(out, UpcomingTrigger{Timer: t, TriggerTime: *t.NextTrigger})
	}
	return out, nil
}

func (p *Provider) now() time.Time {
	if p.Clock != nil {
		return p.Clock.Now()
	}
	return time.Now().UTC()
}

func (p *Provider) window() time.Duration {
	if p.TrailingWindow <= 0 {
		return 24 * time.Hour
	}
	return p.TrailingWindow
}

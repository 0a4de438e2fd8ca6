package memoryrepository

import (
	"context"
	"testing"
	"time"

	"github.com/scarramanga/StackMotive-V12-sub006/internal/models"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/repository"
)

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	out, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return out
}

func TestUpdateTimer_MissingReturnsNotFound(t *testing.T) {
	s := New()
	err := s.UpdateTimer(context.Background(), &models.Timer{ID: "ghost"})
	if err != repository.ErrNotFound {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
}

func TestListDueTimers_FiltersInactiveAndFuture(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := ts(t, "2026-03-10T09:00:00Z")
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	_ = s.CreateTimer(ctx, &models.Timer{ID: "due", IsActive: true, NextTrigger: &past})
	_ = s.CreateTimer(ctx, &models.Timer{ID: "exact", IsActive: true, NextTrigger: &now})
	_ = s.CreateTimer(ctx, &models.Timer{ID: "future", IsActive: true, NextTrigger: &future})
	_ = s.CreateTimer(ctx, &models.Timer{ID: "stopped", IsActive: false, NextTrigger: &past})
	_ = s.CreateTimer(ctx, &models.Timer{ID: "unset", IsActive: true})

	items, err := s.ListDueTimers(ctx, now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len=%d want 2 (due + exact)", len(items))
	}
	if items[0].ID != "due" || items[1].ID != "exact" {
		t.Fatalf("order=[%s %s] want [due exact]", items[0].ID, items[1].ID)
	}
}

func TestListTimers_Filters(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := "alex"
	_ = s.CreateTimer(ctx, &models.Timer{ID: "t1", StrategyID: "growth", IsActive: true, OwnerID: &owner})
	_ = s.CreateTimer(ctx, &models.Timer{ID: "t2", StrategyID: "income", IsActive: false})

	strategy := "growth"
	items, err := s.ListTimers(ctx, repository.ListTimersParams{StrategyID: &strategy})
	if err != nil || len(items) != 1 || items[0].ID != "t1" {
		t.Fatalf("strategy filter: items=%+v err=%v", items, err)
	}

	active := false
	items, err = s.ListTimers(ctx, repository.ListTimersParams{Active: &active})
	if err != nil || len(items) != 1 || items[0].ID != "t2" {
		t.Fatalf("active filter: items=%+v err=%v", items, err)
	}

	items, err = s.ListTimers(ctx, repository.ListTimersParams{OwnerID: &owner})
	if err != nil || len(items) != 1 || items[0].ID != "t1" {
		t.Fatalf("owner filter: items=%+v err=%v", items, err)
	}
}

func TestAcknowledgeAlert_OnlyOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.InsertAlert(ctx, &models.Alert{ID: "a1", TimerID: "t1"})

	by := "ops"
	at := ts(t, "2026-03-10T09:00:00Z")
	ok, err := s.AcknowledgeAlert(ctx, "a1", &by, at)
	if err != nil || !ok {
		t.Fatalf("first ack: ok=%v err=%v", ok, err)
	}
	ok, err = s.AcknowledgeAlert(ctx, "a1", &by, at)
	if err != nil || ok {
		t.Fatalf("second ack: ok=%v err=%v want false", ok, err)
	}

	stored, _ := s.GetAlert(ctx, "a1")
	if !stored.Acknowledged || stored.AcknowledgedBy == nil || *stored.AcknowledgedBy != "ops" {
		t.Fatalf("stored=%+v", stored)
	}
}

func TestGetTimer_ReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.CreateTimer(ctx, &models.Timer{ID: "t1", Name: "original"})

	got, _ := s.GetTimer(ctx, "t1")
	got.Name = "mutated"

	again, _ := s.GetTimer(ctx, "t1")
	if again.Name != "original" {
		t.Fatalf("stored record mutated through returned pointer")
	}
}

func TestListUpcomingTimers_WindowAndLimit(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := ts(t, "2026-03-10T09:00:00Z")
	until := now.AddDate(0, 0, 7)
	a := now.Add(1 * time.Hour)
	b := now.Add(2 * time.Hour)
	c := now.AddDate(0, 0, 8)
	_ = s.CreateTimer(ctx, &models.Timer{ID: "b", IsActive: true, NextTrigger: &b})
	_ = s.CreateTimer(ctx, &models.Timer{ID: "a", IsActive: true, NextTrigger: &a})
	_ = s.CreateTimer(ctx, &models.Timer{ID: "c", IsActive: true, NextTrigger: &c})

	items, err := s.ListUpcomingTimers(ctx, now, until, 1)
	if err != nil {
		t.Fatalf("list upcoming: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Fatalf("items=%+v want just a", items)
	}
}

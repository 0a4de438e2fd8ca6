package alert

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/scarramanga/StackMotive-V12-sub006/internal/models"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/repository"
	memoryrepository "github.com/scarramanga/StackMotive-V12-sub006/internal/repository/memory"
	"github.com/scarramanga/StackMotive-V12-sub006/internal/rule"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type stubNotifier struct {
	mu        sync.Mutex
	delivered []string
	err       error
}

func (n *stubNotifier) Deliver(ctx context.Context, item *models.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.delivered = append(n.delivered, item.ID)
	return nil
}

type stubValuer struct {
	value decimal.Decimal
	err   error
}

func (v *stubValuer) Value(ctx context.Context, strategyID string) (decimal.Decimal, error) {
	return v.value, v.err
}

func testTimer() *models.Timer {
	return &models.Timer{
		ID:         "t1",
		StrategyID: "growth",
		Name:       "hourly",
	}
}

func newTestSink(t *testing.T) (*Sink, repository.Repository, *stubNotifier) {
	t.Helper()
	base, err := time.Parse(time.RFC3339, "2026-03-10T09:00:00Z")
	if err != nil {
		t.Fatalf("parse base time: %v", err)
	}
	repo := memoryrepository.New()
	n := &stubNotifier{}
	return &Sink{
		Repo:     repo,
		Rules:    &rule.Engine{},
		Notifier: n,
		Clock:    fixedClock{t: base},
	}, repo, n
}

func seedRule(t *testing.T, repo repository.Repository, name string, conds *models.RuleConditions, actions models.RuleActions) {
	t.Helper()
	r := &models.Rule{ID: name, Name: name, Enabled: true}
	if conds != nil {
		raw, err := json.Marshal(conds)
		if err != nil {
			t.Fatalf("marshal conditions: %v", err)
		}
		r.Conditions = datatypes.JSON(raw)
	}
	raw, err := json.Marshal(actions)
	if err != nil {
		t.Fatalf("marshal actions: %v", err)
	}
	r.Actions = datatypes.JSON(raw)
	if err := repo.UpsertRule(context.Background(), r); err != nil {
		t.Fatalf("seed rule: %v", err)
	}
}

func boolPtr(v bool) *bool { return &v }

func TestFire_CommitsAndDelivers(t *testing.T) {
	s, repo, n := newTestSink(t)
	ctx := context.Background()
	due := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	item, err := s.Fire(ctx, testTimer(), models.AlertScheduled, "scheduled trigger", &due)
	if err != nil {
		t.Fatalf("fire: %v", err)
	}
	stored, err := repo.GetAlert(ctx, item.ID)
	if err != nil || stored == nil {
		t.Fatalf("alert not committed: %v", err)
	}
	if stored.Kind != models.AlertScheduled || stored.Reason != "scheduled trigger" {
		t.Fatalf("stored=%+v", stored)
	}
	if stored.ScheduledFor == nil || !stored.ScheduledFor.Equal(due) {
		t.Fatalf("scheduled_for=%v want %s", stored.ScheduledFor, due)
	}
	if len(n.delivered) != 1 || n.delivered[0] != item.ID {
		t.Fatalf("delivered=%v", n.delivered)
	}
}

func TestFire_NotifierFailureIsNonFatal(t *testing.T) {
	s, repo, n := newTestSink(t)
	n.err = errors.New("webhook down")
	ctx := context.Background()

	item, err := s.Fire(ctx, testTimer(), models.AlertScheduled, "scheduled trigger", nil)
	if err != nil {
		t.Fatalf("fire must not fail on delivery error: %v", err)
	}
	if stored, _ := repo.GetAlert(ctx, item.ID); stored == nil {
		t.Fatalf("alert missing despite delivery failure")
	}
}

func TestFire_SuppressDeliveryStillCommits(t *testing.T) {
	s, repo, n := newTestSink(t)
	ctx := context.Background()
	seedRule(t, repo, "quiet", nil, models.RuleActions{SuppressDelivery: boolPtr(true)})

	item, err := s.Fire(ctx, testTimer(), models.AlertScheduled, "scheduled trigger", nil)
	if err != nil {
		t.Fatalf("fire: %v", err)
	}
	if stored, _ := repo.GetAlert(ctx, item.ID); stored == nil {
		t.Fatalf("suppression must not skip the commit")
	}
	if len(n.delivered) != 0 {
		t.Fatalf("delivered=%v want none", n.delivered)
	}
}

func TestFire_AutoAcknowledge(t *testing.T) {
	s, repo, _ := newTestSink(t)
	ctx := context.Background()
	seedRule(t, repo, "auto-ack", nil, models.RuleActions{AutoAcknowledge: boolPtr(true)})

	item, err := s.Fire(ctx, testTimer(), models.AlertScheduled, "scheduled trigger", nil)
	if err != nil {
		t.Fatalf("fire: %v", err)
	}
	stored, _ := repo.GetAlert(ctx, item.ID)
	if !stored.Acknowledged || stored.AcknowledgedAt == nil {
		t.Fatalf("stored=%+v want acknowledged", stored)
	}
}

func TestFire_ManualIgnoresRuleActions(t *testing.T) {
	s, repo, n := newTestSink(t)
	ctx := context.Background()
	seedRule(t, repo, "gate-everything", nil, models.RuleActions{
		AutoAcknowledge:  boolPtr(true),
		SuppressDelivery: boolPtr(true),
	})

	item, err := s.Fire(ctx, testTimer(), models.AlertManual, "operator request", nil)
	if err != nil {
		t.Fatalf("fire: %v", err)
	}
	stored, _ := repo.GetAlert(ctx, item.ID)
	if stored.Acknowledged {
		t.Fatalf("manual alert auto-acknowledged")
	}
	if len(n.delivered) != 1 {
		t.Fatalf("delivered=%v want the manual alert", n.delivered)
	}
}

func TestFire_ValuerFeedsConditions(t *testing.T) {
	s, repo, n := newTestSink(t)
	ctx := context.Background()
	min := decimal.NewFromInt(1000)
	seedRule(t, repo, "big-book-quiet", &models.RuleConditions{MinPortfolioValue: &min},
		models.RuleActions{SuppressDelivery: boolPtr(true)})

	// Below the threshold: the rule does not match, delivery proceeds.
	s.Valuer = &stubValuer{value: decimal.NewFromInt(500)}
	if _, err := s.Fire(ctx, testTimer(), models.AlertScheduled, "scheduled trigger", nil); err != nil {
		t.Fatalf("fire: %v", err)
	}
	if len(n.delivered) != 1 {
		t.Fatalf("delivered=%v want 1", n.delivered)
	}

	// Above the threshold: suppressed.
	s.Valuer = &stubValuer{value: decimal.NewFromInt(5000)}
	if _, err := s.Fire(ctx, testTimer(), models.AlertScheduled, "scheduled trigger", nil); err != nil {
		t.Fatalf("fire: %v", err)
	}
	if len(n.delivered) != 1 {
		t.Fatalf("delivered=%v still want 1", n.delivered)
	}
}

func TestFire_ValuerErrorFailsClosed(t *testing.T) {
	s, repo, n := newTestSink(t)
	ctx := context.Background()
	min := decimal.NewFromInt(1000)
	seedRule(t, repo, "big-book-quiet", &models.RuleConditions{MinPortfolioValue: &min},
		models.RuleActions{SuppressDelivery: boolPtr(true)})
	s.Valuer = &stubValuer{err: errors.New("pricing feed down")}

	if _, err := s.Fire(ctx, testTimer(), models.AlertScheduled, "scheduled trigger", nil); err != nil {
		t.Fatalf("fire: %v", err)
	}
	// Unknown valuation means the condition cannot hold, so no suppression.
	if len(n.delivered) != 1 {
		t.Fatalf("delivered=%v want 1", n.delivered)
	}
}

func TestFire_SnapshotData(t *testing.T) {
	s, repo, _ := newTestSink(t)
	ctx := context.Background()
	timer := testTimer()
	timer.TriggerCount = 3

	item, err := s.Fire(ctx, timer, models.AlertScheduled, "scheduled trigger", nil)
	if err != nil {
		t.Fatalf("fire: %v", err)
	}
	stored, _ := repo.GetAlert(ctx, item.ID)
	var data map[string]any
	if err := json.Unmarshal(stored.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["timer_name"] != "hourly" {
		t.Fatalf("data=%v", data)
	}
	if data["trigger_count"] != float64(3) {
		t.Fatalf("trigger_count=%v want 3", data["trigger_count"])
	}
}

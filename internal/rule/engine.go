// Package rule evaluates declarative eligibility rules against a candidate
// firing. Evaluation is pure and non-blocking; the alert sink decides what
// to do with the outcome.
package rule

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/scarramanga/StackMotive-V12-sub006/internal/models"
)

// Candidate describes one firing about to be recorded. Nil fields mean the
// corresponding fact is unknown; conditions on unknown facts fail closed.
type Candidate struct {
	TimerID        string
	StrategyID     string
	Kind           models.AlertKind
	PortfolioValue *decimal.Decimal
	RiskLevel      *int
}

// Outcome is the merged result of applying matching rules' actions in rule
// order. A later rule overrides an earlier auto-acknowledge or suppression.
type Outcome struct {
	Matched          []string
	AutoAcknowledge  bool
	SuppressDelivery bool
	NotifyChannels   []string
}

type Engine struct {
	Logger *zap.Logger
}

// Evaluate applies every enabled rule whose conditions all hold. Rules are
// conjunctive; a rule without conditions matches whenever enabled.
func (e *Engine) Evaluate(cand Candidate, rules []models.Rule) Outcome {
	var out Outcome
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		conds, ok := decodeConditions(r, e.Logger)
		if !ok {
			continue
		}
		if !conditionsHold(conds, cand) {
			continue
		}
		out.Matched = append(out.Matched, r.Name)
		actions, ok := decodeActions(r, e.Logger)
		if !ok {
			continue
		}
		if actions.AutoAcknowledge != nil {
			out.AutoAcknowledge = *actions.AutoAcknowledge
		}
		if actions.SuppressDelivery != nil {
			out.SuppressDelivery = *actions.SuppressDelivery
		}
		if actions.NotifyChannel != "" {
			out.NotifyChannels = append(out.NotifyChannels, actions.NotifyChannel)
		}
	}
	return out
}

func conditionsHold(c models.RuleConditions, cand Candidate) bool {
	if c.MinPortfolioValue != nil {
		if cand.PortfolioValue == nil || cand.PortfolioValue.LessThan(*c.MinPortfolioValue) {
			return false
		}
	}
	if c.MaxPortfolioValue != nil {
		if cand.PortfolioValue == nil || cand.PortfolioValue.GreaterThan(*c.MaxPortfolioValue) {
			return false
		}
	}
	if c.MinRiskLevel != nil {
		if cand.RiskLevel == nil || *cand.RiskLevel < *c.MinRiskLevel {
			return false
		}
	}
	if c.MaxRiskLevel != nil {
		if cand.RiskLevel == nil || *cand.RiskLevel > *c.MaxRiskLevel {
			return false
		}
	}
	if len(c.StrategyIDs) > 0 && !contains(c.StrategyIDs, cand.StrategyID) {
		return false
	}
	if contains(c.ExcludeStrategies, cand.StrategyID) {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func decodeConditions(r models.Rule, logger *zap.Logger) (models.RuleConditions, bool) {
	var c models.RuleConditions
	if len(r.Conditions) == 0 {
		return c, true
	}
	if err := json.Unmarshal(r.Conditions, &c); err != nil {
		if logger != nil {
			logger.Warn("rule conditions malformed, skipping rule",
				zap.String("rule", r.Name), zap.Error(err))
		}
		return c, false
	}
	return c, true
}

func decodeActions(r models.Rule, logger *zap.Logger) (models.RuleActions, bool) {
	var a models.RuleActions
	if len(r.Actions) == 0 {
		return a, true
	}
	if err := json.Unmarshal(r.Actions, &a); err != nil {
		if logger != nil {
			logger.Warn("rule actions malformed, ignoring actions",
				zap.String("rule", r.Name), zap.Error(err))
		}
		return a, false
	}
	return a, true
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Rule gates automatic firings. A rule matches when it is enabled and every
// present condition holds; matching rules' actions apply in list order.
type Rule struct {
	ID      string `gorm:"type:varchar(36);primaryKey"`
	Name    string `gorm:"type:varchar(200);not null"`
	Enabled bool   `gorm:"not null;default:false;index"`

	Position int `gorm:"not null;default:0;index"`

	Conditions datatypes.JSON `gorm:"type:jsonb"`
	Actions    datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

func (Rule) TableName() string {
	return "rebalance_rules"
}

// RuleConditions are conjunctive; a nil field means "no constraint".
type RuleConditions struct {
	MinPortfolioValue *decimal.Decimal `json:"min_portfolio_value,omitempty"`
	MaxPortfolioValue *decimal.Decimal `json:"max_portfolio_value,omitempty"`
	MinRiskLevel      *int             `json:"min_risk_level,omitempty"`
	MaxRiskLevel      *int             `json:"max_risk_level,omitempty"`
	StrategyIDs       []string         `json:"strategy_ids,omitempty"`
	ExcludeStrategies []string         `json:"exclude_strategies,omitempty"`
}

// RuleActions are side effects applied to the resulting alert. Pointer
// booleans let a later rule override an earlier one in either direction.
type RuleActions struct {
	AutoAcknowledge  *bool  `json:"auto_acknowledge,omitempty"`
	SuppressDelivery *bool  `json:"suppress_delivery,omitempty"`
	NotifyChannel    string `json:"notify_channel,omitempty"`
}

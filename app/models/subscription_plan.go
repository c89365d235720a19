package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// SubscriptionPlan is a catalog entry. Prices are stored in major currency units.
type SubscriptionPlan struct {
	ID           string            `gorm:"type:char(36);primaryKey" json:"id"`
	Name         string            `gorm:"type:varchar(100);not null;index" json:"name"`
	MonthlyPrice decimal.Decimal   `gorm:"type:decimal(12,2);not null;default:0" json:"monthly_price"`
	AnnualPrice  decimal.Decimal   `gorm:"type:decimal(12,2);not null;default:0" json:"annual_price"`
	Description  string            `gorm:"type:text" json:"description"`
	Features     datatypes.JSON    `gorm:"type:json" json:"features"`
	UsageLimits  datatypes.JSONMap `gorm:"type:json" json:"usage_limits"`
	IsActive     bool              `gorm:"default:true;index" json:"is_active"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName keeps the catalog table name used by the rest of the application.
func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

// PriceFor returns the plan price for the given billing cycle.
func (p *SubscriptionPlan) PriceFor(cycle string) decimal.Decimal {
	if cycle == BillingCycleAnnually {
		return p.AnnualPrice
	}
	return p.MonthlyPrice
}

// IsFree reports whether the plan costs nothing in either cycle.
func (p *SubscriptionPlan) IsFree() bool {
	return p.MonthlyPrice.IsZero() && p.AnnualPrice.IsZero()
}

// UsageLimit returns the cap for a resource type and whether one is configured.
// JSON numbers decode as float64, so both representations are accepted.
func (p *SubscriptionPlan) UsageLimit(resource string) (int, bool) {
	raw, ok := p.UsageLimits[resource]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

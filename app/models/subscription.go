package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription is the reconciled state of a user's billing relationship.
// At most one row exists per (user_id, provider_subscription_id).
type Subscription struct {
	ID                     string     `gorm:"type:char(36);primaryKey" json:"id"`
	UserID                 string     `gorm:"type:char(36);not null;index;index:ux_subscriptions_user_provider_sub,unique,priority:1" json:"user_id"`
	PlanID                 string     `gorm:"type:char(36);not null;index" json:"plan_id"`
	Status                 string     `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	CurrentPeriodStart     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	BillingCycle           string     `gorm:"type:varchar(16);not null;default:'monthly'" json:"billing_cycle"`
	CancelAtPeriodEnd      bool       `gorm:"default:false" json:"cancel_at_period_end"`
	TrialStart             *time.Time `gorm:"type:timestamp;default:null" json:"trial_start,omitempty"`
	TrialEnd               *time.Time `gorm:"type:timestamp;default:null" json:"trial_end,omitempty"`
	CanceledAt             *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	EndedAt                *time.Time `gorm:"type:timestamp;default:null" json:"ended_at,omitempty"`
	ProviderCustomerID     string     `gorm:"type:varchar(191);default:'';index" json:"provider_customer_id"`
	ProviderSubscriptionID string     `gorm:"type:varchar(191);not null;index;index:ux_subscriptions_user_provider_sub,unique,priority:2" json:"provider_subscription_id"`
	ProviderPriceID        string     `gorm:"type:varchar(191);default:''" json:"provider_price_id"`
	CreatedAt              time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when none is set.
func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// IsCanceled reports whether the row reached its terminal state.
func (s *Subscription) IsCanceled() bool {
	return s.Status == SubscriptionStatusCanceled
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BillingEvent is an append-only audit record of a financial occurrence.
// SubscriptionID stays nil when the owning subscription does not exist yet; it
// is backfilled once, after the subscription row is created.
type BillingEvent struct {
	ID              string            `gorm:"type:char(36);primaryKey" json:"id"`
	UserID          string            `gorm:"type:char(36);not null;index:idx_billing_events_user_type,priority:1" json:"user_id"`
	SubscriptionID  *string           `gorm:"type:char(36);default:null;index" json:"subscription_id"`
	EventType       string            `gorm:"type:varchar(50);not null;index:idx_billing_events_user_type,priority:2;index:ux_billing_events_external_type,unique,priority:2" json:"event_type"`
	Amount          *decimal.Decimal  `gorm:"type:decimal(12,2);default:null" json:"amount"`
	Currency        string            `gorm:"type:varchar(3);default:''" json:"currency"`
	Status          string            `gorm:"type:varchar(20);not null" json:"status"`
	ExternalEventID string            `gorm:"type:varchar(191);not null;index:ux_billing_events_external_type,unique,priority:1" json:"external_event_id"`
	Metadata        datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt       time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}

// BeforeCreate assigns a UUID primary key when none is set.
func (e *BillingEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

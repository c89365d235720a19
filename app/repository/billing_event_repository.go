package repository

import (
	"context"

	"github.com/ManuelReschke/freelancedesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// billingEventRepository implements the BillingEventRepository interface
type billingEventRepository struct {
	db *gorm.DB
}

// NewBillingEventRepository creates a new billing event repository instance
func NewBillingEventRepository(db *gorm.DB) BillingEventRepository {
	return &billingEventRepository{db: db}
}

// CreateIfNotExists appends the event unless one with the same
// (external_event_id, event_type) was already recorded.
func (r *billingEventRepository) CreateIfNotExists(ctx context.Context, event *models.BillingEvent) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "external_event_id"},
			{Name: "event_type"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// FindLatestUnlinked returns the newest event of the given type for the user
// that has no subscription yet.
func (r *billingEventRepository) FindLatestUnlinked(ctx context.Context, userID, eventType string) (*models.BillingEvent, error) {
	var event models.BillingEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND event_type = ? AND subscription_id IS NULL", userID, eventType).
		Order("created_at DESC").
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// LinkSubscription sets subscription_id on an event that is still unlinked.
// The write is conditional so an event is never relinked.
func (r *billingEventRepository) LinkSubscription(ctx context.Context, eventID, subscriptionID string) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.BillingEvent{}).
		Where("id = ? AND subscription_id IS NULL", eventID).
		Update("subscription_id", subscriptionID)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// ListByUser returns the user's billing events, newest first
func (r *billingEventRepository) ListByUser(ctx context.Context, userID string) ([]models.BillingEvent, error) {
	var events []models.BillingEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&events).Error
	return events, err
}

package repository

import (
	"context"

	"github.com/ManuelReschke/freelancedesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// GetByUserAndProviderID looks a subscription up by its natural key
func (r *subscriptionRepository) GetByUserAndProviderID(ctx context.Context, userID, providerSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider_subscription_id = ?", userID, providerSubscriptionID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByProviderID returns the newest row carrying the provider subscription reference
func (r *subscriptionRepository) GetByProviderID(ctx context.Context, providerSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("provider_subscription_id = ?", providerSubscriptionID).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateIfNotExists inserts the row unless one with the same (user_id,
// provider_subscription_id) exists. It returns whether a row was inserted and
// the stored row in both cases.
func (r *subscriptionRepository) CreateIfNotExists(ctx context.Context, sub *models.Subscription) (bool, *models.Subscription, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "provider_subscription_id"},
		},
		DoNothing: true,
	}).Create(sub)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	stored, err := r.GetByUserAndProviderID(ctx, sub.UserID, sub.ProviderSubscriptionID)
	if err != nil {
		return false, nil, err
	}
	return created, stored, nil
}

// Update saves all fields of an existing subscription
func (r *subscriptionRepository) Update(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

// UpdateStatus changes only the lifecycle status of a subscription
func (r *subscriptionRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// ListByUser returns all subscriptions of a user, newest first
func (r *subscriptionRepository) ListByUser(ctx context.Context, userID string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

// LatestCustomerID returns the provider customer reference of the user's most
// recent subscription that has one.
func (r *subscriptionRepository) LatestCustomerID(ctx context.Context, userID string) (string, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider_customer_id <> ''", userID).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return "", err
	}
	return sub.ProviderCustomerID, nil
}

package repository

import (
	"context"

	"github.com/ManuelReschke/freelancedesk/app/models"
	"gorm.io/gorm"
)

// planRepository implements the PlanRepository interface
type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository instance
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

// GetByID retrieves a plan by its ID
func (r *planRepository) GetByID(ctx context.Context, id string) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActive returns all active plans ordered by monthly price
func (r *planRepository) ListActive(ctx context.Context) ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("monthly_price ASC").
		Find(&plans).Error
	return plans, err
}

// FindFree returns the active zero-priced plan with the given name
func (r *planRepository) FindFree(ctx context.Context, name string) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	err := r.db.WithContext(ctx).
		Where("name = ? AND monthly_price = ? AND is_active = ?", name, 0, true).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

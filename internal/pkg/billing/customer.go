package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuelReschke/freelancedesk/app/models"
	"github.com/ManuelReschke/freelancedesk/app/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MetadataUserID is the metadata key linking provider objects to a local user.
const MetadataUserID = "user_id"

// CustomerResolver maps provider customers to local users.
type CustomerResolver struct {
	provider Provider
	subs     repository.SubscriptionRepository
	logger   *zap.Logger
}

func NewCustomerResolver(provider Provider, subs repository.SubscriptionRepository, logger *zap.Logger) *CustomerResolver {
	return &CustomerResolver{provider: provider, subs: subs, logger: orNop(logger)}
}

// ResolveUser returns the local user id stored on the provider customer.
func (r *CustomerResolver) ResolveUser(ctx context.Context, customerID string) (string, error) {
	if customerID == "" {
		return "", fmt.Errorf("%w: empty customer reference", ErrCustomerNotFound)
	}
	c, err := r.provider.GetCustomer(ctx, customerID)
	if err != nil {
		return "", err
	}
	if c == nil || c.Deleted {
		return "", fmt.Errorf("%w: %s", ErrCustomerNotFound, customerID)
	}
	userID := strings.TrimSpace(c.Metadata[MetadataUserID])
	if userID == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingUserLink, customerID)
	}
	return userID, nil
}

// EnsureCustomer returns the user's provider customer, creating one tagged
// with the user id when none is known or the known one was deleted.
func (r *CustomerResolver) EnsureCustomer(ctx context.Context, profile *models.Profile) (string, error) {
	known, err := r.subs.LatestCustomerID(ctx, profile.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	if known != "" {
		c, err := r.provider.GetCustomer(ctx, known)
		switch {
		case err == nil && c != nil && !c.Deleted:
			return c.ID, nil
		case err != nil && !errors.Is(err, ErrCustomerNotFound):
			return "", err
		}
		r.logger.Info("known billing customer is gone, creating a new one",
			zap.String("user_id", profile.ID), zap.String("customer_id", known))
	}

	c, err := r.provider.CreateCustomer(ctx, CustomerParams{
		Email:    profile.Email,
		Name:     profile.DisplayName(),
		Metadata: map[string]string{MetadataUserID: profile.ID},
	})
	if err != nil {
		return "", err
	}
	r.logger.Info("created billing customer", zap.String("user_id", profile.ID), zap.String("customer_id", c.ID))
	return c.ID, nil
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

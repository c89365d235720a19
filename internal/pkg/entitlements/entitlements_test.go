package entitlements

import (
	"testing"
	"time"

	"github.com/ManuelReschke/freelancedesk/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestCurrent(t *testing.T) {
	assert.Nil(t, Current(nil))

	now := time.Now()
	subs := []models.Subscription{
		{ID: "old", Status: models.SubscriptionStatusCanceled, CreatedAt: now.Add(-time.Hour)},
		{ID: "new", Status: models.SubscriptionStatusActive, CreatedAt: now},
		{ID: "older", Status: models.SubscriptionStatusActive, CreatedAt: now.Add(-2 * time.Hour)},
	}
	got := Current(subs)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.ID)
}

func TestCurrentSameInstantPrefersLiveRow(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, subs := range [][]models.Subscription{
		{
			{ID: "canceled", Status: models.SubscriptionStatusCanceled, CreatedAt: at},
			{ID: "fallback", Status: models.SubscriptionStatusActive, CreatedAt: at},
		},
		{
			{ID: "fallback", Status: models.SubscriptionStatusActive, CreatedAt: at},
			{ID: "canceled", Status: models.SubscriptionStatusCanceled, CreatedAt: at},
		},
	} {
		got := Current(subs)
		require.NotNil(t, got)
		assert.Equal(t, "fallback", got.ID)
	}
}

func TestIsEntitling(t *testing.T) {
	for _, status := range []string{"active", "trialing", "past_due"} {
		assert.True(t, IsEntitling(status), status)
	}
	for _, status := range []string{"canceled", "incomplete", "unpaid", ""} {
		assert.False(t, IsEntitling(status), status)
	}
}

func TestLimit(t *testing.T) {
	plan := &models.SubscriptionPlan{
		UsageLimits: datatypes.JSONMap{
			ResourceClients:  float64(3),
			ResourceProjects: 10,
			ResourceInvoices: float64(-1),
		},
	}

	assert.Equal(t, 3, Limit(plan, ResourceClients))
	assert.Equal(t, 10, Limit(plan, ResourceProjects))
	assert.Equal(t, Unlimited, Limit(plan, ResourceInvoices))
	assert.Equal(t, Unlimited, Limit(plan, ResourceProposals))
	assert.Equal(t, 0, Limit(nil, ResourceClients))

	limits := Limits(plan)
	assert.Len(t, limits, 4)
	assert.Equal(t, 3, limits[ResourceClients])
}

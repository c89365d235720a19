package repository

import (
	"context"
	"testing"
	"time"

	"github.com/ManuelReschke/freelancedesk/app/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Profile{},
		&models.SubscriptionPlan{},
		&models.Subscription{},
		&models.BillingEvent{},
		&models.BillingWebhookEvent{},
	))
	return db
}

func TestPlanRepository_ListActiveAndFindFree(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewPlanRepository(db)

	plans := []models.SubscriptionPlan{
		{ID: uuid.NewString(), Name: "Pro Plan", MonthlyPrice: decimal.NewFromInt(29), AnnualPrice: decimal.NewFromInt(290), IsActive: true},
		{ID: uuid.NewString(), Name: "Free", IsActive: true},
		{ID: uuid.NewString(), Name: "Legacy", MonthlyPrice: decimal.NewFromInt(5), IsActive: true},
	}
	require.NoError(t, db.Create(&plans).Error)
	require.NoError(t, db.Model(&models.SubscriptionPlan{}).Where("name = ?", "Legacy").Update("is_active", false).Error)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Free", active[0].Name)
	assert.Equal(t, "Pro Plan", active[1].Name)

	free, err := repo.FindFree(ctx, "Free")
	require.NoError(t, err)
	assert.True(t, free.IsFree())

	_, err = repo.FindFree(ctx, "Pro Plan")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubscriptionRepository_CreateIfNotExists(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository(newTestDB(t))

	userID := uuid.NewString()
	first := &models.Subscription{
		UserID:                 userID,
		PlanID:                 uuid.NewString(),
		Status:                 models.SubscriptionStatusActive,
		BillingCycle:           models.BillingCycleMonthly,
		ProviderCustomerID:     "cus_1",
		ProviderSubscriptionID: "sub_1",
	}
	created, stored, err := repo.CreateIfNotExists(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, first.ID, stored.ID)

	dup := &models.Subscription{
		UserID:                 userID,
		PlanID:                 uuid.NewString(),
		Status:                 models.SubscriptionStatusTrialing,
		BillingCycle:           models.BillingCycleAnnually,
		ProviderSubscriptionID: "sub_1",
	}
	created, stored, err = repo.CreateIfNotExists(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)

	subs, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestSubscriptionRepository_LookupsAndUpdates(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewSubscriptionRepository(db)
	userID := uuid.NewString()

	older := &models.Subscription{UserID: userID, PlanID: "p", Status: models.SubscriptionStatusCanceled, ProviderCustomerID: "cus_old", ProviderSubscriptionID: "sub_old"}
	require.NoError(t, db.Create(older).Error)
	require.NoError(t, db.Model(older).Update("created_at", time.Now().Add(-time.Hour)).Error)

	newer := &models.Subscription{UserID: userID, PlanID: "p", Status: models.SubscriptionStatusActive, ProviderSubscriptionID: "fallback:sub_old"}
	require.NoError(t, db.Create(newer).Error)

	customerID, err := repo.LatestCustomerID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "cus_old", customerID)

	_, err = repo.LatestCustomerID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	got, err := repo.GetByProviderID(ctx, "sub_old")
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID)

	require.NoError(t, repo.UpdateStatus(ctx, newer.ID, models.SubscriptionStatusPastDue))
	got, err = repo.GetByUserAndProviderID(ctx, userID, "fallback:sub_old")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusPastDue, got.Status)

	got.CancelAtPeriodEnd = true
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.GetByUserAndProviderID(ctx, userID, "fallback:sub_old")
	require.NoError(t, err)
	assert.True(t, got.CancelAtPeriodEnd)

	subs, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, newer.ID, subs[0].ID)
}

func TestBillingEventRepository_DedupAndBackfill(t *testing.T) {
	ctx := context.Background()
	repo := NewBillingEventRepository(newTestDB(t))
	userID := uuid.NewString()
	amount := decimal.RequireFromString("1500.00")

	event := &models.BillingEvent{
		UserID:          userID,
		EventType:       models.BillingEventSubscriptionCreated,
		Amount:          &amount,
		Currency:        "usd",
		Status:          models.BillingEventStatusSucceeded,
		ExternalEventID: "evt_1",
	}
	inserted, err := repo.CreateIfNotExists(ctx, event)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.CreateIfNotExists(ctx, &models.BillingEvent{
		UserID:          userID,
		EventType:       models.BillingEventSubscriptionCreated,
		Status:          models.BillingEventStatusSucceeded,
		ExternalEventID: "evt_1",
	})
	require.NoError(t, err)
	assert.False(t, inserted)

	unlinked, err := repo.FindLatestUnlinked(ctx, userID, models.BillingEventSubscriptionCreated)
	require.NoError(t, err)
	assert.Equal(t, event.ID, unlinked.ID)
	require.NotNil(t, unlinked.Amount)
	assert.True(t, amount.Equal(*unlinked.Amount))

	subID := uuid.NewString()
	linked, err := repo.LinkSubscription(ctx, unlinked.ID, subID)
	require.NoError(t, err)
	assert.True(t, linked)

	linked, err = repo.LinkSubscription(ctx, unlinked.ID, uuid.NewString())
	require.NoError(t, err)
	assert.False(t, linked)

	_, err = repo.FindLatestUnlinked(ctx, userID, models.BillingEventSubscriptionCreated)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	events, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].SubscriptionID)
	assert.Equal(t, subID, *events[0].SubscriptionID)
}

func TestWebhookEventRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewWebhookEventRepository(newTestDB(t))

	delivery := &models.BillingWebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: "evt_42",
		EventType:       "invoice.paid",
		PayloadJSON:     `{"id":"evt_42"}`,
		SignatureValid:  true,
	}
	created, stored, err := repo.CreateIfNotExists(ctx, delivery)
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, stored.Succeeded())

	created, again, err := repo.CreateIfNotExists(ctx, &models.BillingWebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: "evt_42",
		EventType:       "invoice.paid",
		PayloadJSON:     `{}`,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.ID, again.ID)

	require.NoError(t, repo.MarkProcessed(ctx, stored.ID, "boom"))
	failed, err := repo.ListFailed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].Attempts)

	require.NoError(t, repo.MarkProcessed(ctx, stored.ID, ""))
	got, err := repo.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.True(t, got.Succeeded())
	assert.Equal(t, 2, got.Attempts)

	failed, err = repo.ListFailed(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

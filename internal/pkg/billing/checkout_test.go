package billing

import (
	"context"
	"testing"

	"github.com/ManuelReschke/freelancedesk/app/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCheckoutSession_NewCustomer(t *testing.T) {
	f := newFixture(t)

	session, err := f.svc.CreateCheckoutSession(context.Background(), CheckoutRequest{
		UserID:       f.userID,
		PlanID:       f.pro.ID,
		BillingCycle: models.BillingCycleAnnually,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.URL)

	require.Len(t, f.provider.created, 1)
	assert.Equal(t, "jane@example.com", f.provider.created[0].Email)
	assert.Equal(t, "Jane Doe", f.provider.created[0].Name)
	assert.Equal(t, f.userID, f.provider.created[0].Metadata[MetadataUserID])

	require.Len(t, f.provider.checkouts, 1)
	params := f.provider.checkouts[0]
	assert.Equal(t, int64(29000), params.UnitAmount)
	assert.Equal(t, "year", params.Interval)
	assert.Equal(t, "usd", params.Currency)
	assert.Equal(t, "Pro", params.ProductName)
	assert.Equal(t, map[string]string{
		MetadataUserID:       f.userID,
		MetadataPlanID:       f.pro.ID,
		MetadataBillingCycle: models.BillingCycleAnnually,
	}, params.Metadata)
}

func TestCreateCheckoutSession_CustomerNameFallsBackToEmail(t *testing.T) {
	f := newFixture(t)
	userID := uuid.NewString()
	require.NoError(t, f.db.Create(&models.Profile{ID: userID, Email: "nameless@example.com"}).Error)

	_, err := f.svc.CreateCheckoutSession(context.Background(), CheckoutRequest{
		UserID:       userID,
		PlanID:       f.pro.ID,
		BillingCycle: models.BillingCycleMonthly,
	})
	require.NoError(t, err)

	require.Len(t, f.provider.created, 1)
	assert.Equal(t, "nameless@example.com", f.provider.created[0].Name)
}

func TestCreateCheckoutSession_ReusesKnownCustomer(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&models.Subscription{
		UserID:                 f.userID,
		PlanID:                 f.pro.ID,
		Status:                 models.SubscriptionStatusCanceled,
		ProviderCustomerID:     "cus_1",
		ProviderSubscriptionID: "sub_old",
	}).Error)

	_, err := f.svc.CreateCheckoutSession(context.Background(), CheckoutRequest{
		UserID:       f.userID,
		PlanID:       f.business.ID,
		BillingCycle: models.BillingCycleMonthly,
	})
	require.NoError(t, err)
	assert.Empty(t, f.provider.created)
	require.Len(t, f.provider.checkouts, 1)
	assert.Equal(t, "cus_1", f.provider.checkouts[0].CustomerID)
	assert.Equal(t, int64(7900), f.provider.checkouts[0].UnitAmount)
	assert.Equal(t, "month", f.provider.checkouts[0].Interval)
}

func TestCreateCheckoutSession_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CheckoutRequest
		want error
	}{
		{name: "missing plan", req: CheckoutRequest{UserID: f.userID, BillingCycle: "monthly"}, want: ErrInvalidRequest},
		{name: "bad cycle", req: CheckoutRequest{UserID: f.userID, PlanID: f.pro.ID, BillingCycle: "weekly"}, want: ErrInvalidRequest},
		{name: "unknown user", req: CheckoutRequest{UserID: uuid.NewString(), PlanID: f.pro.ID, BillingCycle: "monthly"}, want: ErrUnknownUser},
		{name: "unknown plan", req: CheckoutRequest{UserID: f.userID, PlanID: uuid.NewString(), BillingCycle: "monthly"}, want: ErrUnknownPlan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateCheckoutSession(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.provider.checkouts)
}

func TestCreatePortalSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePortalSession(ctx, f.userID)
	assert.ErrorIs(t, err, ErrNoBillingCustomer)

	require.NoError(t, f.db.Create(&models.Subscription{
		UserID:                 f.userID,
		PlanID:                 f.pro.ID,
		Status:                 models.SubscriptionStatusActive,
		ProviderCustomerID:     "cus_1",
		ProviderSubscriptionID: "sub_1",
	}).Error)

	session, err := f.svc.CreatePortalSession(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "https://portal.test/cus_1", session.URL)
	assert.Equal(t, []string{"cus_1"}, f.provider.portals)
}

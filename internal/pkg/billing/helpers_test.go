package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ManuelReschke/freelancedesk/app/models"
	"github.com/ManuelReschke/freelancedesk/app/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testWebhookSecret = "whsec_test_secret"

type fakeProvider struct {
	mu        sync.Mutex
	customers map[string]*Customer
	products  map[string]*Product
	// productErr, when set, is returned by GetProduct as a transient failure.
	productErr error
	checkouts []CheckoutParams
	portals   []string
	created   []CustomerParams
	seq       int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		customers: map[string]*Customer{},
		products:  map[string]*Product{},
	}
}

func (p *fakeProvider) GetCustomer(_ context.Context, id string) (*Customer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.customers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, id)
	}
	cp := *c
	return &cp, nil
}

func (p *fakeProvider) CreateCustomer(_ context.Context, params CustomerParams) (*Customer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	c := &Customer{ID: fmt.Sprintf("cus_new_%d", p.seq), Email: params.Email, Metadata: params.Metadata}
	p.customers[c.ID] = c
	p.created = append(p.created, params)
	return c, nil
}

func (p *fakeProvider) GetProduct(_ context.Context, id string) (*Product, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.productErr != nil {
		return nil, p.productErr
	}
	prod, ok := p.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %s does not exist", ErrPlanResolutionFailed, id)
	}
	return prod, nil
}

func (p *fakeProvider) setProductErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.productErr = err
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, params CheckoutParams) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkouts = append(p.checkouts, params)
	id := fmt.Sprintf("cs_test_%d", len(p.checkouts))
	return &Session{ID: id, URL: "https://checkout.test/" + id}, nil
}

func (p *fakeProvider) CreatePortalSession(_ context.Context, customerID, _ string) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.portals = append(p.portals, customerID)
	return &Session{ID: "bps_test", URL: "https://portal.test/" + customerID}, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Profile{},
		&models.SubscriptionPlan{},
		&models.Subscription{},
		&models.BillingEvent{},
		&models.BillingWebhookEvent{},
	))
	return db
}

type fixture struct {
	db       *gorm.DB
	repos    *repository.Repositories
	provider *fakeProvider
	svc      *Service
	cfg      Config

	userID   string
	free     models.SubscriptionPlan
	pro      models.SubscriptionPlan
	business models.SubscriptionPlan
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:       db,
		repos:    repository.NewRepositories(db),
		provider: newFakeProvider(),
		userID:   uuid.NewString(),
		cfg: Config{
			WebhookSecret:   testWebhookSecret,
			Currency:        "usd",
			FreePlanName:    "Free",
			SuccessURL:      "https://app.test/billing/success",
			CancelURL:       "https://app.test/billing/cancel",
			PortalReturnURL: "https://app.test/settings/billing",
		},
	}

	f.free = models.SubscriptionPlan{ID: uuid.NewString(), Name: "Free", IsActive: true}
	f.pro = models.SubscriptionPlan{ID: uuid.NewString(), Name: "Pro", MonthlyPrice: decimal.NewFromInt(29), AnnualPrice: decimal.NewFromInt(290), IsActive: true}
	f.business = models.SubscriptionPlan{ID: uuid.NewString(), Name: "Business", MonthlyPrice: decimal.NewFromInt(79), AnnualPrice: decimal.NewFromInt(790), IsActive: true}
	for _, p := range []*models.SubscriptionPlan{&f.free, &f.pro, &f.business} {
		require.NoError(t, db.Create(p).Error)
	}
	require.NoError(t, db.Create(&models.Profile{ID: f.userID, Email: "jane@example.com", FullName: "Jane Doe"}).Error)

	f.provider.customers["cus_1"] = &Customer{ID: "cus_1", Email: "jane@example.com", Metadata: map[string]string{MetadataUserID: f.userID}}
	f.provider.customers["cus_nolink"] = &Customer{ID: "cus_nolink", Metadata: map[string]string{}}
	f.provider.customers["cus_deleted"] = &Customer{ID: "cus_deleted", Deleted: true}
	f.provider.products["prod_pro"] = &Product{ID: "prod_pro", Name: "Pro Monthly"}
	f.provider.products["prod_business"] = &Product{ID: "prod_business", Name: "Business Yearly"}
	f.provider.products["prod_enterprise"] = &Product{ID: "prod_enterprise", Name: "Enterprise Suite"}

	f.svc = NewService(f.cfg, Dependencies{Repos: f.repos, Provider: f.provider})
	return f
}

// deliver signs payload like the provider does and runs it through intake.
func (f *fixture) deliver(t *testing.T, payload []byte) (*WebhookResult, error) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  testWebhookSecret,
	})
	return f.svc.HandleWebhook(context.Background(), signed.Payload, signed.Header)
}

func (f *fixture) subscriptions(t *testing.T) []models.Subscription {
	t.Helper()
	subs, err := f.repos.Subscription.ListByUser(context.Background(), f.userID)
	require.NoError(t, err)
	return subs
}

func (f *fixture) billingEvents(t *testing.T) []models.BillingEvent {
	t.Helper()
	events, err := f.repos.BillingEvent.ListByUser(context.Background(), f.userID)
	require.NoError(t, err)
	return events
}

func eventPayload(t *testing.T, id, eventType string, object interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"created":     time.Now().Unix(),
		"api_version": "2025-03-31.basil",
		"data":        map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	return raw
}

type subOpts struct {
	id        string
	customer  string
	status    string
	priceID   string
	productID string
	interval  string
	metadata  map[string]string
	cancelEnd bool
	trialEnd  int64
}

func subscriptionObject(o subOpts) map[string]interface{} {
	if o.customer == "" {
		o.customer = "cus_1"
	}
	if o.status == "" {
		o.status = "active"
	}
	if o.metadata == nil {
		o.metadata = map[string]string{}
	}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC).Unix()
	obj := map[string]interface{}{
		"id":                   o.id,
		"object":               "subscription",
		"customer":             o.customer,
		"status":               o.status,
		"cancel_at_period_end": o.cancelEnd,
		"metadata":             o.metadata,
		"items": map[string]interface{}{
			"data": []interface{}{
				map[string]interface{}{
					"id": "si_" + o.id,
					"price": map[string]interface{}{
						"id":          o.priceID,
						"product":     o.productID,
						"unit_amount": 2900,
						"currency":    "usd",
						"recurring":   map[string]interface{}{"interval": o.interval},
					},
					"current_period_start": start,
					"current_period_end":   end,
				},
			},
		},
	}
	if o.trialEnd > 0 {
		obj["trial_start"] = start
		obj["trial_end"] = o.trialEnd
	}
	return obj
}

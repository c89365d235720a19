package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// StripeProvider implements Provider on top of an explicitly constructed
// Stripe API client; no package-level key is set.
type StripeProvider struct {
	api *client.API
}

// NewStripeProvider creates a provider bound to the given secret key.
func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{api: client.New(secretKey, nil)}
}

func (p *StripeProvider) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	c, err := p.api.Customers.Get(id, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, id)
		}
		return nil, fmt.Errorf("billing: retrieve stripe customer: %w", err)
	}
	return &Customer{
		ID:       c.ID,
		Email:    c.Email,
		Deleted:  c.Deleted,
		Metadata: c.Metadata,
	}, nil
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, in CustomerParams) (*Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if in.Email != "" {
		params.Email = stripe.String(in.Email)
	}
	if in.Name != "" {
		params.Name = stripe.String(in.Name)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	c, err := p.api.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("billing: create stripe customer: %w", err)
	}
	return &Customer{ID: c.ID, Email: c.Email, Metadata: c.Metadata}, nil
}

func (p *StripeProvider) GetProduct(ctx context.Context, id string) (*Product, error) {
	params := &stripe.ProductParams{}
	params.Context = ctx
	prod, err := p.api.Products.Get(id, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, fmt.Errorf("%w: product %s does not exist", ErrPlanResolutionFailed, id)
		}
		return nil, fmt.Errorf("billing: retrieve stripe product: %w", err)
	}
	return &Product{ID: prod.ID, Name: prod.Name}, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutParams) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(in.CustomerID),
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(in.Currency),
					UnitAmount: stripe.Int64(in.UnitAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(in.ProductName),
					},
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(in.Interval),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: in.Metadata,
		},
	}
	params.Context = ctx
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("billing: create stripe checkout session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*Session, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	s, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("billing: create stripe portal session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing
}

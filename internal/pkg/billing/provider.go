package billing

import "context"

// Customer is a provider-side customer record.
type Customer struct {
	ID       string
	Email    string
	Deleted  bool
	Metadata map[string]string
}

// Product is a provider-side product record.
type Product struct {
	ID   string
	Name string
}

// CustomerParams describes a customer to create.
type CustomerParams struct {
	Email    string
	Name     string
	Metadata map[string]string
}

// CheckoutParams describes a subscription-mode checkout session.
type CheckoutParams struct {
	CustomerID  string
	ProductName string
	Currency    string
	UnitAmount  int64
	Interval    string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// Session is a provider-hosted checkout or portal session.
type Session struct {
	ID  string
	URL string
}

// Provider is the payment provider API used by the billing core. The
// production implementation is StripeProvider.
type Provider interface {
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	CreateCustomer(ctx context.Context, params CustomerParams) (*Customer, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*Session, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*Session, error)
}

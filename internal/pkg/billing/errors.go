package billing

import "errors"

var (
	// ErrInvalidSignature is returned when a webhook payload fails verification.
	ErrInvalidSignature = errors.New("billing: invalid webhook signature")
	// ErrCustomerNotFound is returned when the provider reports the customer as deleted.
	ErrCustomerNotFound = errors.New("billing: customer not found")
	// ErrMissingUserLink is returned when a provider customer carries no user_id metadata.
	ErrMissingUserLink = errors.New("billing: customer has no user link")
	// ErrPlanResolutionFailed is returned when no local plan matches a provider price.
	ErrPlanResolutionFailed = errors.New("billing: plan resolution failed")
	// ErrSubscriptionNotFound is returned when no local row exists for a provider subscription.
	ErrSubscriptionNotFound = errors.New("billing: subscription not found")
	ErrUnknownUser          = errors.New("billing: unknown user")
	ErrUnknownPlan          = errors.New("billing: unknown plan")
	ErrNoBillingCustomer    = errors.New("billing: no billing customer for user")
	ErrInvalidRequest       = errors.New("billing: invalid request")
	ErrInvalidPayload       = errors.New("billing: invalid webhook payload")
	ErrDeliveryNotFound     = errors.New("billing: webhook delivery not found")
)

// IsFatal reports whether err is a resolution failure that a redelivery of the
// same event cannot fix.
func IsFatal(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidSignature),
		errors.Is(err, ErrMissingUserLink),
		errors.Is(err, ErrPlanResolutionFailed),
		errors.Is(err, ErrCustomerNotFound):
		return true
	default:
		return false
	}
}

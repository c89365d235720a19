package models

// Billing provider constants used across billing-related models.
const (
	BillingProviderStripe = "stripe"
)

const (
	BillingCycleMonthly  = "monthly"
	BillingCycleAnnually = "annually"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

const (
	BillingEventSubscriptionCreated  = "subscription_created"
	BillingEventSubscriptionUpdated  = "subscription_updated"
	BillingEventSubscriptionCanceled = "subscription_canceled"
	BillingEventInvoicePaid          = "invoice_paid"
	BillingEventInvoicePaymentFailed = "invoice_payment_failed"
)

const (
	BillingEventStatusSucceeded = "succeeded"
	BillingEventStatusFailed    = "failed"
)

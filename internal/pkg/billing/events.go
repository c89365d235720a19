package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
)

// Provider event types handled by the router.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventSubscriptionCreated      = "customer.subscription.created"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
	EventInvoicePaid              = "invoice.paid"
	EventInvoicePaymentFailed     = "invoice.payment_failed"
)

// Event is a verified provider event. The set of implementations is closed:
// CheckoutCompleted, SubscriptionCreated, SubscriptionUpdated,
// SubscriptionDeleted, InvoicePaid, InvoicePaymentFailed and Unknown.
type Event interface {
	EventID() string
	EventType() string
	isEvent()
}

// EventMeta carries the envelope fields shared by every event.
type EventMeta struct {
	ID      string
	Type    string
	Created time.Time
}

func (m EventMeta) EventID() string   { return m.ID }
func (m EventMeta) EventType() string { return m.Type }
func (EventMeta) isEvent()            {}

type CheckoutCompleted struct {
	EventMeta
	Session CheckoutSessionObject
}

type SubscriptionCreated struct {
	EventMeta
	Subscription SubscriptionObject
}

type SubscriptionUpdated struct {
	EventMeta
	Subscription SubscriptionObject
}

type SubscriptionDeleted struct {
	EventMeta
	Subscription SubscriptionObject
}

type InvoicePaid struct {
	EventMeta
	Invoice InvoiceObject
}

type InvoicePaymentFailed struct {
	EventMeta
	Invoice InvoiceObject
}

// Unknown is any event type this system does not reconcile.
type Unknown struct {
	EventMeta
}

// ObjectRef is a provider reference that may arrive either as a bare id or as
// an expanded object with an "id" field.
type ObjectRef string

func (r *ObjectRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ObjectRef(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = ObjectRef(obj.ID)
	return nil
}

func (r ObjectRef) String() string { return string(r) }

// CheckoutSessionObject is the subset of a checkout session used for reconciliation.
// CheckoutModeSubscription is the only checkout mode that leads to a subscription.
const CheckoutModeSubscription = "subscription"

type CheckoutSessionObject struct {
	ID           string            `json:"id"`
	Customer     ObjectRef         `json:"customer"`
	Subscription ObjectRef         `json:"subscription"`
	AmountTotal  int64             `json:"amount_total"`
	Currency     string            `json:"currency"`
	Mode         string            `json:"mode"`
	Metadata     map[string]string `json:"metadata"`
}

type RecurringObject struct {
	Interval string `json:"interval"`
}

type PriceObject struct {
	ID         string           `json:"id"`
	Product    ObjectRef        `json:"product"`
	UnitAmount int64            `json:"unit_amount"`
	Currency   string           `json:"currency"`
	Recurring  *RecurringObject `json:"recurring"`
}

type SubscriptionItemObject struct {
	ID                 string      `json:"id"`
	Price              PriceObject `json:"price"`
	CurrentPeriodStart int64       `json:"current_period_start"`
	CurrentPeriodEnd   int64       `json:"current_period_end"`
}

// SubscriptionObject is the subset of a provider subscription used for reconciliation.
type SubscriptionObject struct {
	ID                 string            `json:"id"`
	Customer           ObjectRef         `json:"customer"`
	Status             string            `json:"status"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	TrialStart         int64             `json:"trial_start"`
	TrialEnd           int64             `json:"trial_end"`
	CanceledAt         int64             `json:"canceled_at"`
	EndedAt            int64             `json:"ended_at"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []SubscriptionItemObject `json:"data"`
	} `json:"items"`
}

func (s SubscriptionObject) firstItem() *SubscriptionItemObject {
	if len(s.Items.Data) == 0 {
		return nil
	}
	return &s.Items.Data[0]
}

// PriceID returns the price of the first line item.
func (s SubscriptionObject) PriceID() string {
	if item := s.firstItem(); item != nil {
		return item.Price.ID
	}
	return ""
}

// ProductID returns the product behind the first line item's price.
func (s SubscriptionObject) ProductID() string {
	if item := s.firstItem(); item != nil {
		return item.Price.Product.String()
	}
	return ""
}

// Interval returns the recurring interval of the first line item.
func (s SubscriptionObject) Interval() string {
	if item := s.firstItem(); item != nil && item.Price.Recurring != nil {
		return item.Price.Recurring.Interval
	}
	return ""
}

// Period returns the current billing period. Newer API versions only report
// the bounds on the line items.
func (s SubscriptionObject) Period() (start, end *time.Time) {
	startSec, endSec := s.CurrentPeriodStart, s.CurrentPeriodEnd
	if item := s.firstItem(); item != nil {
		if startSec == 0 {
			startSec = item.CurrentPeriodStart
		}
		if endSec == 0 {
			endSec = item.CurrentPeriodEnd
		}
	}
	return epochToTime(startSec), epochToTime(endSec)
}

// InvoiceObject is the subset of a provider invoice used for reconciliation.
type InvoiceObject struct {
	ID           string    `json:"id"`
	Customer     ObjectRef `json:"customer"`
	Subscription ObjectRef `json:"subscription"`
	AmountPaid   int64     `json:"amount_paid"`
	AmountDue    int64     `json:"amount_due"`
	Currency     string    `json:"currency"`
	Status       string    `json:"status"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription ObjectRef `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

// SubscriptionRef returns the provider subscription the invoice belongs to.
func (i InvoiceObject) SubscriptionRef() string {
	if i.Subscription != "" {
		return i.Subscription.String()
	}
	if i.Parent != nil && i.Parent.SubscriptionDetails != nil {
		return i.Parent.SubscriptionDetails.Subscription.String()
	}
	return ""
}

// epochToTime converts provider epoch seconds; zero means absent.
func epochToTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// DecodeEvent maps a provider event onto the closed Event set.
func DecodeEvent(evt stripe.Event) (Event, error) {
	meta := EventMeta{
		ID:   evt.ID,
		Type: string(evt.Type),
	}
	if evt.Created > 0 {
		meta.Created = time.Unix(evt.Created, 0).UTC()
	}

	var raw json.RawMessage
	if evt.Data != nil {
		raw = evt.Data.Raw
	}

	decode := func(v interface{}) error {
		if len(raw) == 0 {
			return fmt.Errorf("billing: event %s (%s) has no data object", meta.ID, meta.Type)
		}
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("billing: decode %s: %w", meta.Type, err)
		}
		return nil
	}

	switch meta.Type {
	case EventCheckoutSessionCompleted:
		ev := CheckoutCompleted{EventMeta: meta}
		if err := decode(&ev.Session); err != nil {
			return nil, err
		}
		return ev, nil
	case EventSubscriptionCreated:
		ev := SubscriptionCreated{EventMeta: meta}
		if err := decode(&ev.Subscription); err != nil {
			return nil, err
		}
		return ev, nil
	case EventSubscriptionUpdated:
		ev := SubscriptionUpdated{EventMeta: meta}
		if err := decode(&ev.Subscription); err != nil {
			return nil, err
		}
		return ev, nil
	case EventSubscriptionDeleted:
		ev := SubscriptionDeleted{EventMeta: meta}
		if err := decode(&ev.Subscription); err != nil {
			return nil, err
		}
		return ev, nil
	case EventInvoicePaid:
		ev := InvoicePaid{EventMeta: meta}
		if err := decode(&ev.Invoice); err != nil {
			return nil, err
		}
		return ev, nil
	case EventInvoicePaymentFailed:
		ev := InvoicePaymentFailed{EventMeta: meta}
		if err := decode(&ev.Invoice); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return Unknown{EventMeta: meta}, nil
	}
}

// ParseStoredEvent decodes a previously verified payload, e.g. for replay.
func ParseStoredEvent(payload []byte) (Event, error) {
	var evt stripe.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("billing: parse stored event: %w", err)
	}
	if strings.TrimSpace(evt.ID) == "" {
		return nil, fmt.Errorf("billing: stored event has no id")
	}
	return DecodeEvent(evt)
}

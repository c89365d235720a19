package billing

import (
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82/webhook"
)

// SignatureHeader is the request header carrying the provider signature.
const SignatureHeader = "Stripe-Signature"

// Verifier authenticates webhook payloads against the shared endpoint secret.
type Verifier struct {
	secret string
}

// NewVerifier creates a verifier for the given webhook signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: strings.TrimSpace(secret)}
}

// Verify checks the signature over the raw body and decodes the event.
// Signature comparison is constant-time inside the provider SDK.
func (v *Verifier) Verify(payload []byte, signature string) (Event, error) {
	if v.secret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}
	if strings.TrimSpace(signature) == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	ev, err := DecodeEvent(evt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return ev, nil
}

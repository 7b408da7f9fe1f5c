package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// relevantEvents is the fixed allow-list of event types this system consumes.
// Everything else is acknowledged and ignored so the provider stops
// redelivering.
var relevantEvents = map[stripe.EventType]struct{}{
	stripe.EventTypeProductCreated:              {},
	stripe.EventTypeProductUpdated:              {},
	stripe.EventTypePriceCreated:                {},
	stripe.EventTypePriceUpdated:                {},
	stripe.EventTypeCheckoutSessionCompleted:    {},
	stripe.EventTypeCustomerSubscriptionCreated: {},
	stripe.EventTypeCustomerSubscriptionUpdated: {},
	stripe.EventTypeCustomerSubscriptionDeleted: {},
}

// IsRelevantEvent reports whether the event type is in the allow-list.
func IsRelevantEvent(eventType stripe.EventType) bool {
	_, ok := relevantEvents[eventType]
	return ok
}

// ParseSignedEvent verifies a webhook delivery and parses its envelope.
// Both the signature header and the signing secret must be present before
// verification is attempted; the provider's timestamped HMAC scheme bounds
// the replay window.
func ParseSignedEvent(payload []byte, signatureHeader, secret string) (stripe.Event, error) {
	if strings.TrimSpace(signatureHeader) == "" || strings.TrimSpace(secret) == "" {
		return stripe.Event{}, ErrConfiguration
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return event, nil
}

// Processor dispatches verified, allow-listed events to the sync service.
type Processor struct {
	svc *Service
}

// NewProcessor creates a webhook processor on top of a billing service.
func NewProcessor(svc *Service) *Processor {
	return &Processor{svc: svc}
}

// Process handles one allow-listed event. Each payload is unmarshaled into
// its concrete provider type; there is no untyped map access. A returned
// error means the delivery failed and the provider should redeliver —
// safe because every sync operation is an idempotent upsert.
func (p *Processor) Process(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case stripe.EventTypeProductCreated, stripe.EventTypeProductUpdated:
		var product stripe.Product
		if err := json.Unmarshal(event.Data.Raw, &product); err != nil {
			return fmt.Errorf("parse product payload: %w", err)
		}
		return p.svc.UpsertProductRecord(ctx, &product)

	case stripe.EventTypePriceCreated, stripe.EventTypePriceUpdated:
		var price stripe.Price
		if err := json.Unmarshal(event.Data.Raw, &price); err != nil {
			return fmt.Errorf("parse price payload: %w", err)
		}
		return p.svc.UpsertPriceRecord(ctx, &price)

	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("parse subscription payload: %w", err)
		}
		if sub.Customer == nil || sub.Customer.ID == "" {
			return fmt.Errorf("subscription event %s has no customer", event.ID)
		}
		_, err := p.svc.SyncSubscription(ctx, sub.ID, sub.Customer.ID,
			event.Type == stripe.EventTypeCustomerSubscriptionCreated)
		return err

	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("parse checkout session payload: %w", err)
		}
		// Only subscription-mode checkouts feed the subscription store.
		if session.Mode != stripe.CheckoutSessionModeSubscription {
			return nil
		}
		if session.Subscription == nil || session.Customer == nil {
			return fmt.Errorf("checkout session %s missing subscription or customer", session.ID)
		}
		_, err := p.svc.SyncSubscription(ctx, session.Subscription.ID, session.Customer.ID, true)
		return err

	default:
		// Callers filter through IsRelevantEvent first; anything else landing
		// here is a programming error, not a delivery failure.
		return fmt.Errorf("unhandled relevant event type %q", event.Type)
	}
}

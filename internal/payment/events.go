package payment

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v81"
)

// EventKind is a closed enumeration of the webhook event kinds the deposit
// flow reacts to. Dispatching on a closed type rather than raw event-type
// strings keeps the set of handled events in one place.
type EventKind int

const (
	// EventUnhandled is any event type outside the deposit flow.
	EventUnhandled EventKind = iota
	// EventCheckoutCompleted is checkout.session.completed.
	EventCheckoutCompleted
	// EventPaymentCaptured is payment_intent.succeeded.
	EventPaymentCaptured
	// EventPaymentFailed is payment_intent.payment_failed.
	EventPaymentFailed
	// EventPaymentCanceled is payment_intent.canceled.
	EventPaymentCanceled
)

// String returns the Stripe event type string for the kind.
func (k EventKind) String() string {
	switch k {
	case EventCheckoutCompleted:
		return "checkout.session.completed"
	case EventPaymentCaptured:
		return "payment_intent.succeeded"
	case EventPaymentFailed:
		return "payment_intent.payment_failed"
	case EventPaymentCanceled:
		return "payment_intent.canceled"
	default:
		return "unhandled"
	}
}

// DepositEvent is a classified webhook event. Exactly one of Session or
// Intent is populated, matching Kind.
type DepositEvent struct {
	Kind      EventKind
	ID        string
	Type      string
	CreatedAt time.Time

	Session *stripe.CheckoutSession // set for EventCheckoutCompleted
	Intent  *stripe.PaymentIntent   // set for the payment_intent.* kinds
}

// ClassifyEvent maps a verified Stripe event onto the deposit event sum type.
// Unknown event types return Kind == EventUnhandled with no payload parsed;
// a parse failure of a known type is an error so the caller can NACK and let
// the gateway redeliver.
func ClassifyEvent(event stripe.Event) (*DepositEvent, error) {
	de := &DepositEvent{
		ID:        event.ID,
		Type:      string(event.Type),
		CreatedAt: time.Unix(event.Created, 0),
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("failed to parse checkout session: %w", err)
		}
		de.Kind = EventCheckoutCompleted
		de.Session = &session

	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, fmt.Errorf("failed to parse payment intent: %w", err)
		}
		de.Intent = &intent
		switch event.Type {
		case "payment_intent.succeeded":
			de.Kind = EventPaymentCaptured
		case "payment_intent.payment_failed":
			de.Kind = EventPaymentFailed
		case "payment_intent.canceled":
			de.Kind = EventPaymentCanceled
		}

	default:
		de.Kind = EventUnhandled
	}

	return de, nil
}

// IntentEmail returns the waitlist email carried in the payment intent's
// metadata, or empty if absent.
func (e *DepositEvent) IntentEmail() string {
	if e.Intent == nil || e.Intent.Metadata == nil {
		return ""
	}
	return e.Intent.Metadata[MetadataEmailKey]
}

// SessionEmail returns the customer email recorded on the checkout session,
// falling back to the metadata the session was created with.
func (e *DepositEvent) SessionEmail() string {
	if e.Session == nil {
		return ""
	}
	if e.Session.CustomerEmail != "" {
		return e.Session.CustomerEmail
	}
	if e.Session.CustomerDetails != nil && e.Session.CustomerDetails.Email != "" {
		return e.Session.CustomerDetails.Email
	}
	if e.Session.Metadata != nil {
		return e.Session.Metadata[MetadataEmailKey]
	}
	return ""
}

package payment

import (
	"encoding/json"
	"fmt"
)

// Webhook event types this system reconciles. Anything else is acknowledged
// without action so the processor does not disable the endpoint after
// repeated failures.
const (
	EventCheckoutSessionCompleted = "checkout_session_completed"
	EventPaymentIntentFailed      = "payment_intent_payment_failed"
)

// Event is the webhook envelope: `{ id, type, data: { object } }`. The data
// object is kept raw until the type is known and decoded into the matching
// variant.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData wraps the type-dependent payload object.
type EventData struct {
	Object json.RawMessage `json:"object"`
}

// ParseEvent decodes a verified webhook body into an event envelope.
func ParseEvent(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to parse webhook event: %w", err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("webhook event is missing a type")
	}
	return &event, nil
}

// CheckoutSession decodes the payload of a checkout-session-completed event.
func (e *Event) CheckoutSession() (*CheckoutSession, error) {
	var session CheckoutSession
	if err := json.Unmarshal(e.Data.Object, &session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session payload: %w", err)
	}
	return &session, nil
}

// PaymentIntent decodes the payload of a payment-intent event.
func (e *Event) PaymentIntent() (*PaymentIntent, error) {
	var intent PaymentIntent
	if err := json.Unmarshal(e.Data.Object, &intent); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent payload: %w", err)
	}
	return &intent, nil
}

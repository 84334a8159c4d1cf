package billing

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// Stripe event types handled by the webhook endpoint. Everything else is
// acknowledged and ignored.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// CheckoutSession carries the fields the service needs from a
// checkout.session.completed event. Price and status are deliberately absent:
// they are re-fetched from the subscription record, never read off the event.
type CheckoutSession struct {
	SessionID         string
	ClientReferenceID string
	CustomerID        string
	SubscriptionID    string
}

// SubscriptionEvent carries the subscription id and customer reference from a
// customer.subscription.* event.
type SubscriptionEvent struct {
	SubscriptionID string
	CustomerID     string
}

// ParseEventEnvelope extracts the event id and type from a Stripe webhook
// payload.
func ParseEventEnvelope(payload []byte) (eventID, eventType string, err error) {
	root := gjson.ParseBytes(payload)
	eventID = strings.TrimSpace(root.Get("id").String())
	eventType = strings.TrimSpace(root.Get("type").String())
	if eventID == "" {
		return "", "", errors.New("stripe webhook payload missing event id")
	}
	if eventType == "" {
		return "", "", errors.New("stripe webhook payload missing event type")
	}
	return eventID, eventType, nil
}

// ParseCheckoutSession extracts the checkout session object from a
// checkout.session.completed payload.
func ParseCheckoutSession(payload []byte) (*CheckoutSession, error) {
	obj := gjson.GetBytes(payload, "data.object")
	out := &CheckoutSession{
		SessionID:         strings.TrimSpace(obj.Get("id").String()),
		ClientReferenceID: strings.TrimSpace(obj.Get("client_reference_id").String()),
		CustomerID:        strings.TrimSpace(obj.Get("customer").String()),
		SubscriptionID:    strings.TrimSpace(obj.Get("subscription").String()),
	}
	if out.SessionID == "" {
		return nil, errors.New("checkout session payload missing session id")
	}
	if out.SubscriptionID == "" {
		return nil, errors.New("checkout session payload missing subscription id")
	}
	return out, nil
}

// ParseSubscriptionEvent extracts the subscription object reference from a
// customer.subscription.* payload.
func ParseSubscriptionEvent(payload []byte) (*SubscriptionEvent, error) {
	obj := gjson.GetBytes(payload, "data.object")
	out := &SubscriptionEvent{
		SubscriptionID: strings.TrimSpace(obj.Get("id").String()),
		CustomerID:     strings.TrimSpace(obj.Get("customer").String()),
	}
	if out.SubscriptionID == "" {
		return nil, errors.New("subscription payload missing subscription id")
	}
	return out, nil
}

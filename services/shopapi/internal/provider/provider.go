package provider

import (
	"context"
	"errors"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// EventPaymentSucceeded is the webhook event type for a settled payment intent.
const EventPaymentSucceeded = "payment_intent.succeeded"

// IntentInput holds the parameters for creating a payment intent.
type IntentInput struct {
	// Amount is in whole pesos; providers convert to their minor unit.
	Amount         int64
	Currency       string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// Intent is a created payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// WebhookEvent is a verified provider notification.
type WebhookEvent struct {
	ID              string
	Type            string
	PaymentIntentID string
	Amount          int64
	Metadata        map[string]string
}

// Provider defines the interface for payment provider integrations.
type Provider interface {
	// Name returns the provider name (e.g., "mock", "stripe").
	Name() string

	// CreateIntent creates a payment intent the client confirms with its
	// client secret.
	CreateIntent(ctx context.Context, input *IntentInput) (*Intent, error)

	// ParseWebhook verifies a webhook payload against its signature header
	// and decodes it.
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// Package stripe implements the payment provider with Stripe PaymentIntents.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/provider"
)

// minorUnits converts pesos to the amount Stripe expects. Stripe treats COP
// as a two-decimal currency.
const minorUnits = 100

type paymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// Config configures the Stripe provider.
type Config struct {
	SecretKey     string
	WebhookSecret string
	// Intents overrides the PaymentIntents client, for tests.
	Intents paymentIntentAPI
}

// Provider creates payment intents and verifies webhooks with Stripe.
type Provider struct {
	intents       paymentIntentAPI
	webhookSecret string
}

// NewProvider constructs a Stripe provider.
func NewProvider(cfg Config) (*Provider, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" && cfg.Intents == nil {
		return nil, errors.New("stripe: secret key is required")
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, errors.New("stripe: webhook secret is required")
	}

	intents := cfg.Intents
	if intents == nil {
		intents = client.New(key, nil).PaymentIntents
	}
	return &Provider{intents: intents, webhookSecret: cfg.WebhookSecret}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stripe"
}

// CreateIntent creates a PaymentIntent with automatic payment methods.
func (p *Provider) CreateIntent(ctx context.Context, input *provider.IntentInput) (*provider.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(input.Amount * minorUnits),
		Currency: stripe.String(strings.ToLower(input.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if input.Description != "" {
		params.Description = stripe.String(input.Description)
	}
	if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	for k, v := range input.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := p.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	if pi.ClientSecret == "" {
		return nil, fmt.Errorf("stripe: payment intent %s has no client secret", pi.ID)
	}

	return &provider.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
// Payment intent events carry the intent id, amount in pesos and metadata.
func (p *Provider) ParseWebhook(payload []byte, signature string) (*provider.WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidSignature, err)
	}

	out := &provider.WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if !strings.HasPrefix(out.Type, "payment_intent.") || event.Data == nil {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("stripe: decode payment intent: %w", err)
	}
	out.PaymentIntentID = pi.ID
	out.Amount = pi.Amount / minorUnits
	out.Metadata = pi.Metadata
	return out, nil
}

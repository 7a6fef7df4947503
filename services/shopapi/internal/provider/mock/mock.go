package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/provider"
)

// Provider is a mock payment provider for development and tests. Intents
// are kept in memory; webhooks are plain JSON and the signature header must
// equal the configured secret.
type Provider struct {
	secret string

	mu      sync.Mutex
	intents map[string]intent
	byKey   map[string]string
}

type intent struct {
	amount   int64
	metadata map[string]string
}

// mockWebhook is the JSON body accepted by ParseWebhook.
type mockWebhook struct {
	ID              string            `json:"id"`
	Type            string            `json:"type"`
	PaymentIntentID string            `json:"paymentIntentId"`
	Amount          int64             `json:"amount"`
	Metadata        map[string]string `json:"metadata"`
}

// NewProvider creates a new mock payment provider.
func NewProvider(webhookSecret string) *Provider {
	return &Provider{
		secret:  webhookSecret,
		intents: make(map[string]intent),
		byKey:   make(map[string]string),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mock"
}

// CreateIntent records an intent and returns a Stripe-shaped client secret.
// Repeating an idempotency key returns the same intent.
func (p *Provider) CreateIntent(_ context.Context, input *provider.IntentInput) (*provider.Intent, error) {
	if input.Amount <= 0 {
		return nil, fmt.Errorf("mock: amount must be positive")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if id, ok := p.byKey[input.IdempotencyKey]; ok && input.IdempotencyKey != "" {
		return newIntent(id), nil
	}

	id := "pi_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	meta := make(map[string]string, len(input.Metadata))
	for k, v := range input.Metadata {
		meta[k] = v
	}
	p.intents[id] = intent{amount: input.Amount, metadata: meta}
	if input.IdempotencyKey != "" {
		p.byKey[input.IdempotencyKey] = id
	}
	return newIntent(id), nil
}

func newIntent(id string) *provider.Intent {
	return &provider.Intent{
		ID:           id,
		ClientSecret: id + "_secret_mock",
		Status:       "requires_payment_method",
	}
}

// ParseWebhook decodes a mock webhook after checking the shared secret.
func (p *Provider) ParseWebhook(payload []byte, signature string) (*provider.WebhookEvent, error) {
	if p.secret != "" && signature != p.secret {
		return nil, provider.ErrInvalidSignature
	}
	var w mockWebhook
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("mock: decode webhook: %w", err)
	}
	return &provider.WebhookEvent{
		ID:              w.ID,
		Type:            w.Type,
		PaymentIntentID: w.PaymentIntentID,
		Amount:          w.Amount,
		Metadata:        w.Metadata,
	}, nil
}

// Succeed builds the payment_intent.succeeded event for a known intent, as
// the real provider would deliver it.
func (p *Provider) Succeed(paymentIntentID string) (*provider.WebhookEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	in, ok := p.intents[paymentIntentID]
	if !ok {
		return nil, fmt.Errorf("mock: unknown payment intent %s", paymentIntentID)
	}
	return &provider.WebhookEvent{
		ID:              "evt_mock_" + uuid.NewString(),
		Type:            provider.EventPaymentSucceeded,
		PaymentIntentID: paymentIntentID,
		Amount:          in.amount,
		Metadata:        in.metadata,
	}, nil
}

package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/kafka"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/provider"
)

// TopicPaymentSucceeded carries settled payment intents to the order consumer.
const TopicPaymentSucceeded = "ecommerce.payment.succeeded"

// Aggregate type constant.
const AggregateTypePaymentIntent = "payment_intent"

// SourceShopAPI identifies events originating from the shop API.
const SourceShopAPI = "shopapi"

// PaymentSucceededData is the payload for a payment.succeeded event.
type PaymentSucceededData struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ProviderEventID string `json:"provider_event_id"`
	Provider        string `json:"provider"`
	UserID          string `json:"user_id,omitempty"`
	DraftID         string `json:"draft_id,omitempty"`
	Amount          int64  `json:"amount"`
}

// Publisher is the subset of pkg/kafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes payment events.
type Producer struct {
	publisher Publisher
	provider  string
	logger    *slog.Logger
}

// NewProducer creates a new event producer for payments settled by the named provider.
func NewProducer(publisher Publisher, providerName string, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		provider:  providerName,
		logger:    logger,
	}
}

// PublishPaymentSucceeded publishes a payment.succeeded event. The provider
// event id becomes the event id so redeliveries of one webhook deduplicate.
func (p *Producer) PublishPaymentSucceeded(ctx context.Context, ev *provider.WebhookEvent) error {
	data := PaymentSucceededData{
		PaymentIntentID: ev.PaymentIntentID,
		ProviderEventID: ev.ID,
		Provider:        p.provider,
		UserID:          ev.Metadata["user_id"],
		DraftID:         ev.Metadata["draft_id"],
		Amount:          ev.Amount,
	}

	event, err := pkgkafka.NewEvent(TopicPaymentSucceeded, ev.PaymentIntentID, AggregateTypePaymentIntent, SourceShopAPI, data)
	if err != nil {
		return fmt.Errorf("create payment.succeeded event: %w", err)
	}
	if ev.ID != "" {
		event.EventID = ev.ID
	}
	event.WithMetadata("provider", p.provider)

	if err := p.publisher.Publish(ctx, TopicPaymentSucceeded, event); err != nil {
		return fmt.Errorf("publish payment.succeeded: %w", err)
	}

	p.logger.InfoContext(ctx, "payment.succeeded published",
		slog.String("payment_intent_id", ev.PaymentIntentID),
		slog.String("event_id", event.EventID),
	)
	return nil
}

// InlinePublisher hands events straight to a handler in-process. It stands
// in for Kafka when no brokers are configured.
type InlinePublisher struct {
	handler pkgkafka.Handler
}

// NewInlinePublisher creates a publisher that calls handler synchronously.
func NewInlinePublisher(handler pkgkafka.Handler) *InlinePublisher {
	return &InlinePublisher{handler: handler}
}

// Publish runs the handler with the event.
func (p *InlinePublisher) Publish(ctx context.Context, _ string, event *pkgkafka.Event) error {
	return p.handler(ctx, event)
}

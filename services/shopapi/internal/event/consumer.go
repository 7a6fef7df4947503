package event

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/errors"
	pkgkafka "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/kafka"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/domain"
)

// ConsumerGroupID is the consumer group of the order materializer.
const ConsumerGroupID = "shopapi-orders"

// OrderMaterializer creates the order for a settled payment intent.
type OrderMaterializer interface {
	MaterializeOrder(ctx context.Context, paymentIntentID string) (*domain.Order, error)
}

// ConsumerHandler turns payment events into orders.
type ConsumerHandler struct {
	orders OrderMaterializer
	logger *slog.Logger
}

// NewConsumerHandler creates a new event consumer handler.
func NewConsumerHandler(orders OrderMaterializer, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{orders: orders, logger: logger}
}

// HandlePaymentSucceeded materializes the order for the event's payment
// intent. Malformed events and intents without a draft are dropped; other
// failures are returned so the consumer retries.
func (h *ConsumerHandler) HandlePaymentSucceeded(ctx context.Context, event *pkgkafka.Event) error {
	var data PaymentSucceededData
	if err := event.UnmarshalData(&data); err != nil || data.PaymentIntentID == "" {
		h.logger.ErrorContext(ctx, "dropping malformed payment.succeeded event",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	order, err := h.orders.MaterializeOrder(ctx, data.PaymentIntentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.logger.WarnContext(ctx, "no checkout draft for payment intent",
				slog.String("payment_intent_id", data.PaymentIntentID),
				slog.String("event_id", event.EventID),
			)
			return nil
		}
		return err
	}

	if order != nil {
		h.logger.InfoContext(ctx, "order materialized",
			slog.String("order_number", order.OrderNumber),
			slog.String("payment_intent_id", data.PaymentIntentID),
		)
	}
	return nil
}

// NewPaymentSucceededConsumer creates the Kafka consumer for payment.succeeded.
// Redelivered events are skipped by id; exhausted messages go to the DLQ
// when one is given.
func NewPaymentSucceededConsumer(
	brokers []string,
	handler *ConsumerHandler,
	store pkgkafka.IdempotencyStore,
	dlq *pkgkafka.DLQProducer,
	logger *slog.Logger,
) *pkgkafka.Consumer {
	consumer := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:  brokers,
		GroupID:  ConsumerGroupID,
		Topic:    TopicPaymentSucceeded,
		MinBytes: 1,
		MaxBytes: 10e6,
	}, pkgkafka.IdempotentHandler(store, handler.HandlePaymentSucceeded, logger), logger)
	if dlq != nil {
		consumer = consumer.WithDLQ(dlq)
	}
	return consumer
}

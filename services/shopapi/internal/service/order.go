package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/errors"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/pagination"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/domain"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/repository"
)

// OrderService materializes and serves orders.
type OrderService struct {
	orders repository.OrderRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(orders repository.OrderRepository, logger *slog.Logger) *OrderService {
	return &OrderService{
		orders: orders,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// MaterializeOrder creates the processed order for a paid intent. A replay
// for an intent whose draft was already consumed returns (nil, nil).
func (s *OrderService) MaterializeOrder(ctx context.Context, paymentIntentID string) (*domain.Order, error) {
	order, err := s.orders.CreateFromDraft(ctx, paymentIntentID, func(d *domain.CheckoutDraft) *domain.Order {
		return domain.NewOrderFromDraft(uuid.New().String(), d, s.now())
	})
	switch {
	case err == nil:
		ordersMaterialized.WithLabelValues("created").Inc()
		return order, nil
	case errors.Is(err, repository.ErrDraftConsumed):
		ordersMaterialized.WithLabelValues("duplicate").Inc()
		s.logger.DebugContext(ctx, "order already materialized",
			slog.String("payment_intent_id", paymentIntentID),
		)
		return nil, nil
	case errors.Is(err, apperrors.ErrNotFound):
		ordersMaterialized.WithLabelValues("unknown_draft").Inc()
		return nil, err
	default:
		ordersMaterialized.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("materialize order: %w", err)
	}
}

// GetByPaymentIntent returns the caller's order for a payment intent. Orders
// of other users are reported as not found.
func (s *OrderService) GetByPaymentIntent(ctx context.Context, userID, paymentIntentID string) (*domain.Order, error) {
	order, err := s.orders.GetByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperrors.NotFound("order", paymentIntentID)
	}
	return order, nil
}

// ListForUser returns one page of the caller's orders.
func (s *OrderService) ListForUser(ctx context.Context, userID string, p pagination.Params) (pagination.Result[domain.Order], error) {
	orders, total, err := s.orders.ListByUser(ctx, userID, p.PerPage, p.Offset())
	if err != nil {
		return pagination.Result[domain.Order]{}, fmt.Errorf("list orders: %w", err)
	}
	return pagination.NewResult(orders, total, p), nil
}

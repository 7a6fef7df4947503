package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/errors"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/validator"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/domain"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/provider"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/repository"
)

// Currency is the ISO code every intent is created in.
const Currency = "cop"

// ProductLookup resolves catalog prices and stock.
type ProductLookup interface {
	GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

// PaymentPublisher forwards settled payments to order materialization.
type PaymentPublisher interface {
	PublishPaymentSucceeded(ctx context.Context, ev *provider.WebhookEvent) error
}

// Succeeder is implemented by providers that can settle an intent on demand.
type Succeeder interface {
	Succeed(paymentIntentID string) (*provider.WebhookEvent, error)
}

// IntentItem is one requested line of a payment intent.
type IntentItem struct {
	ProductID string `json:"productId" validate:"required,max=120"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=100"`
}

// CreateIntentRequest is the body of POST /api/payment/create-payment-intent.
// Client prices on the items are ignored; shipping and total are checked
// against the catalog.
type CreateIntentRequest struct {
	Items           []IntentItem           `json:"items" validate:"required,min=1,max=50,dive"`
	Total           int64                  `json:"total" validate:"gte=0"`
	Shipping        int64                  `json:"shipping" validate:"gte=0"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
}

// IntentResult is returned to the client after an intent is created.
type IntentResult struct {
	ClientSecret    string         `json:"clientSecret"`
	PaymentIntentID string         `json:"paymentIntentId"`
	Pricing         domain.Pricing `json:"pricing"`
}

// PaymentService creates payment intents and handles provider webhooks.
type PaymentService struct {
	products  ProductLookup
	drafts    repository.DraftRepository
	provider  provider.Provider
	publisher PaymentPublisher
	logger    *slog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	products ProductLookup,
	drafts repository.DraftRepository,
	prov provider.Provider,
	publisher PaymentPublisher,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		products:  products,
		drafts:    drafts,
		provider:  prov,
		publisher: publisher,
		logger:    logger,
	}
}

// CreatePaymentIntent reprices the request from the catalog, checks stock
// and the submitted totals, creates the provider intent and records the
// checkout draft under the intent id.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, userID string, req *CreateIntentRequest) (*IntentResult, error) {
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	items, err := s.reprice(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	pricing := domain.PriceItems(items)
	if !pricing.Matches(req.Shipping, req.Total) {
		s.logger.WarnContext(ctx, "checkout total mismatch",
			slog.Int64("submitted_total", req.Total),
			slog.Int64("submitted_shipping", req.Shipping),
			slog.Int64("total", pricing.Total),
			slog.Int64("shipping", pricing.Shipping),
		)
		return nil, apperrors.PriceMismatch("El total no coincide con los precios actuales")
	}

	draftID := uuid.New().String()
	intent, err := s.provider.CreateIntent(ctx, &provider.IntentInput{
		Amount:         pricing.Total,
		Currency:       Currency,
		Description:    "Harajuku en Casa",
		Metadata:       map[string]string{"user_id": userID, "draft_id": draftID},
		IdempotencyKey: draftID,
	})
	if err != nil {
		return nil, apperrors.Upstream("PAYMENT_PROVIDER_ERROR", "payment provider unavailable", err)
	}

	draft := &domain.CheckoutDraft{
		ID:              draftID,
		UserID:          userID,
		PaymentIntentID: intent.ID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		Subtotal:        pricing.Subtotal,
		Shipping:        pricing.Shipping,
		Total:           pricing.Total,
		Status:          domain.DraftStatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.drafts.Create(ctx, draft); err != nil {
		return nil, fmt.Errorf("store checkout draft: %w", err)
	}

	s.logger.InfoContext(ctx, "payment intent created",
		slog.String("payment_intent_id", intent.ID),
		slog.String("draft_id", draftID),
		slog.String("provider", s.provider.Name()),
		slog.Int64("total", pricing.Total),
	)
	return &IntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Pricing:         pricing,
	}, nil
}

// reprice merges repeated products and prices every line from the catalog.
func (s *PaymentService) reprice(ctx context.Context, requested []IntentItem) ([]domain.OrderItem, error) {
	quantities := make(map[string]int, len(requested))
	for _, it := range requested {
		quantities[it.ProductID] += it.Quantity
	}
	ids := make([]string, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	items := make([]domain.OrderItem, 0, len(ids))
	for _, id := range ids {
		p, ok := products[id]
		if !ok {
			return nil, apperrors.InvalidInput(fmt.Sprintf("El producto %s no existe", id))
		}
		qty := quantities[id]
		if qty > p.Stock {
			return nil, apperrors.InvalidInput(fmt.Sprintf("Stock insuficiente para %s", p.Name))
		}
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			ImageURL:  p.ImageURL,
			Quantity:  qty,
		})
	}
	return items, nil
}

// HandleWebhook verifies a provider webhook and publishes settled payments.
// Other event types are acknowledged and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, provider.ErrInvalidSignature) {
			s.logger.WarnContext(ctx, "rejected webhook", slog.String("error", err.Error()))
			return apperrors.InvalidInput("invalid webhook signature")
		}
		return apperrors.InvalidInput("invalid webhook payload")
	}

	if ev.Type != provider.EventPaymentSucceeded {
		s.logger.DebugContext(ctx, "ignoring webhook event", slog.String("type", ev.Type))
		return nil
	}
	if ev.PaymentIntentID == "" {
		return apperrors.InvalidInput("webhook event has no payment intent")
	}
	return s.publisher.PublishPaymentSucceeded(ctx, ev)
}

// ConfirmMock settles an intent of the mock provider as if its webhook had
// arrived.
func (s *PaymentService) ConfirmMock(ctx context.Context, paymentIntentID string) error {
	succeeder, ok := s.provider.(Succeeder)
	if !ok {
		return apperrors.NotFound("mock payment intent", paymentIntentID)
	}
	ev, err := succeeder.Succeed(paymentIntentID)
	if err != nil {
		return apperrors.NotFound("mock payment intent", paymentIntentID)
	}
	return s.publisher.PublishPaymentSucceeded(ctx, ev)
}

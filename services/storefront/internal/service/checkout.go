package service

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/errors"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/validator"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/domain"
)

// CartReader loads a session's cart.
type CartReader interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
}

// PaymentIntentCreator submits an order draft to the payment backend.
type PaymentIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, token string, draft domain.OrderDraft) (domain.PaymentIntentHandle, error)
}

// CheckoutResult is either a redirect or what the payment widget needs.
type CheckoutResult struct {
	Redirect        string        `json:"redirect,omitempty"`
	ClientSecret    string        `json:"clientSecret,omitempty"`
	PaymentIntentID string        `json:"paymentIntentId,omitempty"`
	ReturnURL       string        `json:"returnUrl,omitempty"`
	Quote           *domain.Quote `json:"quote,omitempty"`
}

// CheckoutSummary is the read-only view rendered beside the shipping form.
type CheckoutSummary struct {
	Redirect string            `json:"redirect,omitempty"`
	Lines    []domain.CartLine `json:"lines,omitempty"`
	Quote    *domain.Quote     `json:"quote,omitempty"`
}

// CheckoutService turns a cart and a shipping form into a payment intent.
type CheckoutService struct {
	carts     CartReader
	payments  PaymentIntentCreator
	returnURL string
	logger    *slog.Logger
}

// NewCheckoutService creates a new checkout service. returnURL is where the
// payment widget sends the customer after payment.
func NewCheckoutService(carts CartReader, payments PaymentIntentCreator, returnURL string, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		carts:     carts,
		payments:  payments,
		returnURL: returnURL,
		logger:    logger,
	}
}

// Quote returns the current price summary of the session's cart.
func (s *CheckoutService) Quote(ctx context.Context, sessionID string) (*CheckoutSummary, error) {
	cart, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return &CheckoutSummary{Redirect: domain.RedirectCart}, nil
	}
	q := cart.Quote()
	return &CheckoutSummary{Lines: cart.Snapshot(), Quote: &q}, nil
}

// Begin prices the cart, validates the form and creates a payment intent.
// The cart is left intact on every path.
func (s *CheckoutService) Begin(ctx context.Context, sessionID, token string, form domain.ShippingForm) (*CheckoutResult, error) {
	cart, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return &CheckoutResult{Redirect: domain.RedirectCart}, nil
	}

	form = form.Trimmed()
	if err := validator.Validate(form); err != nil {
		return nil, err
	}
	if token == "" {
		return &CheckoutResult{Redirect: domain.RedirectLogin}, nil
	}

	draft := domain.NewOrderDraft(cart, form.ShippingAddress())
	handle, err := s.payments.CreatePaymentIntent(ctx, token, draft)
	if err != nil {
		return s.paymentIntentFailed(ctx, sessionID, err)
	}

	q := draft.Quote()
	s.logger.InfoContext(ctx, "checkout started",
		slog.String("session_id", sessionID),
		slog.String("payment_intent_id", handle.ID()),
		slog.Int64("total", q.Total),
	)
	return &CheckoutResult{
		ClientSecret:    handle.ClientSecret,
		PaymentIntentID: handle.ID(),
		ReturnURL:       s.returnURL,
		Quote:           &q,
	}, nil
}

func (s *CheckoutService) paymentIntentFailed(ctx context.Context, sessionID string, err error) (*CheckoutResult, error) {
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		return &CheckoutResult{Redirect: domain.RedirectLogin}, nil
	case errors.Is(err, apperrors.ErrInvalidInput):
		return nil, err
	}

	s.logger.ErrorContext(ctx, "create payment intent failed",
		slog.String("session_id", sessionID),
		slog.String("error", err.Error()),
	)
	return nil, apperrors.Upstream("PAYMENT_INTENT_FAILED", "no pudimos iniciar el pago, intenta de nuevo", err)
}

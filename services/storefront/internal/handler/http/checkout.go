package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/errors"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/httputil"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/middleware"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/domain"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/service"
)

// CheckoutHandler handles the checkout and order confirmation endpoints.
type CheckoutHandler struct {
	checkout *service.CheckoutService
	poller   *service.ConfirmationPoller
	logger   *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(checkout *service.CheckoutService, poller *service.ConfirmationPoller, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		poller:   poller,
		logger:   logger,
	}
}

// Quote handles GET /api/checkout/quote
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	summary, err := h.checkout.Quote(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, summary)
}

// Begin handles POST /api/checkout. The form is validated by the service
// after the empty-cart check, so it is only decoded here.
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	var form domain.ShippingForm
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}

	result, err := h.checkout.Begin(r.Context(), sessionID(r), middleware.TokenFromContext(r.Context()), form)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}

// Confirmation handles GET /api/checkout/confirmation?payment_intent=<id>.
// The request stays open until the order is confirmed or the poller gives
// up. The payment intent may also be derived from payment_intent_client_secret.
func (h *CheckoutHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	paymentIntentID := q.Get("payment_intent")
	if paymentIntentID == "" {
		paymentIntentID = domain.PaymentIntentIDFromSecret(q.Get("payment_intent_client_secret"))
	}

	outcome := h.poller.Confirm(r.Context(), sessionID(r), middleware.TokenFromContext(r.Context()), paymentIntentID)
	if outcome.State == domain.StateCancelled {
		return
	}
	httputil.WriteData(w, http.StatusOK, outcome)
}

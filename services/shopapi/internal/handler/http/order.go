package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/httputil"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/middleware"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/pagination"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/service"
)

// OrderHandler serves the caller's orders.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		logger:  logger,
	}
}

// GetByPaymentIntent handles GET /api/orders/by-payment-intent/{id}. A 404
// means the payment has not been materialized yet.
func (h *OrderHandler) GetByPaymentIntent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	order, err := h.service.GetByPaymentIntent(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}

// ListOrders handles GET /api/orders?page=&per_page=
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	result, err := h.service.ListForUser(r.Context(), userID, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}

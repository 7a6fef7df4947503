package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	apperrors "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/errors"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/httputil"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/service"
)

// AuthHandler handles registration and login. Its responses are bare JSON
// objects, `{token, userEmail}` on success and `{message}` on failure, which
// is what the login form reads.
type AuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: svc,
		logger:  logger,
	}
}

// MessageResponse is the error body of the auth endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// Register handles POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.Credentials
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// Login handles POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.Credentials
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// decode reads the credentials without validating them; the service owns
// the user-facing messages.
func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst *service.Credentials) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := decodeBody(r, dst); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, MessageResponse{Message: "Solicitud inválida"})
		return false
	}
	return true
}

func (h *AuthHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Status < http.StatusInternalServerError {
		httputil.WriteJSON(w, appErr.Status, MessageResponse{Message: appErr.Message})
		return
	}
	h.logger.ErrorContext(r.Context(), "auth request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	httputil.WriteJSON(w, http.StatusInternalServerError, MessageResponse{Message: "Error del servidor"})
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels classify failures independently of the carrying AppError so
// callers can branch with errors.Is across package boundaries.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrGone           = errors.New("gone")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrPaymentFailed  = errors.New("payment failed")
	ErrUpstream       = errors.New("upstream failure")
)

var sentinelStatus = []struct {
	err    error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrAlreadyExists, http.StatusConflict},
	{ErrConflict, http.StatusConflict},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrGone, http.StatusGone},
	{ErrPaymentFailed, http.StatusUnprocessableEntity},
	{ErrUpstream, http.StatusBadGateway},
	{ErrServiceUnavail, http.StatusServiceUnavailable},
}

// AppError is an error with a stable machine code and the HTTP status it
// renders as. Message is safe to show to shoppers.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(code, message string, status int, cause error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: cause}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return newError("NOT_FOUND", fmt.Sprintf("%s %s not found", resource, id), http.StatusNotFound, ErrNotFound)
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return newError("ALREADY_EXISTS", fmt.Sprintf("%s with %s %q already exists", resource, field, value), http.StatusConflict, ErrAlreadyExists)
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return newError("INVALID_INPUT", message, http.StatusBadRequest, ErrInvalidInput)
}

// PriceMismatch is a 400 raised when submitted checkout totals disagree
// with the current catalog.
func PriceMismatch(message string) *AppError {
	return newError("PRICE_MISMATCH", message, http.StatusBadRequest, ErrInvalidInput)
}

func Unauthorized(message string) *AppError {
	return newError("UNAUTHORIZED", message, http.StatusUnauthorized, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return newError("FORBIDDEN", message, http.StatusForbidden, ErrForbidden)
}

// Conflict creates a 409 error for state conflicts.
func Conflict(message string) *AppError {
	return newError("CONFLICT", message, http.StatusConflict, ErrConflict)
}

func Gone(message string) *AppError {
	return newError("GONE", message, http.StatusGone, ErrGone)
}

func ServiceUnavailable(message string) *AppError {
	return newError("SERVICE_UNAVAILABLE", message, http.StatusServiceUnavailable, ErrServiceUnavail)
}

// PaymentFailed creates a 422 error for a payment charge failure.
func PaymentFailed(message string) *AppError {
	return newError("PAYMENT_FAILED", message, http.StatusUnprocessableEntity, ErrPaymentFailed)
}

// Upstream creates a 502 error for a failed call to a collaborator. The
// cause is kept for logs and still matches ErrUpstream.
func Upstream(code, message string, cause error) *AppError {
	return newError(code, message, http.StatusBadGateway, fmt.Errorf("%w: %w", ErrUpstream, cause))
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	for _, s := range sentinelStatus {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

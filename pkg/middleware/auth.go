package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/errors"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/httputil"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/logger"
)

type contextKeyType string

const (
	emailKey contextKeyType = "email"
	tokenKey contextKeyType = "bearer_token"
)

// Claims are the identity fields the auth middleware puts in the context.
type Claims struct {
	UserID string
	Email  string
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator func(token string) (*Claims, error)

// BearerToken returns the token of an "Authorization: Bearer <token>" header,
// or "" when the header is absent or malformed.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Auth rejects requests without a valid bearer token with 401 and stores the
// token's claims in the request context.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("missing bearer token"), nil)
				return
			}

			claims, err := validate(token)
			if err != nil {
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid or expired token"), nil)
				return
			}

			ctx := logger.WithUserID(r.Context(), claims.UserID)
			ctx = context.WithValue(ctx, emailKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ForwardToken stores the caller's bearer token, if any, in the context
// without validating it. Services that relay the token to a backend use it.
func ForwardToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := BearerToken(r); token != "" {
			r = r.WithContext(context.WithValue(r.Context(), tokenKey, token))
		}
		next.ServeHTTP(w, r)
	})
}

// UserIDFromContext returns the authenticated user's ID.
func UserIDFromContext(ctx context.Context) string {
	return logger.UserIDFromContext(ctx)
}

// EmailFromContext returns the authenticated user's email.
func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(emailKey).(string)
	return email
}

// TokenFromContext returns the token stored by ForwardToken.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

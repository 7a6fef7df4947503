package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/logger"
)

// Session identification. The SPA may send the id as a header; browsers
// without it rely on the cookie.
const (
	SessionCookie = "hec_session"
	SessionHeader = "X-Session-ID"
)

// SessionConfig controls the session cookie.
type SessionConfig struct {
	MaxAge time.Duration
	Secure bool
}

// Session resolves the storefront session from the X-Session-ID header or
// the session cookie, minting a new UUID when neither carries a valid one.
// The id is echoed in both the header and the cookie.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := sessionFromRequest(r)
			if !ok {
				id = uuid.NewString()
			}

			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(cfg.MaxAge.Seconds()),
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(SessionHeader, id)

			ctx := logger.WithSessionID(r.Context(), id)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("session_id", id)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFromRequest(r *http.Request) (string, bool) {
	if id, ok := validSessionID(r.Header.Get(SessionHeader)); ok {
		return id, true
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return validSessionID(c.Value)
	}
	return "", false
}

func validSessionID(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// sessionID returns the session resolved by Session.
func sessionID(r *http.Request) string {
	return logger.SessionIDFromContext(r.Context())
}

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// whatever of correlation_id, session_id, user_id, trace_id and span_id is
// known at this point. Mount it after RequestLogging and Tracing, and after
// Auth or session resolution when those fields should be included.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

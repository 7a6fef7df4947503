package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/health"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/middleware"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/event"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/service"
)

// RouterConfig holds the HTTP settings of the storefront router.
type RouterConfig struct {
	CORS           middleware.CORSConfig
	Session        SessionConfig
	RequestTimeout time.Duration
	Heartbeat      time.Duration
	PprofCIDRs     []string
}

// Services groups what the storefront routes are served by.
type Services struct {
	Carts    *service.CartService
	Checkout *service.CheckoutService
	Poller   *service.ConfirmationPoller
	Hub      *event.Hub
}

// NewRouter creates a chi router with all storefront routes registered.
// The confirmation and event routes are long-lived and are mounted outside
// the request timeout.
func NewRouter(svc Services, healthHandler *health.Handler, logger *slog.Logger, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("storefront"))
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	cartHandler := NewCartHandler(svc.Carts, logger)
	eventsHandler := NewEventsHandler(svc.Carts, svc.Hub, cfg.Heartbeat, logger)
	checkoutHandler := NewCheckoutHandler(svc.Checkout, svc.Poller, logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(Session(cfg.Session))
		r.Use(middleware.ForwardToken)
		r.Use(middleware.RequestLogger(logger))
		r.Use(middleware.NoStore)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(cfg.RequestTimeout))
			r.Use(ContentTypeJSON)

			r.Get("/cart", cartHandler.GetCart)
			r.Delete("/cart", cartHandler.ClearCart)
			r.Post("/cart/items", cartHandler.AddItem)
			r.Put("/cart/items/{productId}", cartHandler.UpdateQuantity)
			r.Delete("/cart/items/{productId}", cartHandler.RemoveItem)

			r.Get("/checkout/quote", checkoutHandler.Quote)
			r.Post("/checkout", checkoutHandler.Begin)
		})

		r.Get("/cart/events", eventsHandler.Stream)
		r.Get("/checkout/confirmation", checkoutHandler.Confirmation)
	})

	return r
}

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
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/service"
)

// RouterConfig holds the HTTP settings of the shopapi router.
type RouterConfig struct {
	CORS           middleware.CORSConfig
	RequestTimeout time.Duration
	PprofCIDRs     []string

	// CatalogMaxAge lets clients cache product reads. Zero disables it.
	CatalogMaxAge time.Duration

	// AuthRatePerMinute and AuthRateBurst throttle login and registration per client IP.
	AuthRatePerMinute int
	AuthRateBurst     int

	// MockConfirm mounts the mock provider's settle endpoint.
	MockConfirm bool
}

// Services groups what the shopapi routes are served by.
type Services struct {
	Auth     *service.AuthService
	Catalog  *service.CatalogService
	Payments *service.PaymentService
	Orders   *service.OrderService
}

// NewRouter creates a chi router with all shopapi routes registered.
func NewRouter(svc Services, validate middleware.TokenValidator, healthHandler *health.Handler, logger *slog.Logger, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.AuthRatePerMinute <= 0 {
		cfg.AuthRatePerMinute = 10
	}
	if cfg.AuthRateBurst <= 0 {
		cfg.AuthRateBurst = 5
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("shopapi"))
	r.Use(middleware.Tracing("shopapi"))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	authHandler := NewAuthHandler(svc.Auth, logger)
	productHandler := NewProductHandler(svc.Catalog, logger)
	paymentHandler := NewPaymentHandler(svc.Payments, logger)
	orderHandler := NewOrderHandler(svc.Orders, logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequestLogger(logger))
		r.Use(chimw.Timeout(cfg.RequestTimeout))

		r.Group(func(r chi.Router) {
			if cfg.CatalogMaxAge > 0 {
				r.Use(middleware.CacheControl(cfg.CatalogMaxAge))
			}
			r.Get("/products", productHandler.ListProducts)
			r.Get("/products/{id}", productHandler.GetProduct)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.AuthRatePerMinute, cfg.AuthRateBurst, logger))
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
		})

		// Signed by the payment provider, not by a user token.
		r.Post("/payment/webhook", paymentHandler.Webhook)
		if cfg.MockConfirm {
			r.Post("/payment/mock/confirm/{id}", paymentHandler.ConfirmMock)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(validate))
			r.Use(middleware.NoStore)

			r.Post("/payment/create-payment-intent", paymentHandler.CreatePaymentIntent)
			r.Get("/orders", orderHandler.ListOrders)
			r.Get("/orders/by-payment-intent/{id}", orderHandler.GetByPaymentIntent)
		})
	})

	return r
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/database"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/health"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/httpclient"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/middleware"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/tracing"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/client"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/config"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/event"
	handler "github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/handler/http"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/repository"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/repository/memory"
	redisrepo "github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/repository/redis"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/service"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	relay          *event.RedisRelay
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	healthHandler := health.NewHandler()
	hub := event.NewHub()

	// Cart store and change notifications.
	var (
		repo      repository.CartRepository
		publisher event.Publisher = hub
		rdb       *redis.Client
		relay     *event.RedisRelay
	)
	switch cfg.CartStore {
	case config.CartStoreRedis:
		rdb, err = database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		repo = redisrepo.NewCartRepository(rdb, cfg.CartTTL)
		relay = event.NewRedisRelay(rdb, hub, instanceID(cfg), logger)
		publisher = relay
		healthHandler.RegisterCritical("redis", database.RedisCheck(rdb))
	default:
		logger.Warn("using in-memory cart store; carts are lost on restart")
		repo = memory.NewCartRepository()
	}

	// Shop API clients. Reads may retry; payment intent creation and the
	// order lookup are single-shot because their callers own retries.
	cbCfg := httpclient.CircuitBreakerConfig{
		Name:         "storefront-shopapi",
		MaxRequests:  cfg.CBMaxRequests,
		Interval:     time.Duration(cfg.CBInterval) * time.Second,
		Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
		FailureRatio: cfg.CBFailureRatio,
		MinRequests:  cfg.CBMinRequests,
	}
	readsClient := httpclient.NewCircuitBreakerClient(httpclient.New(httpclient.Config{
		Timeout:         cfg.ShopAPITimeout,
		MaxRetries:      2,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 50,
	}), cbCfg, logger)
	singleShotClient := httpclient.NewCircuitBreakerClient(httpclient.New(httpclient.Config{
		Timeout:         cfg.ShopAPITimeout,
		MaxRetries:      0,
		MaxConnsPerHost: 50,
	}), httpclient.CircuitBreakerConfig{
		Name:         cbCfg.Name + "-single",
		MaxRequests:  cbCfg.MaxRequests,
		Interval:     cbCfg.Interval,
		Timeout:      cbCfg.Timeout,
		FailureRatio: cbCfg.FailureRatio,
		MinRequests:  cbCfg.MinRequests,
	}, logger)
	logger.Info("circuit breaker initialized",
		slog.String("name", cbCfg.Name),
		slog.Uint64("max_requests", uint64(cbCfg.MaxRequests)),
		slog.Int("timeout_seconds", cfg.CBTimeout),
	)

	shop := client.NewShopAPI(cfg.ShopAPIURL, readsClient, singleShotClient, logger)
	healthHandler.RegisterNonCritical("shopapi", shop.Check)
	healthHandler.RegisterNonCritical("shopapi-breaker", readsClient.Check)

	// Build the dependency graph.
	cartService := service.NewCartService(repo, shop, publisher, logger)
	checkoutService := service.NewCheckoutService(cartService, shop, cfg.ReturnURL, logger)
	poller := service.NewConfirmationPoller(shop, cartService, service.PollerConfig{
		Interval:          cfg.PollInterval,
		Timeout:           cfg.PollTimeout,
		RetryServerErrors: cfg.PollRetryServerErrors,
	}, logger)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSOrigins

	router := handler.NewRouter(handler.Services{
		Carts:    cartService,
		Checkout: checkoutService,
		Poller:   poller,
		Hub:      hub,
	}, healthHandler, logger, handler.RouterConfig{
		CORS:           cors,
		Session:        handler.SessionConfig{MaxAge: cfg.SessionMaxAge, Secure: cfg.SessionSecure},
		RequestTimeout: cfg.RequestTimeout,
		Heartbeat:      cfg.SSEHeartbeat,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.WriteTimeout(),
		IdleTimeout:       60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		rdb:            rdb,
		relay:          relay,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and the change relay and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	if a.relay != nil {
		go func() {
			if err := a.relay.Run(relayCtx); err != nil {
				errCh <- fmt.Errorf("cart change relay: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
	}

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func instanceID(cfg *config.Config) string {
	if cfg.InstanceID != "" {
		return cfg.InstanceID
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host + "-" + uuid.NewString()[:8]
	}
	return uuid.NewString()
}

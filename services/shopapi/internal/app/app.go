package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/database"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/health"
	pkgkafka "github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/kafka"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/middleware"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/tracing"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/auth"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/catalog"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/config"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/domain"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/event"
	handler "github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/handler/http"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/provider"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/provider/mock"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/provider/stripe"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/repository"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/repository/memory"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/repository/postgres"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/internal/service"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/migrations"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/shopapi/seed"
)

// App wires together all dependencies and runs the shopapi service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	consumer       *pkgkafka.Consumer
	dlq            *pkgkafka.DLQProducer
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

type repositories struct {
	users    repository.UserRepository
	products repository.ProductRepository
	drafts   repository.DraftRepository
	orders   repository.OrderRepository
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    "shopapi",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}
	healthHandler := health.NewHandler()

	repos, err := a.openStore(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	// Catalog seed.
	catalogService := service.NewCatalogService(repos.products, logger)
	products, err := loadCatalog(cfg.CatalogSeedFile)
	if err != nil {
		return nil, err
	}
	if _, err := catalogService.SeedIfEmpty(ctx, products); err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	prov, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("payment provider initialized", slog.String("provider", prov.Name()))

	// Payment events. With brokers the webhook publishes to Kafka and the
	// consumer materializes orders; without them the handler runs inline.
	orderService := service.NewOrderService(repos.orders, logger)
	consumerHandler := event.NewConsumerHandler(orderService, logger)
	var publisher event.Publisher
	if cfg.UseKafka() {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		a.consumer = event.NewPaymentSucceededConsumer(
			cfg.KafkaBrokers,
			consumerHandler,
			pkgkafka.NewMemoryIdempotencyStore(cfg.KafkaIdempotentTTL),
			a.dlq,
			logger,
		)
		publisher = a.producer
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Warn("no kafka brokers configured; payment events are handled in-process")
		publisher = event.NewInlinePublisher(pkgkafka.IdempotentHandler(
			pkgkafka.NewMemoryIdempotencyStore(cfg.KafkaIdempotentTTL),
			consumerHandler.HandlePaymentSucceeded,
			logger,
		))
	}
	paymentProducer := event.NewProducer(publisher, prov.Name(), logger)

	// Build the dependency graph.
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry)
	authService := service.NewAuthService(repos.users, tokens, cfg.BcryptCost, logger)
	paymentService := service.NewPaymentService(repos.products, repos.drafts, prov, paymentProducer, logger)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSOrigins

	router := handler.NewRouter(handler.Services{
		Auth:     authService,
		Catalog:  catalogService,
		Payments: paymentService,
		Orders:   orderService,
	}, tokens.Validator(), healthHandler, logger, handler.RouterConfig{
		CORS:              cors,
		RequestTimeout:    cfg.RequestTimeout,
		PprofCIDRs:        cfg.PprofAllowedCIDRs,
		CatalogMaxAge:     cfg.CatalogMaxAge,
		AuthRatePerMinute: cfg.AuthRatePerMinute,
		AuthRateBurst:     cfg.AuthRateBurst,
		MockConfirm:       cfg.IsDevelopment() && cfg.PaymentProvider == config.ProviderMock,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

// openStore connects the configured storage backend and applies migrations.
func (a *App) openStore(ctx context.Context, healthHandler *health.Handler) (repositories, error) {
	if a.cfg.Store == config.StoreMemory {
		a.logger.Warn("using in-memory store; users, drafts and orders are lost on restart")
		store := memory.NewStore()
		return repositories{users: store, products: store, drafts: store.Drafts(), orders: store}, nil
	}

	pool, err := database.NewPostgresPool(ctx, database.DefaultPostgresConfig(a.cfg.DatabaseURL), a.logger)
	if err != nil {
		return repositories{}, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL")

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, "shopapi"); err != nil {
		a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}
	database.SetSlowQueryLogging(a.cfg.SlowQueryThreshold, a.logger)

	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return repositories{}, fmt.Errorf("run migrations: %w", err)
	}
	healthHandler.RegisterCritical("postgres", database.PingCheck(pool))

	return repositories{
		users:    postgres.NewUserRepository(pool),
		products: postgres.NewProductRepository(pool),
		drafts:   postgres.NewDraftRepository(pool),
		orders:   postgres.NewOrderRepository(pool),
	}, nil
}

// loadCatalog reads the seed file, or the embedded catalog when path is empty.
func loadCatalog(path string) ([]domain.Product, error) {
	var r io.Reader = bytes.NewReader(seed.Products)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open catalog seed: %w", err)
		}
		defer f.Close()
		r = f
	}
	products, err := catalog.LoadSeed(r)
	if err != nil {
		return nil, fmt.Errorf("load catalog seed: %w", err)
	}
	return products, nil
}

func newProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.PaymentProvider {
	case config.ProviderStripe:
		p, err := stripe.NewProvider(stripe.Config{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
		})
		if err != nil {
			return nil, fmt.Errorf("init stripe provider: %w", err)
		}
		return p, nil
	default:
		return mock.NewProvider(cfg.MockWebhookSecret), nil
	}
}

// Run starts the HTTP server and the payment consumer and blocks until the
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

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(consumerCtx); err != nil && consumerCtx.Err() == nil {
				errCh <- fmt.Errorf("payment consumer: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		stopConsumer()
		_ = a.Shutdown()
		return err
	}

	stopConsumer()
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

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("kafka producer close: %w", err))
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq close error", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("kafka dlq close: %w", err))
		}
	}

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
	}

	if a.pool != nil {
		a.pool.Close()
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

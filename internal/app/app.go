package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sarthakastic/storefront/internal/config"
	"github.com/sarthakastic/storefront/internal/event"
	"github.com/sarthakastic/storefront/internal/fakestore"
	handler "github.com/sarthakastic/storefront/internal/handler/http"
	redisrepo "github.com/sarthakastic/storefront/internal/repository/redis"
	"github.com/sarthakastic/storefront/internal/service"
	"github.com/sarthakastic/storefront/internal/session"
	"github.com/sarthakastic/storefront/internal/theme"
	"github.com/sarthakastic/storefront/pkg/database"
	"github.com/sarthakastic/storefront/pkg/health"
	"github.com/sarthakastic/storefront/pkg/httpclient"
	pkgkafka "github.com/sarthakastic/storefront/pkg/kafka"
	"github.com/sarthakastic/storefront/pkg/middleware"
	"github.com/sarthakastic/storefront/pkg/tracing"
)

const serviceName = "storefront"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	publisher      *event.KafkaPublisher
	consumer       *event.CatalogConsumer
	sessions       *session.Manager
	httpServer     *http.Server
	tracerShutdown func(context.Context) error

	// cancel stops background loops started for the router and sessions.
	cancel context.CancelFunc
	ctx    context.Context
}

// NewApp creates a new application instance, initializing all dependencies.
// Redis and Kafka are optional and only connected when enabled.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelInit()

	tracerCfg := tracing.DefaultConfig(serviceName)
	tracerCfg.Environment = cfg.Environment
	tracerCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracerCfg.SampleRate = cfg.OTELSampleRate
	tracerCfg.Enabled = cfg.OTELEnabled
	tracerShutdown, err := tracing.InitTracer(initCtx, tracerCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}
	healthHandler := health.NewHandler()

	// Remote catalog client: retries inside, breaker outside.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.UpstreamTimeout
	httpCfg.MaxRetries = cfg.UpstreamMaxRetries
	cbCfg := httpclient.DefaultCircuitBreakerConfig("fakestore")
	cbCfg.Timeout = cfg.BreakerTimeout
	cbCfg.Interval = cfg.BreakerInterval
	cbCfg.FailureRatio = cfg.BreakerFailureRatio
	cbCfg.MinRequests = cfg.BreakerMinRequests
	breaker := httpclient.NewCircuitBreakerClient(httpclient.New(httpCfg), cbCfg, logger)
	client := fakestore.NewClient(cfg.BaseURL, breaker, logger)
	healthHandler.RegisterCritical("catalog", client.Healthy)

	var (
		catalog     fakestore.Catalog = client
		themeStore  theme.Store
		invalidator event.Invalidator = noopInvalidator{}
		idempotency pkgkafka.IdempotencyStore
	)

	if cfg.RedisEnabled {
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Addr = cfg.RedisAddr
		redisCfg.Password = cfg.RedisPass
		redisCfg.DB = cfg.RedisDB
		rdb, err := database.NewRedisClient(initCtx, redisCfg, logger)
		if err != nil {
			_ = tracerShutdown(context.Background())
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.rdb = rdb
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)

		themeStore = redisrepo.NewThemeStore(rdb, cfg.ThemeTTL)
		idempotency = redisrepo.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)
		if cfg.CatalogCacheTTL > 0 {
			cached := fakestore.NewCachedCatalog(client, redisrepo.NewCatalogCache(rdb, cfg.CatalogCacheTTL), logger)
			catalog = cached
			invalidator = cached
		}
		healthHandler.RegisterNonCritical("redis", database.RedisChecker(rdb))
	}

	var publisher event.Publisher = event.NoopPublisher{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.publisher = event.NewKafkaPublisher(a.producer, logger)
		publisher = a.publisher
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

		a.consumer = event.NewCatalogConsumer(event.CatalogConsumerConfig{
			Brokers:        cfg.KafkaBrokers,
			GroupID:        cfg.KafkaGroupID,
			IdempotencyTTL: cfg.IdempotencyTTL,
		}, invalidator, idempotency, logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	a.sessions = session.NewManager(session.Config{
		TTL:         cfg.SessionTTL,
		SearchDelay: cfg.SearchDebounce,
		ThemeStore:  themeStore,
		ThemeTTL:    cfg.ThemeTTL,
	}, logger)
	storefront := service.NewStorefrontService(catalog, a.sessions, publisher, logger, cfg.PageWait)

	a.ctx, a.cancel = context.WithCancel(context.Background())

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	router := handler.NewRouter(a.ctx, handler.RouterConfig{
		ServiceName:    serviceName,
		Service:        storefront,
		Sessions:       a.sessions,
		Health:         healthHandler,
		Logger:         logger,
		CORS:           cors,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		RequestTimeout: cfg.RequestTimeout,
		Cookie: handler.SessionCookieConfig{
			Name:   cfg.SessionCookie,
			TTL:    cfg.ThemeTTL,
			Secure: cfg.CookieSecure,
		},
		MetricsCIDRs: cfg.MetricsCIDRs,
		PprofCIDRs:   cfg.PprofCIDRs,
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

// Run starts the HTTP server, the session reaper and the catalog consumer,
// and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go a.sessions.CleanupLoop(a.ctx)

	if a.consumer != nil {
		go func() {
			a.logger.Info("starting catalog consumer", slog.Any("topics", event.CatalogTopics()))
			if err := a.consumer.Start(a.ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("catalog consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components: HTTP first so no new work
// arrives, then sessions (tearing down in-flight fetches), the consumer, the
// producer, redis and finally the tracer flush.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}

	a.cancel()
	if err := a.sessions.Close(); err != nil {
		errs = append(errs, fmt.Errorf("sessions: %w", err))
	}

	errs = append(errs, a.closePartial()...)

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("tracer: %w", err))
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closePartial releases the Kafka and Redis clients that were created.
func (a *App) closePartial() []error {
	var errs []error
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("kafka consumer: %w", err))
		}
	}
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("kafka producer: %w", err))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errs
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context) error { return nil }

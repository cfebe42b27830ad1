package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/falcon-storefront/internal/api"
	"github.com/xenking/falcon-storefront/internal/cart"
	"github.com/xenking/falcon-storefront/internal/catalog"
	"github.com/xenking/falcon-storefront/internal/promo"
	"github.com/xenking/falcon-storefront/internal/storage/file"
	"github.com/xenking/falcon-storefront/internal/storage/memory"
	"github.com/xenking/falcon-storefront/internal/storage/postgres"
	redisstore "github.com/xenking/falcon-storefront/internal/storage/redis"
	"github.com/xenking/falcon-storefront/pkg/health"
	"github.com/xenking/falcon-storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Backend),
	)

	healthSvc := health.New()

	// Snapshot store.
	store, closeStore, err := buildStore(ctx, cfg, lg, healthSvc)
	if err != nil {
		return errors.Wrap(err, "create snapshot store")
	}
	defer closeStore()

	healthSvc.Liveness("goroutines", time.Second, health.GoroutineCount(10000))
	healthSvc.Start(ctx, 10*time.Second)

	// Cart engine, hydrated from the store. Hydration never fails; a broken
	// store only costs persistence.
	cartSvc := cart.NewService(ctx, store, lg.Named("cart"))

	// Promo validator with optional bulk code set.
	var codeSet *promo.CodeSet
	if cfg.Promo.CodesFile != "" {
		codeSet, err = promo.LoadCodeSet(cfg.Promo.CodesFile)
		if err != nil {
			return errors.Wrap(err, "load promo codes")
		}
		lg.Info("Loaded promo code set",
			zap.String("file", cfg.Promo.CodesFile),
			zap.Int("codes", codeSet.Len()),
		)
	}
	promoSvc := promo.NewValidator(codeSet)

	// Catalog client.
	catalogClient := catalog.NewClient(catalog.ClientConfig{
		BaseURL: cfg.Catalog.BaseURL,
		Timeout: cfg.Catalog.Timeout,
	})

	// HTTP surface: health endpoints + API routes on one mux.
	h := api.NewHandler(
		api.HandlerConfig{ImageBaseURL: cfg.ImageBaseURL},
		cartSvc,
		catalogClient,
		promoSvc,
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveHandler)
	mux.HandleFunc("/readyz", healthSvc.ReadyHandler)
	h.Register(mux)

	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("falcon-storefront", m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, flush the
	// cart snapshot, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		if err := cartSvc.Close(shutdownCtx); err != nil {
			lg.Error("Cart snapshot flush error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// buildStore constructs the configured snapshot store backend and registers
// its readiness check. The returned func releases backend resources.
func buildStore(ctx context.Context, cfg *Config, lg *zap.Logger, healthSvc *health.Service) (cart.Store, func(), error) {
	noop := func() {}

	switch cfg.Storage.Backend {
	case "file":
		store, err := file.New(cfg.Storage.Path, lg.Named("store"))
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	case "memory":
		return memory.New(), noop, nil

	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		healthSvc.Readiness("postgres", 5*time.Second, func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		return postgres.New(pool, cfg.Storage.Slot, lg.Named("store")), pool.Close, nil

	case "redis":
		store, err := redisstore.New(ctx, cfg.Storage.RedisAddr, cfg.Storage.Slot, lg.Named("store"))
		if err != nil {
			return nil, nil, err
		}
		healthSvc.Readiness("redis", 5*time.Second, store.Ping)
		return store, func() { _ = store.Close() }, nil

	default:
		return nil, nil, errors.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

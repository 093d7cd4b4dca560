package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadmarket_backend/internal/allocation"
	"leadmarket_backend/internal/distance"
	"leadmarket_backend/internal/email"
	"leadmarket_backend/internal/events"
	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/internal/http/router"
	"leadmarket_backend/internal/leads"
	"leadmarket_backend/internal/notification"
	"leadmarket_backend/internal/pricing"
	"leadmarket_backend/internal/scheduler"
	"leadmarket_backend/internal/vendors"
	"leadmarket_backend/platform/clock"
	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/db"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	redisClient := initRedis(cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	distances := initDistanceResolver(cfg, redisClient, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	pricingModule := pricing.NewModule(pool, distances, cfg.GetRuleCacheTTL(), val, log)
	vendorsModule := vendors.NewModule(pool, log)

	notificationModule := notification.New(email.NewSender(cfg, log), vendorsModule.Service(), cfg, log)
	notificationModule.RegisterHandlers(eventBus)
	leadsModule := leads.NewModule(pool, leads.Dependencies{
		Quoter:          pricingModule.Calculator(),
		Pricer:          pricingModule.LeadPricer(),
		Matcher:         vendorsModule.Matcher(),
		Vendors:         vendorsModule.Service(),
		EventBus:        eventBus,
		DefaultMaxSales: cfg.GetLeadDefaultMaxSales(),
	}, val, log)
	allocationModule := allocation.NewModule(pool, vendorsModule.Service(), eventBus, cfg, val, log)

	expiryClient, closeExpiryClient := initExpiryScheduler(cfg, log)
	if expiryClient != nil {
		defer closeExpiryClient()
		allocationModule.SetExpiryScheduler(expiryClient)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			pricingModule,
			vendorsModule,
			leadsModule,
			allocationModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRedis(cfg config.SchedulerConfig, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; using in-process distance cache and sweeper-only checkout expiry")
		return nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; falling back to in-process distance cache", "error", err)
		return nil
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return redis.NewClient(opt)
}

func initDistanceResolver(cfg *config.Config, redisClient *redis.Client, log *logger.Logger) *distance.Resolver {
	var cache distance.Cache = distance.NewMemoryCache(cfg.GetDistanceCacheTTL(), clock.Real{})
	if redisClient != nil {
		cache = distance.NewRedisCache(redisClient, cfg.GetDistanceCacheTTL())
	}

	var provider distance.Provider
	if cfg.IsMapsEnabled() {
		provider = distance.NewGoogleClient(cfg.GetGoogleMapsAPIKey(), cfg.GetMapsTimeout())
	} else {
		log.Warn("GOOGLE_MAPS_API_KEY not configured; distances will be estimated from ZIP prefixes")
	}

	return distance.NewResolver(cache, provider, clock.Real{}, log)
}

func initExpiryScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize checkout expiry scheduler", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

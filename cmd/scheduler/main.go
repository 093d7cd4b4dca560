package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"leadmarket_backend/internal/allocation"
	"leadmarket_backend/internal/allocation/payment"
	"leadmarket_backend/internal/email"
	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/notification"
	"leadmarket_backend/internal/scheduler"
	"leadmarket_backend/internal/vendors"
	"leadmarket_backend/platform/clock"
	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/db"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// pendingSweepGrace keeps the sweeper behind the provider's own session expiry
// so a payment that lands at the last second still confirms.
const pendingSweepGrace = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	// Worker-side allocation wiring (no HTTP handlers required).
	vendorsModule := vendors.NewModule(pool, log)

	notificationModule := notification.New(email.NewSender(cfg, log), vendorsModule.Service(), cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	allocationModule := allocation.NewModule(pool, vendorsModule.Service(), eventBus, cfg, validator.New(), log)
	purchases := allocationModule.Service()

	maxAge := payment.EffectiveCheckoutTTL(cfg.GetCheckoutTTL()) + pendingSweepGrace
	sweepInterval := getDurationEnv("PENDING_PURCHASE_SWEEP_INTERVAL", time.Minute)
	sweeper := scheduler.NewPendingPurchaseSweeper(purchases, clock.Real{}, log, sweepInterval, maxAge)

	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; running the pending purchase sweeper only")
		sweeper.Run(ctx)
		return
	}

	go sweeper.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, purchases, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}

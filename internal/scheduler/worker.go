package scheduler

import (
	"context"
	"fmt"

	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// PurchaseExpirer releases an unpaid checkout purchase.
type PurchaseExpirer interface {
	ExpirePendingPurchase(ctx context.Context, purchaseID uuid.UUID) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	expirer PurchaseExpirer
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, expirer PurchaseExpirer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(expirer, log)
	w.server = server
	return w, nil
}

func newWorker(expirer PurchaseExpirer, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{mux: mux, expirer: expirer, log: log}
	mux.HandleFunc(TaskCheckoutExpiry, w.handleCheckoutExpiry)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleCheckoutExpiry(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCheckoutExpiryPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	purchaseID, err := uuid.Parse(payload.PurchaseID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	return w.expirer.ExpirePendingPurchase(ctx, purchaseID)
}

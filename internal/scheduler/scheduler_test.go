package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadmarket_backend/platform/clock"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type recordingExpirer struct {
	ids     []uuid.UUID
	cutoffs []time.Time
	err     error
}

func (r *recordingExpirer) ExpirePendingPurchase(_ context.Context, id uuid.UUID) error {
	r.ids = append(r.ids, id)
	return r.err
}

func (r *recordingExpirer) ExpireStalePending(_ context.Context, cutoff time.Time) (int, error) {
	r.cutoffs = append(r.cutoffs, cutoff)
	return 2, r.err
}

func TestCheckoutExpiryTaskCarriesPurchaseID(t *testing.T) {
	id := uuid.New()
	task, err := NewCheckoutExpiryTask(CheckoutExpiryPayload{PurchaseID: id.String()})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskCheckoutExpiry {
		t.Fatalf("unexpected task type %q", task.Type())
	}

	payload, err := ParseCheckoutExpiryPayload(task)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if payload.PurchaseID != id.String() {
		t.Fatalf("expected %s, got %s", id, payload.PurchaseID)
	}
}

func TestWorkerExpiresPurchase(t *testing.T) {
	expirer := &recordingExpirer{}
	w := newWorker(expirer, logger.Nop())
	id := uuid.New()

	task, _ := NewCheckoutExpiryTask(CheckoutExpiryPayload{PurchaseID: id.String()})
	if err := w.mux.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(expirer.ids) != 1 || expirer.ids[0] != id {
		t.Fatalf("expected purchase %s to be expired, got %v", id, expirer.ids)
	}
}

func TestWorkerSkipsRetryOnMalformedPayload(t *testing.T) {
	w := newWorker(&recordingExpirer{}, logger.Nop())

	err := w.mux.ProcessTask(context.Background(), asynq.NewTask(TaskCheckoutExpiry, []byte(`{"purchaseId":"nope"}`)))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestWorkerPropagatesStorageErrors(t *testing.T) {
	w := newWorker(&recordingExpirer{err: errors.New("db down")}, logger.Nop())

	task, _ := NewCheckoutExpiryTask(CheckoutExpiryPayload{PurchaseID: uuid.NewString()})
	if err := w.mux.ProcessTask(context.Background(), task); err == nil {
		t.Fatal("expected error so asynq retries")
	}
}

func TestSweeperUsesMaxAgeCutoff(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expirer := &recordingExpirer{}
	s := NewPendingPurchaseSweeper(expirer, clock.NewFake(start), logger.Nop(), time.Minute, 35*time.Minute)

	s.sweep(context.Background())

	if len(expirer.cutoffs) != 1 {
		t.Fatalf("expected one sweep, got %d", len(expirer.cutoffs))
	}
	if want := start.Add(-35 * time.Minute); !expirer.cutoffs[0].Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, expirer.cutoffs[0])
	}
}

func TestRedisClientOptParsesURL(t *testing.T) {
	opt, err := redisClientOpt("rediss://:secret@cache.internal:6380/2", true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opt.Addr != "cache.internal:6380" || opt.Password != "secret" || opt.DB != 2 {
		t.Fatalf("unexpected opt %+v", opt)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected insecure TLS config")
	}
}

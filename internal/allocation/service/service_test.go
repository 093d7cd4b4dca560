package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadmarket_backend/internal/allocation/repository"
	"leadmarket_backend/internal/events"
	leadsrepo "leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *memStore
	vendors  *fakeVendors
	bus      *events.InMemoryBus
	recorder *eventRecorder
	svc      *Service
}

func newFixture() *fixture {
	store := newMemStore()
	vendors := newFakeVendors()
	bus := events.NewInMemoryBus(logger.Nop())
	recorder := &eventRecorder{}
	recorder.subscribe(bus,
		events.LeadPurchaseCompleted{}.EventName(),
		events.LeadPurchasePending{}.EventName(),
		events.LeadPurchaseExpired{}.EventName(),
		events.LeadPurchaseOverCap{}.EventName(),
		events.LeadOutcomeReported{}.EventName(),
	)
	return &fixture{
		store:    store,
		vendors:  vendors,
		bus:      bus,
		recorder: recorder,
		svc:      New(store, vendors, bus, logger.Nop()),
	}
}

func (f *fixture) withCheckout() (*fakeGateway, *fakeScheduler) {
	gw := &fakeGateway{expiresAt: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)}
	sched := &fakeScheduler{}
	f.svc.SetPaymentGateway(gw)
	f.svc.SetExpiryScheduler(sched)
	return gw, sched
}

func TestConcurrentPurchasesNeverExceedMaxSales(t *testing.T) {
	f := newFixture()
	leadID := f.store.addLead(3, 150)

	const buyers = 12
	users := make([]uuid.UUID, buyers)
	for i := range users {
		users[i], _ = f.vendors.add(f.store)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for _, userID := range users {
		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.Purchase(context.Background(), leadID, userID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			if apperr.Is(err, apperr.KindBadRequest) {
				rejected++
			}
		}(userID)
	}
	wg.Wait()
	f.bus.Wait()

	lead := f.store.lead(leadID)
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, buyers-3, rejected)
	assert.Equal(t, 3, lead.SoldCount)
	assert.Equal(t, leadsrepo.StatusSold, lead.Status)
	assert.Len(t, f.recorder.named(events.LeadPurchaseCompleted{}.EventName()), 3)
}

func TestCapExhaustionWithTwoBuyers(t *testing.T) {
	f := newFixture()
	leadID := f.store.addLead(1, 100)
	first, _ := f.vendors.add(f.store)
	second, _ := f.vendors.add(f.store)

	errs := make(chan error, 2)
	for _, userID := range []uuid.UUID{first, second} {
		go func(userID uuid.UUID) {
			_, err := f.svc.Purchase(context.Background(), leadID, userID)
			errs <- err
		}(userID)
	}

	var ok, failed int
	for range 2 {
		if err := <-errs; err == nil {
			ok++
		} else {
			require.True(t, apperr.Is(err, apperr.KindBadRequest), "unexpected error %v", err)
			failed++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, f.store.lead(leadID).SoldCount)
}

func TestLeadStaysAvailableUntilLastSlotSells(t *testing.T) {
	f := newFixture()
	leadID := f.store.addLead(2, 100)
	first, _ := f.vendors.add(f.store)
	second, _ := f.vendors.add(f.store)

	_, err := f.svc.Purchase(context.Background(), leadID, first)
	require.NoError(t, err)
	assert.Equal(t, leadsrepo.StatusAvailable, f.store.lead(leadID).Status)

	_, err = f.svc.Purchase(context.Background(), leadID, second)
	require.NoError(t, err)
	assert.Equal(t, leadsrepo.StatusSold, f.store.lead(leadID).Status)
}

func TestDirectPurchaseReturnsCompletedPurchase(t *testing.T) {
	f := newFixture()
	leadID := f.store.addLead(3, 150)
	userID, vendor := f.vendors.add(f.store)

	result, err := f.svc.Purchase(context.Background(), leadID, userID)
	require.NoError(t, err)
	f.bus.Wait()

	require.NotNil(t, result.Purchase)
	assert.Nil(t, result.CheckoutURL)
	assert.Equal(t, "completed", result.Purchase.Status)
	assert.Equal(t, "150", result.Purchase.PricePaid.String())
	assert.Equal(t, 1, f.store.lead(leadID).SoldCount)
	assert.Equal(t, leadsrepo.StatusAvailable, f.store.lead(leadID).Status)
	assert.Equal(t, 1, f.store.leadsPurchased[vendor.ID])

	completed := f.recorder.named(events.LeadPurchaseCompleted{}.EventName())
	require.Len(t, completed, 1)
	evt := completed[0].(events.LeadPurchaseCompleted)
	assert.Equal(t, 1, evt.NewSoldCount)
	assert.Equal(t, 3, evt.MaxSales)
}

func TestDuplicatePurchaseIsConflict(t *testing.T) {
	f := newFixture()
	leadID := f.store.addLead(3, 150)
	userID, _ := f.vendors.add(f.store)

	_, err := f.svc.Purchase(context.Background(), leadID, userID)
	require.NoError(t, err)

	_, err = f.svc.Purchase(context.Background(), leadID, userID)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "expected conflict, got %v", err)
	assert.Equal(t, 1, f.store.lead(leadID).SoldCount)
}

func TestPurchaseEligibilityFailures(t *testing.T) {
	f := newFixture()
	userID, _ := f.vendors.add(f.store)

	_, err := f.svc.Purchase(context.Background(), uuid.New(), uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindForbidden), "unknown vendor: %v", err)

	_, err = f.svc.Purchase(context.Background(), uuid.New(), userID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "missing lead: %v", err)

	newLead := f.store.addLead(3, 150)
	f.store.setLeadStatus(newLead, leadsrepo.StatusNew)
	_, err = f.svc.Purchase(context.Background(), newLead, userID)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest), "unavailable lead: %v", err)
}

func TestCheckoutPurchaseLeavesSoldCountUntouched(t *testing.T) {
	f := newFixture()
	gw, sched := f.withCheckout()
	leadID := f.store.addLead(2, 150)
	userID, vendor := f.vendors.add(f.store)

	result, err := f.svc.Purchase(context.Background(), leadID, userID)
	require.NoError(t, err)
	f.bus.Wait()

	require.NotNil(t, result.CheckoutURL)
	assert.Nil(t, result.Purchase)
	assert.Equal(t, 0, f.store.lead(leadID).SoldCount)
	require.Len(t, gw.checkouts, 1)
	assert.Equal(t, "cus_test", gw.checkouts[0].CustomerID)
	assert.Equal(t, vendor.ID, gw.checkouts[0].VendorID)
	assert.Equal(t, 1, gw.customers)

	pending := f.recorder.named(events.LeadPurchasePending{}.EventName())
	require.Len(t, pending, 1)
	purchaseID := pending[0].(events.LeadPurchasePending).PurchaseID
	assert.Equal(t, repository.StatusPending, f.store.purchase(purchaseID).Status)
	assert.Equal(t, gw.expiresAt.Add(checkoutExpiryGrace), sched.runAt[purchaseID])

	// A second lead reuses the stored customer.
	other := f.store.addLead(2, 150)
	_, err = f.svc.Purchase(context.Background(), other, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, gw.customers)
}

func TestCheckoutGatewayFailureIsRetryable(t *testing.T) {
	f := newFixture()
	gw, _ := f.withCheckout()
	gw.err = errGatewayDown
	leadID := f.store.addLead(2, 150)
	userID, _ := f.vendors.add(f.store)

	_, err := f.svc.Purchase(context.Background(), leadID, userID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
	assert.ErrorIs(t, err, errGatewayDown)

	assert.Empty(t, f.store.purchases)
}

func TestFreeLeadSkipsCheckout(t *testing.T) {
	f := newFixture()
	gw, _ := f.withCheckout()
	leadID := f.store.addLead(2, 0)
	userID, _ := f.vendors.add(f.store)

	result, err := f.svc.Purchase(context.Background(), leadID, userID)
	require.NoError(t, err)
	require.NotNil(t, result.Purchase)
	assert.Empty(t, gw.checkouts)
}

func TestSchedulerFailureDoesNotFailCheckout(t *testing.T) {
	f := newFixture()
	_, sched := f.withCheckout()
	sched.err = errGatewayDown
	leadID := f.store.addLead(2, 150)
	userID, _ := f.vendors.add(f.store)

	result, err := f.svc.Purchase(context.Background(), leadID, userID)
	require.NoError(t, err)
	assert.NotNil(t, result.CheckoutURL)
}

func openCheckout(t *testing.T, f *fixture, leadID, userID uuid.UUID) repository.Purchase {
	t.Helper()
	_, err := f.svc.Purchase(context.Background(), leadID, userID)
	require.NoError(t, err)
	f.bus.Wait()
	pending := f.recorder.named(events.LeadPurchasePending{}.EventName())
	require.NotEmpty(t, pending)
	return f.store.purchase(pending[len(pending)-1].(events.LeadPurchasePending).PurchaseID)
}

func TestConfirmCheckoutAllocatesOnce(t *testing.T) {
	f := newFixture()
	f.withCheckout()
	leadID := f.store.addLead(2, 150)
	userID, _ := f.vendors.add(f.store)
	pending := openCheckout(t, f, leadID, userID)

	require.NoError(t, f.svc.ConfirmCheckout(context.Background(), *pending.CheckoutSessionID))
	require.NoError(t, f.svc.ConfirmCheckout(context.Background(), *pending.CheckoutSessionID))
	f.bus.Wait()

	assert.Equal(t, 1, f.store.lead(leadID).SoldCount)
	assert.Equal(t, repository.StatusCompleted, f.store.purchase(pending.ID).Status)
	assert.Len(t, f.recorder.named(events.LeadPurchaseCompleted{}.EventName()), 1)
}

func TestConfirmCheckoutOverCapIsReportedNotFailed(t *testing.T) {
	f := newFixture()
	f.withCheckout()
	leadID := f.store.addLead(1, 150)
	firstUser, _ := f.vendors.add(f.store)
	secondUser, _ := f.vendors.add(f.store)

	first := openCheckout(t, f, leadID, firstUser)
	second := openCheckout(t, f, leadID, secondUser)

	require.NoError(t, f.svc.ConfirmCheckout(context.Background(), *first.CheckoutSessionID))
	require.NoError(t, f.svc.ConfirmCheckout(context.Background(), *second.CheckoutSessionID))
	f.bus.Wait()

	assert.Equal(t, 1, f.store.lead(leadID).SoldCount)
	assert.Equal(t, repository.StatusRefundRequired, f.store.purchase(second.ID).Status)
	overCap := f.recorder.named(events.LeadPurchaseOverCap{}.EventName())
	require.Len(t, overCap, 1)
	assert.Equal(t, second.ID, overCap[0].(events.LeadPurchaseOverCap).PurchaseID)
}

func TestRedeliveredOverCapConfirmationAlertsOnce(t *testing.T) {
	f := newFixture()
	f.withCheckout()
	leadID := f.store.addLead(1, 150)
	firstUser, _ := f.vendors.add(f.store)
	secondUser, _ := f.vendors.add(f.store)

	first := openCheckout(t, f, leadID, firstUser)
	second := openCheckout(t, f, leadID, secondUser)
	require.NoError(t, f.svc.ConfirmCheckout(context.Background(), *first.CheckoutSessionID))

	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.ConfirmCheckout(context.Background(), *second.CheckoutSessionID))
	}
	f.bus.Wait()

	assert.Equal(t, repository.StatusRefundRequired, f.store.purchase(second.ID).Status)
	assert.Len(t, f.recorder.named(events.LeadPurchaseOverCap{}.EventName()), 1)
	assert.Equal(t, 1, f.store.lead(leadID).SoldCount)
}

func TestConfirmUnknownSessionIsNotFound(t *testing.T) {
	f := newFixture()
	err := f.svc.ConfirmCheckout(context.Background(), "cs_missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestExpirePendingPurchaseFreesThePair(t *testing.T) {
	f := newFixture()
	gw, _ := f.withCheckout()
	leadID := f.store.addLead(2, 150)
	userID, _ := f.vendors.add(f.store)
	pending := openCheckout(t, f, leadID, userID)

	require.NoError(t, f.svc.ExpirePendingPurchase(context.Background(), pending.ID))
	require.NoError(t, f.svc.ExpirePendingPurchase(context.Background(), pending.ID))
	f.bus.Wait()

	assert.Equal(t, repository.StatusExpired, f.store.purchase(pending.ID).Status)
	assert.Equal(t, []string{*pending.CheckoutSessionID}, gw.expired)
	assert.Len(t, f.recorder.named(events.LeadPurchaseExpired{}.EventName()), 1)

	_, err := f.svc.Purchase(context.Background(), leadID, userID)
	require.NoError(t, err, "an expired checkout must not block a new attempt")
}

func TestLatePaymentRevivesExpiredCheckout(t *testing.T) {
	f := newFixture()
	f.withCheckout()
	leadID := f.store.addLead(2, 150)
	userID, _ := f.vendors.add(f.store)
	pending := openCheckout(t, f, leadID, userID)

	require.NoError(t, f.svc.ExpireCheckout(context.Background(), *pending.CheckoutSessionID))
	require.NoError(t, f.svc.ConfirmCheckout(context.Background(), *pending.CheckoutSessionID))

	assert.Equal(t, repository.StatusCompleted, f.store.purchase(pending.ID).Status)
	assert.Equal(t, 1, f.store.lead(leadID).SoldCount)
}

func TestExpireStalePending(t *testing.T) {
	f := newFixture()
	f.withCheckout()
	leadID := f.store.addLead(3, 150)
	userID, _ := f.vendors.add(f.store)
	pending := openCheckout(t, f, leadID, userID)

	n, err := f.svc.ExpireStalePending(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = f.svc.ExpireStalePending(context.Background(), time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, repository.StatusExpired, f.store.purchase(pending.ID).Status)
}

func TestReportOutcome(t *testing.T) {
	f := newFixture()
	leadID := f.store.addLead(3, 150)
	userID, vendor := f.vendors.add(f.store)
	result, err := f.svc.Purchase(context.Background(), leadID, userID)
	require.NoError(t, err)

	_, err = f.svc.ReportOutcome(context.Background(), userID, result.Purchase.ID, "maybe")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	resp, err := f.svc.ReportOutcome(context.Background(), userID, result.Purchase.ID, "won")
	require.NoError(t, err)
	assert.Equal(t, "won", resp.Outcome)
	assert.Equal(t, 1, f.store.leadsClosed[vendor.ID])

	_, err = f.svc.ReportOutcome(context.Background(), userID, result.Purchase.ID, "lost")
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	otherUser, _ := f.vendors.add(f.store)
	_, err = f.svc.ReportOutcome(context.Background(), otherUser, result.Purchase.ID, "lost")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListPurchasesHidesContactsUntilCompleted(t *testing.T) {
	f := newFixture()
	f.withCheckout()
	paid := f.store.addLead(3, 150)
	free := f.store.addLead(3, 0)
	userID, _ := f.vendors.add(f.store)

	openCheckout(t, f, paid, userID)
	_, err := f.svc.Purchase(context.Background(), free, userID)
	require.NoError(t, err)

	resp, err := f.svc.ListPurchases(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	for _, item := range resp.Items {
		if item.Status == "completed" {
			require.NotNil(t, item.Lead)
			assert.Equal(t, "buyer@customer.test", item.Lead.ContactEmail)
		} else {
			assert.Nil(t, item.Lead)
		}
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"leadmarket_backend/internal/allocation/payment"
	"leadmarket_backend/internal/allocation/repository"
	"leadmarket_backend/internal/events"
	leadsrepo "leadmarket_backend/internal/leads/repository"
	vendorrepo "leadmarket_backend/internal/vendors/repository"
	"leadmarket_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memStore applies every repository operation under one mutex, which gives
// the same atomicity as the SQL transactions.
type memStore struct {
	mu             sync.Mutex
	leads          map[uuid.UUID]*leadsrepo.Lead
	purchases      map[uuid.UUID]*repository.Purchase
	order          []uuid.UUID
	vendorEmails   map[uuid.UUID]string
	leadsPurchased map[uuid.UUID]int
	leadsClosed    map[uuid.UUID]int
}

func newMemStore() *memStore {
	return &memStore{
		leads:          map[uuid.UUID]*leadsrepo.Lead{},
		purchases:      map[uuid.UUID]*repository.Purchase{},
		vendorEmails:   map[uuid.UUID]string{},
		leadsPurchased: map[uuid.UUID]int{},
		leadsClosed:    map[uuid.UUID]int{},
	}
}

func (m *memStore) addLead(maxSales int, price int64) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.leads[id] = &leadsrepo.Lead{
		ID:        id,
		JobType:   "itad",
		LeadTier:  "premium",
		LeadPrice: decimal.NewFromInt(price),
		MaxSales:  maxSales,
		Status:    leadsrepo.StatusAvailable,
	}
	return id
}

func (m *memStore) lead(id uuid.UUID) leadsrepo.Lead {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.leads[id]
}

func (m *memStore) purchase(id uuid.UUID) repository.Purchase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.purchases[id]
}

func (m *memStore) setLeadStatus(id uuid.UUID, status leadsrepo.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[id].Status = status
}

func (m *memStore) GetLead(_ context.Context, leadID uuid.UUID) (leadsrepo.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[leadID]
	if !ok {
		return leadsrepo.Lead{}, apperr.NotFound("lead not found")
	}
	return *l, nil
}

func (m *memStore) HasActivePurchase(_ context.Context, leadID, vendorID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activePairLocked(leadID, vendorID, uuid.Nil), nil
}

func (m *memStore) activePairLocked(leadID, vendorID, except uuid.UUID) bool {
	for _, p := range m.purchases {
		if p.ID != except && p.LeadID == leadID && p.VendorID == vendorID && p.Status != repository.StatusExpired && p.Status != repository.StatusRefundRequired {
			return true
		}
	}
	return false
}

func (m *memStore) incrementLocked(leadID uuid.UUID) (repository.Allocation, bool) {
	l := m.leads[leadID]
	if l == nil || l.Status != leadsrepo.StatusAvailable || l.SoldCount >= l.MaxSales {
		return repository.Allocation{}, false
	}
	l.SoldCount++
	if l.SoldCount >= l.MaxSales {
		l.Status = leadsrepo.StatusSold
	}
	return repository.Allocation{Allocated: true, NewSoldCount: l.SoldCount}, true
}

func (m *memStore) insertLocked(p repository.Purchase) repository.Purchase {
	p.ID = uuid.New()
	p.Outcome = repository.OutcomePending
	p.CreatedAt = time.Now()
	m.purchases[p.ID] = &p
	m.order = append(m.order, p.ID)
	return p
}

func (m *memStore) AllocateCompleted(_ context.Context, p repository.AllocateParams) (repository.Purchase, repository.Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activePairLocked(p.LeadID, p.VendorID, uuid.Nil) {
		return repository.Purchase{}, repository.Allocation{}, apperr.Conflict("duplicate")
	}
	allocation, ok := m.incrementLocked(p.LeadID)
	if !ok {
		return repository.Purchase{}, repository.Allocation{}, nil
	}
	now := time.Now()
	purchase := m.insertLocked(repository.Purchase{
		LeadID: p.LeadID, VendorID: p.VendorID, PricePaid: p.PricePaid,
		Status: repository.StatusCompleted, CompletedAt: &now,
	})
	m.leadsPurchased[p.VendorID]++
	return purchase, allocation, nil
}

func (m *memStore) CreatePending(_ context.Context, p repository.PendingParams) (repository.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activePairLocked(p.LeadID, p.VendorID, uuid.Nil) {
		return repository.Purchase{}, apperr.Conflict("duplicate")
	}
	session := p.CheckoutSessionID
	return m.insertLocked(repository.Purchase{
		LeadID: p.LeadID, VendorID: p.VendorID, PricePaid: p.PricePaid,
		Status: repository.StatusPending, CheckoutSessionID: &session,
	}), nil
}

func (m *memStore) bySessionLocked(sessionID string) *repository.Purchase {
	for _, p := range m.purchases {
		if p.CheckoutSessionID != nil && *p.CheckoutSessionID == sessionID {
			return p
		}
	}
	return nil
}

func (m *memStore) ConfirmBySession(_ context.Context, sessionID string) (repository.Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.bySessionLocked(sessionID)
	if p == nil {
		return repository.Confirmation{}, apperr.NotFound("purchase not found")
	}
	if p.Status.Settled() {
		return repository.Confirmation{Purchase: *p, AlreadySettled: true}, nil
	}
	var allocation repository.Allocation
	ok := !m.activePairLocked(p.LeadID, p.VendorID, p.ID)
	if ok {
		allocation, ok = m.incrementLocked(p.LeadID)
	}
	if !ok {
		p.Status = repository.StatusRefundRequired
		return repository.Confirmation{Purchase: *p}, nil
	}
	now := time.Now()
	p.Status = repository.StatusCompleted
	p.CompletedAt = &now
	m.leadsPurchased[p.VendorID]++
	return repository.Confirmation{
		Purchase:    *p,
		Allocation:  allocation,
		MaxSales:    m.leads[p.LeadID].MaxSales,
		VendorEmail: m.vendorEmails[p.VendorID],
	}, nil
}

func (m *memStore) expireLocked(p *repository.Purchase) (repository.Purchase, bool, error) {
	if p == nil || p.Status != repository.StatusPending {
		return repository.Purchase{}, false, nil
	}
	p.Status = repository.StatusExpired
	return *p, true, nil
}

func (m *memStore) ExpireByID(_ context.Context, id uuid.UUID) (repository.Purchase, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expireLocked(m.purchases[id])
}

func (m *memStore) ExpireBySession(_ context.Context, sessionID string) (repository.Purchase, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expireLocked(m.bySessionLocked(sessionID))
}

func (m *memStore) ListStalePending(_ context.Context, before time.Time, limit int) ([]repository.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Purchase
	for _, id := range m.order {
		p := m.purchases[id]
		if p.Status == repository.StatusPending && p.CreatedAt.Before(before) && len(out) < limit {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) ListByVendor(_ context.Context, vendorID uuid.UUID) ([]repository.PurchaseWithLead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.PurchaseWithLead
	for _, id := range m.order {
		p := m.purchases[id]
		if p.VendorID != vendorID || p.Status == repository.StatusExpired {
			continue
		}
		l := m.leads[p.LeadID]
		out = append(out, repository.PurchaseWithLead{
			Purchase: *p,
			Lead:     repository.PurchasedLead{JobType: l.JobType, ContactEmail: "buyer@customer.test"},
		})
	}
	return out, nil
}

func (m *memStore) ReportOutcome(_ context.Context, purchaseID, vendorID uuid.UUID, outcome repository.Outcome) (repository.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.purchases[purchaseID]
	if p == nil || p.VendorID != vendorID {
		return repository.Purchase{}, apperr.NotFound("purchase not found")
	}
	if p.Status != repository.StatusCompleted {
		return repository.Purchase{}, apperr.BadRequest("purchase is not completed")
	}
	if p.Outcome != repository.OutcomePending {
		return repository.Purchase{}, apperr.Conflict("outcome already reported")
	}
	now := time.Now()
	p.Outcome = outcome
	p.OutcomeReportedAt = &now
	if outcome == repository.OutcomeWon {
		m.leadsClosed[vendorID]++
	}
	return *p, nil
}

type fakeVendors struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]*vendorrepo.Vendor
}

func newFakeVendors() *fakeVendors {
	return &fakeVendors{byUser: map[uuid.UUID]*vendorrepo.Vendor{}}
}

// add registers an approved vendor and returns its owning user id.
func (f *fakeVendors) add(store *memStore) (uuid.UUID, vendorrepo.Vendor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := &vendorrepo.Vendor{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Email:    "vendor@example.test",
		IsActive: true,
		Status:   vendorrepo.StatusApproved,
	}
	f.byUser[v.UserID] = v
	store.mu.Lock()
	store.vendorEmails[v.ID] = v.Email
	store.mu.Unlock()
	return v.UserID, *v
}

func (f *fakeVendors) RequireApprovedVendor(_ context.Context, userID uuid.UUID) (vendorrepo.Vendor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byUser[userID]
	if !ok || !v.CanPurchase() {
		return vendorrepo.Vendor{}, apperr.Forbidden("an approved, active vendor account is required")
	}
	return *v, nil
}

func (f *fakeVendors) SetPaymentCustomerID(_ context.Context, vendorID uuid.UUID, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.byUser {
		if v.ID != vendorID {
			continue
		}
		if v.PaymentCustomerID != nil {
			return apperr.Conflict("payment customer already set")
		}
		v.PaymentCustomerID = &customerID
		return nil
	}
	return apperr.NotFound("vendor not found")
}

type fakeGateway struct {
	mu        sync.Mutex
	err       error
	customers int
	checkouts []payment.CheckoutParams
	expired   []string
	expiresAt time.Time
}

func (g *fakeGateway) CreateCustomer(context.Context, payment.CustomerParams) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.customers++
	return "cus_test", nil
}

func (g *fakeGateway) CreateCheckout(_ context.Context, p payment.CheckoutParams) (payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return payment.CheckoutSession{}, g.err
	}
	g.checkouts = append(g.checkouts, p)
	id := "cs_" + uuid.NewString()
	return payment.CheckoutSession{ID: id, URL: "https://checkout.test/" + id, ExpiresAt: g.expiresAt}, nil
}

func (g *fakeGateway) ExpireCheckout(_ context.Context, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expired = append(g.expired, sessionID)
	return nil
}

type fakeScheduler struct {
	mu    sync.Mutex
	runAt map[uuid.UUID]time.Time
	err   error
}

func (s *fakeScheduler) SchedulePurchaseExpiry(_ context.Context, purchaseID uuid.UUID, runAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.runAt == nil {
		s.runAt = map[uuid.UUID]time.Time{}
	}
	s.runAt[purchaseID] = runAt
	return nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) subscribe(bus *events.InMemoryBus, names ...string) {
	for _, name := range names {
		bus.Subscribe(name, events.HandlerFunc(func(_ context.Context, e events.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, e)
			return nil
		}))
	}
}

func (r *eventRecorder) named(name string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

var errGatewayDown = errors.New("stripe: connection refused")

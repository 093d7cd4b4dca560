package notification

import (
	"context"
	"errors"
	"testing"

	"leadmarket_backend/internal/email"
	"leadmarket_backend/internal/events"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type testSender struct {
	newLeadTo []string
	receiptTo []string
	overCapTo []string
	failNext  error
}

func (s *testSender) SendNewLeadEmail(_ context.Context, to string, _ email.NewLead) error {
	s.newLeadTo = append(s.newLeadTo, to)
	return s.failNext
}

func (s *testSender) SendPurchaseReceiptEmail(_ context.Context, to string, _ email.PurchaseReceipt) error {
	s.receiptTo = append(s.receiptTo, to)
	return s.failNext
}

func (s *testSender) SendOverCapAlertEmail(_ context.Context, to string, _ email.OverCapAlert) error {
	s.overCapTo = append(s.overCapTo, to)
	return s.failNext
}

type testDirectory map[uuid.UUID]string

func (d testDirectory) ContactEmail(_ context.Context, vendorID uuid.UUID) (string, error) {
	addr, ok := d[vendorID]
	if !ok {
		return "", apperr.NotFound("vendor not found")
	}
	return addr, nil
}

func newTestModule(opsEmail string, vendors testDirectory) (*Module, *testSender) {
	sender := &testSender{}
	cfg := &config.Config{OpsAlertEmail: opsEmail}
	return New(sender, vendors, cfg, logger.Nop()), sender
}

func TestLeadCreatedEmailsMatchedVendor(t *testing.T) {
	vendorID := uuid.New()
	m, sender := newTestModule("", testDirectory{vendorID: "vendor@example.test"})
	err := m.Handle(context.Background(), events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		JobType:   "itad",
		LeadPrice: decimal.NewFromInt(100),
		VendorID:  &vendorID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.newLeadTo) != 1 || sender.newLeadTo[0] != "vendor@example.test" {
		t.Fatalf("expected one email to the vendor, got %v", sender.newLeadTo)
	}
}

func TestLeadCreatedForDeletedVendorSendsNothing(t *testing.T) {
	vendorID := uuid.New()
	m, sender := newTestModule("", testDirectory{})
	if err := m.Handle(context.Background(), events.LeadCreated{LeadID: uuid.New(), VendorID: &vendorID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.newLeadTo) != 0 {
		t.Fatalf("expected no email, got %v", sender.newLeadTo)
	}
}

func TestLeadCreatedWithoutVendorSendsNothing(t *testing.T) {
	m, sender := newTestModule("", nil)
	if err := m.Handle(context.Background(), events.LeadCreated{LeadID: uuid.New()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.newLeadTo) != 0 {
		t.Fatalf("expected no email, got %v", sender.newLeadTo)
	}
}

func TestPurchaseCompletedSendsReceipt(t *testing.T) {
	m, sender := newTestModule("", nil)
	if err := m.Handle(context.Background(), events.LeadPurchaseCompleted{
		PurchaseID:  uuid.New(),
		VendorEmail: "buyer@example.test",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.receiptTo) != 1 {
		t.Fatalf("expected a receipt, got %v", sender.receiptTo)
	}
}

func TestOverCapAlertsOperations(t *testing.T) {
	m, sender := newTestModule("ops@example.test", nil)
	if err := m.Handle(context.Background(), events.LeadPurchaseOverCap{PurchaseID: uuid.New()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.overCapTo) != 1 || sender.overCapTo[0] != "ops@example.test" {
		t.Fatalf("expected alert to ops, got %v", sender.overCapTo)
	}
}

func TestOverCapWithoutOpsAddressIsLoggedOnly(t *testing.T) {
	m, sender := newTestModule("", nil)
	if err := m.Handle(context.Background(), events.LeadPurchaseOverCap{PurchaseID: uuid.New()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.overCapTo) != 0 {
		t.Fatalf("expected no alert, got %v", sender.overCapTo)
	}
}

func TestSenderFailureIsReturned(t *testing.T) {
	m, sender := newTestModule("", nil)
	sender.failNext = errors.New("smtp down")
	err := m.Handle(context.Background(), events.LeadPurchaseCompleted{VendorEmail: "buyer@example.test"})
	if err == nil {
		t.Fatal("expected sender error to propagate")
	}
}

func TestRegisterHandlersDeliversThroughBus(t *testing.T) {
	m, sender := newTestModule("", nil)
	bus := events.NewInMemoryBus(logger.Nop())
	m.RegisterHandlers(bus)

	if err := bus.PublishSync(context.Background(), events.LeadPurchaseCompleted{VendorEmail: "buyer@example.test"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.receiptTo) != 1 {
		t.Fatalf("expected receipt via bus, got %v", sender.receiptTo)
	}
}

// Package service sells leads to vendors without ever exceeding a lead's
// max_sales, either directly or through hosted checkout.
package service

import (
	"context"
	"fmt"
	"time"

	"leadmarket_backend/internal/allocation/payment"
	"leadmarket_backend/internal/allocation/repository"
	"leadmarket_backend/internal/allocation/transport"
	"leadmarket_backend/internal/events"
	leadsrepo "leadmarket_backend/internal/leads/repository"
	vendorrepo "leadmarket_backend/internal/vendors/repository"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/metrics"

	"github.com/google/uuid"
)

const (
	branchCheckout = "checkout"
	branchDirect   = "direct"
	branchConfirm  = "confirm"
)

const (
	resultCompleted        = "completed"
	resultCheckoutOpened   = "checkout_opened"
	resultForbidden        = "forbidden"
	resultNotFound         = "not_found"
	resultNotAvailable     = "not_available"
	resultCapacityExceeded = "capacity_exceeded"
	resultDuplicate        = "duplicate"
	resultGatewayError     = "gateway_error"
	resultOverCap          = "over_cap"
	resultError            = "error"
)

const (
	msgLeadNotAvailable   = "lead is not available for purchase"
	msgCapacityExceeded   = "lead has reached its sales limit"
	msgDuplicatePurchase  = "lead already purchased by this vendor"
	msgPaymentUnavailable = "payment provider unavailable, please retry"
	msgInvalidOutcome     = "outcome must be one of won, lost, no_response"
	msgSessionIDRequired  = "checkout session id is required"
)

const (
	checkoutExpiryGrace    = 5 * time.Minute
	defaultStaleSweepLimit = 100
)

// VendorDirectory resolves the calling vendor and stores payment customer ids.
type VendorDirectory interface {
	RequireApprovedVendor(ctx context.Context, userID uuid.UUID) (vendorrepo.Vendor, error)
	SetPaymentCustomerID(ctx context.Context, vendorID uuid.UUID, customerID string) error
}

// PaymentGateway opens and closes hosted checkouts.
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, p payment.CustomerParams) (string, error)
	CreateCheckout(ctx context.Context, p payment.CheckoutParams) (payment.CheckoutSession, error)
	ExpireCheckout(ctx context.Context, sessionID string) error
}

// ExpiryScheduler arranges for an unpaid checkout to be released later.
type ExpiryScheduler interface {
	SchedulePurchaseExpiry(ctx context.Context, purchaseID uuid.UUID, runAt time.Time) error
}

// Service implements lead purchasing.
type Service struct {
	repo      repository.Repository
	vendors   VendorDirectory
	gateway   PaymentGateway
	scheduler ExpiryScheduler
	eventBus  events.Bus
	log       *logger.Logger
}

// New creates an allocation service that completes every purchase directly.
// Call SetPaymentGateway to route priced leads through checkout.
func New(repo repository.Repository, vendors VendorDirectory, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, vendors: vendors, eventBus: eventBus, log: log}
}

// SetPaymentGateway enables hosted checkout for priced leads.
func (s *Service) SetPaymentGateway(gateway PaymentGateway) {
	s.gateway = gateway
}

// SetExpiryScheduler enables delayed release of abandoned checkouts.
func (s *Service) SetExpiryScheduler(scheduler ExpiryScheduler) {
	s.scheduler = scheduler
}

// Purchase sells leadID to the vendor owned by userID.
func (s *Service) Purchase(ctx context.Context, leadID, userID uuid.UUID) (transport.PurchaseResult, error) {
	branch := branchDirect
	if s.gateway != nil {
		branch = branchCheckout
	}

	vendor, err := s.vendors.RequireApprovedVendor(ctx, userID)
	if err != nil {
		return transport.PurchaseResult{}, s.fail(branch, err)
	}

	lead, err := s.checkEligibility(ctx, leadID, vendor.ID)
	if err != nil {
		return transport.PurchaseResult{}, s.fail(branch, err)
	}

	if s.gateway == nil || !lead.LeadPrice.IsPositive() {
		return s.purchaseDirect(ctx, lead, vendor)
	}
	return s.purchaseWithCheckout(ctx, lead, vendor)
}

func (s *Service) checkEligibility(ctx context.Context, leadID, vendorID uuid.UUID) (leadsrepo.Lead, error) {
	lead, err := s.repo.GetLead(ctx, leadID)
	if err != nil {
		return leadsrepo.Lead{}, err
	}
	if lead.Status != leadsrepo.StatusAvailable {
		return leadsrepo.Lead{}, apperr.BadRequest(msgLeadNotAvailable)
	}
	if lead.SoldCount >= lead.MaxSales {
		return leadsrepo.Lead{}, apperr.BadRequest(msgCapacityExceeded)
	}

	exists, err := s.repo.HasActivePurchase(ctx, leadID, vendorID)
	if err != nil {
		return leadsrepo.Lead{}, err
	}
	if exists {
		return leadsrepo.Lead{}, apperr.Conflict(msgDuplicatePurchase)
	}
	return lead, nil
}

func (s *Service) purchaseDirect(ctx context.Context, lead leadsrepo.Lead, vendor vendorrepo.Vendor) (transport.PurchaseResult, error) {
	purchase, allocation, err := s.repo.AllocateCompleted(ctx, repository.AllocateParams{
		LeadID:    lead.ID,
		VendorID:  vendor.ID,
		PricePaid: lead.LeadPrice,
	})
	if err != nil {
		return transport.PurchaseResult{}, s.fail(branchDirect, err)
	}
	if !allocation.Allocated {
		metrics.PurchaseAttempts.WithLabelValues(branchDirect, resultCapacityExceeded).Inc()
		return transport.PurchaseResult{}, apperr.BadRequest(msgCapacityExceeded)
	}

	metrics.PurchaseAttempts.WithLabelValues(branchDirect, resultCompleted).Inc()
	s.eventBus.Publish(ctx, events.LeadPurchaseCompleted{
		BaseEvent:    events.NewBaseEvent(),
		PurchaseID:   purchase.ID,
		LeadID:       lead.ID,
		VendorID:     vendor.ID,
		VendorEmail:  vendor.Email,
		PricePaid:    purchase.PricePaid,
		NewSoldCount: allocation.NewSoldCount,
		MaxSales:     lead.MaxSales,
	})
	s.log.WithContext(ctx).Info("lead purchased",
		"purchaseId", purchase.ID, "leadId", lead.ID, "vendorId", vendor.ID,
		"soldCount", allocation.NewSoldCount, "maxSales", lead.MaxSales)

	resp := toResponse(purchase, nil)
	return transport.PurchaseResult{Purchase: &resp}, nil
}

func (s *Service) purchaseWithCheckout(ctx context.Context, lead leadsrepo.Lead, vendor vendorrepo.Vendor) (transport.PurchaseResult, error) {
	log := s.log.WithContext(ctx)

	customerID, err := s.ensureCustomer(ctx, vendor)
	if err != nil {
		return transport.PurchaseResult{}, s.fail(branchCheckout, err)
	}

	session, err := s.gateway.CreateCheckout(ctx, payment.CheckoutParams{
		CustomerID:  customerID,
		LeadID:      lead.ID,
		VendorID:    vendor.ID,
		Amount:      lead.LeadPrice,
		Description: fmt.Sprintf("%s lead (%s tier)", lead.JobType, lead.LeadTier),
	})
	if err != nil {
		log.UpstreamFallback("payments", "create checkout failed", err)
		return transport.PurchaseResult{}, s.fail(branchCheckout, apperr.Unavailable(msgPaymentUnavailable, err))
	}

	purchase, err := s.repo.CreatePending(ctx, repository.PendingParams{
		LeadID:            lead.ID,
		VendorID:          vendor.ID,
		PricePaid:         lead.LeadPrice,
		CheckoutSessionID: session.ID,
	})
	if err != nil {
		if expireErr := s.gateway.ExpireCheckout(ctx, session.ID); expireErr != nil {
			log.Warn("failed to close orphaned checkout session", "sessionId", session.ID, "error", expireErr)
		}
		return transport.PurchaseResult{}, s.fail(branchCheckout, err)
	}

	if s.scheduler != nil {
		if err := s.scheduler.SchedulePurchaseExpiry(ctx, purchase.ID, session.ExpiresAt.Add(checkoutExpiryGrace)); err != nil {
			log.Warn("failed to schedule checkout expiry, sweeper will release it", "purchaseId", purchase.ID, "error", err)
		}
	}

	metrics.PurchaseAttempts.WithLabelValues(branchCheckout, resultCheckoutOpened).Inc()
	s.eventBus.Publish(ctx, events.LeadPurchasePending{
		BaseEvent:         events.NewBaseEvent(),
		PurchaseID:        purchase.ID,
		LeadID:            lead.ID,
		VendorID:          vendor.ID,
		PricePaid:         purchase.PricePaid,
		CheckoutSessionID: session.ID,
	})
	log.Info("lead checkout opened", "purchaseId", purchase.ID, "leadId", lead.ID, "vendorId", vendor.ID)

	url := session.URL
	return transport.PurchaseResult{CheckoutURL: &url}, nil
}

// ensureCustomer returns the vendor's payment customer id, creating it on first
// checkout. When a concurrent checkout stored one first, that id wins.
func (s *Service) ensureCustomer(ctx context.Context, vendor vendorrepo.Vendor) (string, error) {
	if vendor.PaymentCustomerID != nil && *vendor.PaymentCustomerID != "" {
		return *vendor.PaymentCustomerID, nil
	}

	customerID, err := s.gateway.CreateCustomer(ctx, payment.CustomerParams{
		VendorID:    vendor.ID,
		Email:       vendor.Email,
		CompanyName: vendor.CompanyName,
	})
	if err != nil {
		s.log.WithContext(ctx).UpstreamFallback("payments", "create customer failed", err)
		return "", apperr.Unavailable(msgPaymentUnavailable, err)
	}

	err = s.vendors.SetPaymentCustomerID(ctx, vendor.ID, customerID)
	if err == nil {
		return customerID, nil
	}
	if !apperr.Is(err, apperr.KindConflict) {
		return "", err
	}

	reloaded, err := s.vendors.RequireApprovedVendor(ctx, vendor.UserID)
	if err != nil {
		return "", err
	}
	if reloaded.PaymentCustomerID == nil {
		return "", apperr.Internal("payment customer id missing after conflict")
	}
	s.log.WithContext(ctx).Warn("discarding duplicate payment customer", "vendorId", vendor.ID, "customerId", customerID)
	return *reloaded.PaymentCustomerID, nil
}

// ConfirmCheckout completes the purchase of a paid checkout session. A payment
// that arrives after the lead sold out is flagged refund_required and reported
// once for a manual refund; that is not an error for the caller.
func (s *Service) ConfirmCheckout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperr.Validation(msgSessionIDRequired)
	}
	log := s.log.WithContext(ctx)

	conf, err := s.repo.ConfirmBySession(ctx, sessionID)
	if err != nil {
		return s.fail(branchConfirm, err)
	}
	if conf.AlreadySettled {
		log.Info("checkout already settled", "sessionId", sessionID, "purchaseId", conf.Purchase.ID)
		return nil
	}

	if !conf.Allocation.Allocated {
		metrics.PurchaseAttempts.WithLabelValues(branchConfirm, resultOverCap).Inc()
		log.Error("paid checkout exceeds lead capacity, refund required",
			"sessionId", sessionID, "purchaseId", conf.Purchase.ID, "leadId", conf.Purchase.LeadID,
			"vendorId", conf.Purchase.VendorID, "pricePaid", conf.Purchase.PricePaid.String())
		s.eventBus.Publish(ctx, events.LeadPurchaseOverCap{
			BaseEvent:         events.NewBaseEvent(),
			PurchaseID:        conf.Purchase.ID,
			LeadID:            conf.Purchase.LeadID,
			VendorID:          conf.Purchase.VendorID,
			PricePaid:         conf.Purchase.PricePaid,
			CheckoutSessionID: sessionID,
		})
		return nil
	}

	metrics.PurchaseAttempts.WithLabelValues(branchConfirm, resultCompleted).Inc()
	s.eventBus.Publish(ctx, events.LeadPurchaseCompleted{
		BaseEvent:    events.NewBaseEvent(),
		PurchaseID:   conf.Purchase.ID,
		LeadID:       conf.Purchase.LeadID,
		VendorID:     conf.Purchase.VendorID,
		VendorEmail:  conf.VendorEmail,
		PricePaid:    conf.Purchase.PricePaid,
		NewSoldCount: conf.Allocation.NewSoldCount,
		MaxSales:     conf.MaxSales,
	})
	log.Info("checkout confirmed", "purchaseId", conf.Purchase.ID, "leadId", conf.Purchase.LeadID,
		"soldCount", conf.Allocation.NewSoldCount, "maxSales", conf.MaxSales)
	return nil
}

// ExpireCheckout releases the pending purchase of an expired checkout session.
func (s *Service) ExpireCheckout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperr.Validation(msgSessionIDRequired)
	}
	purchase, expired, err := s.repo.ExpireBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	if expired {
		s.publishExpired(ctx, purchase)
	}
	return nil
}

// ExpirePendingPurchase releases a purchase whose checkout was never paid and
// closes the provider session so it can no longer be paid.
func (s *Service) ExpirePendingPurchase(ctx context.Context, purchaseID uuid.UUID) error {
	purchase, expired, err := s.repo.ExpireByID(ctx, purchaseID)
	if err != nil {
		return err
	}
	if !expired {
		return nil
	}

	if s.gateway != nil && purchase.CheckoutSessionID != nil {
		if err := s.gateway.ExpireCheckout(ctx, *purchase.CheckoutSessionID); err != nil {
			s.log.WithContext(ctx).Warn("failed to close checkout session", "purchaseId", purchase.ID, "error", err)
		}
	}
	s.publishExpired(ctx, purchase)
	return nil
}

// ExpireStalePending releases pending purchases created before createdBefore.
// It returns how many were expired.
func (s *Service) ExpireStalePending(ctx context.Context, createdBefore time.Time) (int, error) {
	stale, err := s.repo.ListStalePending(ctx, createdBefore, defaultStaleSweepLimit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, p := range stale {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if err := s.ExpirePendingPurchase(ctx, p.ID); err != nil {
			s.log.WithContext(ctx).Warn("failed to expire stale purchase", "purchaseId", p.ID, "error", err)
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *Service) publishExpired(ctx context.Context, p repository.Purchase) {
	s.eventBus.Publish(ctx, events.LeadPurchaseExpired{
		BaseEvent:  events.NewBaseEvent(),
		PurchaseID: p.ID,
		LeadID:     p.LeadID,
		VendorID:   p.VendorID,
	})
	s.log.WithContext(ctx).Info("pending purchase expired", "purchaseId", p.ID, "leadId", p.LeadID)
}

// ReportOutcome records how a purchased lead ended for the owning vendor.
func (s *Service) ReportOutcome(ctx context.Context, userID, purchaseID uuid.UUID, outcome string) (transport.PurchaseResponse, error) {
	o := repository.Outcome(outcome)
	if !o.Reportable() {
		return transport.PurchaseResponse{}, apperr.Validation(msgInvalidOutcome)
	}

	vendor, err := s.vendors.RequireApprovedVendor(ctx, userID)
	if err != nil {
		return transport.PurchaseResponse{}, err
	}

	purchase, err := s.repo.ReportOutcome(ctx, purchaseID, vendor.ID, o)
	if err != nil {
		return transport.PurchaseResponse{}, err
	}

	s.eventBus.Publish(ctx, events.LeadOutcomeReported{
		BaseEvent:  events.NewBaseEvent(),
		PurchaseID: purchase.ID,
		LeadID:     purchase.LeadID,
		VendorID:   purchase.VendorID,
		Outcome:    string(o),
	})
	return toResponse(purchase, nil), nil
}

// ListPurchases returns the calling vendor's purchases. Lead contact details
// are included only for completed purchases.
func (s *Service) ListPurchases(ctx context.Context, userID uuid.UUID) (transport.PurchaseListResponse, error) {
	vendor, err := s.vendors.RequireApprovedVendor(ctx, userID)
	if err != nil {
		return transport.PurchaseListResponse{}, err
	}

	items, err := s.repo.ListByVendor(ctx, vendor.ID)
	if err != nil {
		return transport.PurchaseListResponse{}, err
	}

	resp := transport.PurchaseListResponse{Items: make([]transport.PurchaseResponse, 0, len(items))}
	for _, item := range items {
		var lead *repository.PurchasedLead
		if item.Status == repository.StatusCompleted {
			lead = &item.Lead
		}
		resp.Items = append(resp.Items, toResponse(item.Purchase, lead))
	}
	return resp, nil
}

// fail counts a rejected attempt and returns err unchanged.
func (s *Service) fail(branch string, err error) error {
	metrics.PurchaseAttempts.WithLabelValues(branch, resultFor(err)).Inc()
	return err
}

func resultFor(err error) string {
	switch apperr.GetKind(err) {
	case apperr.KindForbidden:
		return resultForbidden
	case apperr.KindNotFound:
		return resultNotFound
	case apperr.KindBadRequest:
		return resultNotAvailable
	case apperr.KindConflict:
		return resultDuplicate
	case apperr.KindUnavailable:
		return resultGatewayError
	default:
		return resultError
	}
}

func toResponse(p repository.Purchase, lead *repository.PurchasedLead) transport.PurchaseResponse {
	resp := transport.PurchaseResponse{
		ID:                p.ID,
		LeadID:            p.LeadID,
		PricePaid:         p.PricePaid,
		Status:            string(p.Status),
		Outcome:           string(p.Outcome),
		CreatedAt:         p.CreatedAt,
		CompletedAt:       p.CompletedAt,
		OutcomeReportedAt: p.OutcomeReportedAt,
	}
	if lead != nil {
		resp.Lead = &transport.PurchasedLeadResponse{
			JobType:        lead.JobType,
			OriginZip:      lead.OriginZip,
			DestinationZip: lead.DestinationZip,
			CompanyName:    lead.CompanyName,
			ContactName:    lead.ContactName,
			ContactEmail:   lead.ContactEmail,
			ContactPhone:   lead.ContactPhone,
		}
	}
	return resp
}

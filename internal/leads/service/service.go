// Package service handles lead submission and the vendor marketplace listing.
package service

import (
	"context"
	"strings"

	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/internal/leads/transport"
	pricingsvc "leadmarket_backend/internal/pricing/service"
	vendorrepo "leadmarket_backend/internal/vendors/repository"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/phone"
	"leadmarket_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Quoter prices a job and never fails on upstream errors.
type Quoter interface {
	QuoteWithFallback(ctx context.Context, in pricingsvc.QuoteInput) (pricingsvc.Quote, error)
}

// LeadPricer prices a lead for the marketplace.
type LeadPricer interface {
	Price(ctx context.Context, jobType, companySize string) (pricingsvc.LeadTier, decimal.Decimal)
}

// VendorMatcher picks a vendor for a new lead.
type VendorMatcher interface {
	MatchVendor(ctx context.Context, jobType string) (*vendorrepo.Vendor, error)
}

// ApprovedVendorGuard rejects callers without an approved vendor account.
type ApprovedVendorGuard interface {
	RequireApprovedVendor(ctx context.Context, userID uuid.UUID) (vendorrepo.Vendor, error)
}

// Service provides lead operations.
type Service struct {
	repo            repository.Repository
	quoter          Quoter
	pricer          LeadPricer
	matcher         VendorMatcher
	vendors         ApprovedVendorGuard
	eventBus        events.Bus
	defaultMaxSales int
	log             *logger.Logger
}

// New creates a new leads service.
func New(repo repository.Repository, quoter Quoter, pricer LeadPricer, matcher VendorMatcher, vendors ApprovedVendorGuard, eventBus events.Bus, defaultMaxSales int, log *logger.Logger) *Service {
	if defaultMaxSales < 1 {
		defaultMaxSales = 1
	}
	return &Service{
		repo:            repo,
		quoter:          quoter,
		pricer:          pricer,
		matcher:         matcher,
		vendors:         vendors,
		eventBus:        eventBus,
		defaultMaxSales: defaultMaxSales,
		log:             log,
	}
}

// Submit prices, matches and stores a customer job request. Quoting and
// vendor matching run concurrently; a matching failure leaves the lead
// unassigned rather than failing the submission.
func (s *Service) Submit(ctx context.Context, req transport.SubmitLeadRequest) (transport.SubmitLeadResponse, error) {
	req = normalize(req)
	log := s.log.WithContext(ctx)

	input := pricingsvc.QuoteInput{
		JobType:              req.JobType,
		OriginZip:            req.OriginZip,
		DestinationZip:       req.DestinationZip,
		Assets:               pricingsvc.AssetCounts{Racks: req.NumberOfRacks, LooseAssets: req.NumberOfLooseAssets},
		HandlingRequirements: req.HandlingRequirements,
		Compliance: pricingsvc.ComplianceFlags{
			DataDestruction:          req.DataDestructionRequired,
			CertificateOfDestruction: req.CertificateOfDestruction,
			ChainOfCustody:           req.ChainOfCustody,
			SecurityClearance:        req.SecurityClearanceRequired,
		},
	}

	var (
		quote  pricingsvc.Quote
		vendor *vendorrepo.Vendor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quote, err = s.quoter.QuoteWithFallback(gctx, input)
		return err
	})
	g.Go(func() error {
		matched, err := s.matcher.MatchVendor(gctx, req.JobType)
		if err != nil {
			log.Warn("vendor matching failed, lead left unassigned", "error", err, "jobType", req.JobType)
			return nil
		}
		vendor = matched
		return nil
	})
	if err := g.Wait(); err != nil {
		return transport.SubmitLeadResponse{}, err
	}

	tier, price := s.pricer.Price(ctx, req.JobType, req.CompanySize)

	params := repository.CreateParams{
		JobType:                   req.JobType,
		OriginZip:                 quote.Distance.OriginZip,
		DestinationZip:            quote.Distance.DestinationZip,
		CompanyName:               req.CompanyName,
		CompanySize:               req.CompanySize,
		ContactName:               req.ContactName,
		ContactEmail:              req.ContactEmail,
		ContactPhone:              req.ContactPhone,
		NumberOfRacks:             req.NumberOfRacks,
		NumberOfLooseAssets:       req.NumberOfLooseAssets,
		HandlingRequirements:      req.HandlingRequirements,
		DataDestructionRequired:   req.DataDestructionRequired,
		CertificateOfDestruction:  req.CertificateOfDestruction,
		ChainOfCustody:            req.ChainOfCustody,
		SecurityClearanceRequired: req.SecurityClearanceRequired,
		DistanceMiles:             decimal.NewFromFloat(quote.Distance.Miles),
		DistanceSource:            string(quote.Distance.Source),
		QuoteLow:                  quote.Low,
		QuoteHigh:                 quote.High,
		QuoteSource:               string(quote.Source),
		LeadPrice:                 price,
		LeadTier:                  string(tier),
		MaxSales:                  s.defaultMaxSales,
	}
	if vendor != nil {
		params.VendorID = &vendor.ID
	}

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		log.DatabaseError("create lead", err)
		return transport.SubmitLeadResponse{}, err
	}

	created := events.LeadCreated{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.ID,
		JobType:     lead.JobType,
		LeadTier:    lead.LeadTier,
		LeadPrice:   lead.LeadPrice,
		QuoteLow:    lead.QuoteLow,
		QuoteHigh:   lead.QuoteHigh,
		QuoteSource: lead.QuoteSource,
		VendorID:    lead.VendorID,
	}
	s.eventBus.Publish(ctx, created)

	log.Info("lead submitted", "leadId", lead.ID, "jobType", lead.JobType, "tier", lead.LeadTier, "quoteSource", lead.QuoteSource, "matched", vendor != nil)

	return transport.SubmitLeadResponse{
		ID:        lead.ID,
		QuoteLow:  lead.QuoteLow,
		QuoteHigh: lead.QuoteHigh,
		Distance:  quote.Distance,
	}, nil
}

// ListAvailable pages purchasable leads for an approved vendor.
func (s *Service) ListAvailable(ctx context.Context, userID uuid.UUID, req transport.ListAvailableRequest) (transport.LeadListResponse, error) {
	if _, err := s.vendors.RequireApprovedVendor(ctx, userID); err != nil {
		return transport.LeadListResponse{}, err
	}

	page, pageSize := req.Page, req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	params := repository.ListAvailableParams{Offset: (page - 1) * pageSize, Limit: pageSize}
	if jobType := sanitize.Token(req.JobType); jobType != "" {
		params.JobType = &jobType
	}

	items, total, err := s.repo.ListAvailable(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	resp := transport.LeadListResponse{Items: make([]transport.LeadResponse, 0, len(items)), Total: total, Page: page, PageSize: pageSize}
	for _, lead := range items {
		resp.Items = append(resp.Items, toResponse(lead))
	}
	return resp, nil
}

// Get returns one lead for an approved vendor.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (transport.LeadResponse, error) {
	if _, err := s.vendors.RequireApprovedVendor(ctx, userID); err != nil {
		return transport.LeadResponse{}, err
	}
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toResponse(lead), nil
}

func normalize(req transport.SubmitLeadRequest) transport.SubmitLeadRequest {
	req.JobType = sanitize.Token(req.JobType)
	req.CompanyName = sanitize.Text(req.CompanyName)
	req.CompanySize = strings.TrimSpace(req.CompanySize)
	req.ContactName = sanitize.Text(req.ContactName)
	req.ContactEmail = strings.ToLower(strings.TrimSpace(req.ContactEmail))
	req.ContactPhone = phone.NormalizeE164(req.ContactPhone)
	req.HandlingRequirements = sanitize.Tokens(req.HandlingRequirements)
	return req
}

func toResponse(l repository.Lead) transport.LeadResponse {
	handling := l.HandlingRequirements
	if handling == nil {
		handling = []string{}
	}
	return transport.LeadResponse{
		ID:                        l.ID,
		JobType:                   l.JobType,
		OriginZip:                 l.OriginZip,
		DestinationZip:            l.DestinationZip,
		CompanySize:               l.CompanySize,
		NumberOfRacks:             l.NumberOfRacks,
		NumberOfLooseAssets:       l.NumberOfLooseAssets,
		HandlingRequirements:      handling,
		DataDestructionRequired:   l.DataDestructionRequired,
		CertificateOfDestruction:  l.CertificateOfDestruction,
		ChainOfCustody:            l.ChainOfCustody,
		SecurityClearanceRequired: l.SecurityClearanceRequired,
		DistanceMiles:             l.DistanceMiles,
		QuoteLow:                  l.QuoteLow,
		QuoteHigh:                 l.QuoteHigh,
		LeadPrice:                 l.LeadPrice,
		LeadTier:                  l.LeadTier,
		MaxSales:                  l.MaxSales,
		SoldCount:                 l.SoldCount,
		Status:                    string(l.Status),
		CreatedAt:                 l.CreatedAt,
	}
}

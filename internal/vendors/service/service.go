// Package service holds vendor account lookups and lead matching.
package service

import (
	"context"

	"leadmarket_backend/internal/vendors/repository"
	"leadmarket_backend/internal/vendors/transport"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
)

const msgNotApprovedVendor = "an approved, active vendor account is required"

// Service provides vendor account operations.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new vendors service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// GetByUserID returns the caller's vendor profile.
func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (transport.VendorResponse, error) {
	v, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return transport.VendorResponse{}, err
	}
	return toResponse(v), nil
}

// ContactEmail returns the address the vendor receives lead notifications at.
func (s *Service) ContactEmail(ctx context.Context, vendorID uuid.UUID) (string, error) {
	v, err := s.repo.GetByID(ctx, vendorID)
	if err != nil {
		return "", err
	}
	return v.Email, nil
}

// RequireApprovedVendor resolves the caller's vendor account and rejects it
// with 403 unless it is active and approved.
func (s *Service) RequireApprovedVendor(ctx context.Context, userID uuid.UUID) (repository.Vendor, error) {
	v, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return repository.Vendor{}, apperr.Forbidden(msgNotApprovedVendor)
		}
		return repository.Vendor{}, err
	}
	if !v.CanPurchase() {
		return repository.Vendor{}, apperr.Forbidden(msgNotApprovedVendor)
	}
	return v, nil
}

// SetPaymentCustomerID records the vendor's payment customer reference.
func (s *Service) SetPaymentCustomerID(ctx context.Context, vendorID uuid.UUID, customerID string) error {
	if err := s.repo.SetPaymentCustomerID(ctx, vendorID, customerID); err != nil {
		return err
	}
	s.log.WithContext(ctx).Info("vendor payment customer linked", "vendorId", vendorID)
	return nil
}

func toResponse(v repository.Vendor) transport.VendorResponse {
	jobTypes := v.JobTypes
	if jobTypes == nil {
		jobTypes = []string{}
	}
	return transport.VendorResponse{
		ID:               v.ID,
		CompanyName:      v.CompanyName,
		Email:            v.Email,
		IsActive:         v.IsActive,
		Status:           string(v.Status),
		JobTypes:         jobTypes,
		PerformanceScore: v.PerformanceScore,
		LeadsPurchased:   v.LeadsPurchased,
		LeadsClosed:      v.LeadsClosed,
		CanPurchase:      v.CanPurchase(),
	}
}

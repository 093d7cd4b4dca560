package repository

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Status is a vendor's approval state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusSuspended Status = "suspended"
)

// Vendor is a service provider account.
type Vendor struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	CompanyName       string
	Email             string
	IsActive          bool
	Status            Status
	JobTypes          []string
	PerformanceScore  float64
	LeadsPurchased    int
	LeadsClosed       int
	PaymentCustomerID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CanPurchase reports whether the vendor may buy leads.
func (v Vendor) CanPurchase() bool {
	return v.IsActive && v.Status == StatusApproved
}

// Serves reports whether the vendor lists jobType.
func (v Vendor) Serves(jobType string) bool {
	return slices.Contains(v.JobTypes, jobType)
}

// Repository reads and updates vendor accounts.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Vendor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (Vendor, error)
	ListActiveByJobType(ctx context.Context, jobType string) ([]Vendor, error)
	SetPaymentCustomerID(ctx context.Context, vendorID uuid.UUID, customerID string) error
}

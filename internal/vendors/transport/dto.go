package transport

import "github.com/google/uuid"

// VendorResponse is the caller's own vendor profile.
type VendorResponse struct {
	ID               uuid.UUID `json:"id"`
	CompanyName      string    `json:"companyName"`
	Email            string    `json:"email"`
	IsActive         bool      `json:"isActive"`
	Status           string    `json:"status"`
	JobTypes         []string  `json:"jobTypes"`
	PerformanceScore float64   `json:"performanceScore"`
	LeadsPurchased   int       `json:"leadsPurchased"`
	LeadsClosed      int       `json:"leadsClosed"`
	CanPurchase      bool      `json:"canPurchase"`
}

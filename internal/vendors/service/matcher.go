package service

import (
	"context"
	"sort"
	"strings"

	"leadmarket_backend/internal/vendors/repository"
)

// SelectBestVendor picks the active vendor serving jobType with the highest
// performance score. Ties go to the lowest id so the choice is stable.
// Returns nil when nobody qualifies.
func SelectBestVendor(vendors []repository.Vendor, jobType string) *repository.Vendor {
	candidates := make([]repository.Vendor, 0, len(vendors))
	for _, v := range vendors {
		if v.IsActive && v.Serves(jobType) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].PerformanceScore != candidates[j].PerformanceScore {
			return candidates[i].PerformanceScore > candidates[j].PerformanceScore
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})
	best := candidates[0]
	return &best
}

// VendorLister loads the candidate pool for a job type.
type VendorLister interface {
	ListActiveByJobType(ctx context.Context, jobType string) ([]repository.Vendor, error)
}

// Matcher assigns one vendor to a newly created lead.
type Matcher struct {
	vendors VendorLister
}

// NewMatcher creates a vendor matcher.
func NewMatcher(vendors VendorLister) *Matcher {
	return &Matcher{vendors: vendors}
}

// MatchVendor returns the best vendor for jobType, or nil if none serves it.
func (m *Matcher) MatchVendor(ctx context.Context, jobType string) (*repository.Vendor, error) {
	jobType = strings.ToLower(strings.TrimSpace(jobType))
	vendors, err := m.vendors.ListActiveByJobType(ctx, jobType)
	if err != nil {
		return nil, err
	}
	return SelectBestVendor(vendors, jobType), nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"leadmarket_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadNotFoundMessage = "lead not found"

// LeadColumns is shared with the allocation repository, which reads leads
// inside its own transactions.
const LeadColumns = `id, job_type, origin_zip, destination_zip, company_name, company_size,
		contact_name, contact_email, contact_phone, number_of_racks, number_of_loose_assets,
		handling_requirements, data_destruction_required, certificate_of_destruction,
		chain_of_custody, security_clearance_required, distance_miles, distance_source,
		quote_low, quote_high, quote_source, lead_price, lead_tier, max_sales, sold_count,
		status, vendor_id, created_at, updated_at`

const insertLeadQuery = `
		INSERT INTO leads (
			job_type, origin_zip, destination_zip, company_name, company_size,
			contact_name, contact_email, contact_phone, number_of_racks, number_of_loose_assets,
			handling_requirements, data_destruction_required, certificate_of_destruction,
			chain_of_custody, security_clearance_required, distance_miles, distance_source,
			quote_low, quote_high, quote_source, lead_price, lead_tier, max_sales, status, vendor_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, 'new', $24
		)
		RETURNING ` + LeadColumns

const availableFilter = `
		WHERE status = 'available' AND sold_count < max_sales
			AND ($1::text IS NULL OR job_type = $1)`

const listAvailableQuery = `
		SELECT ` + LeadColumns + `
		FROM leads` + availableFilter + `
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

const countAvailableQuery = `SELECT COUNT(*) FROM leads` + availableFilter

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// Create inserts a lead with status new.
func (r *Repo) Create(ctx context.Context, p CreateParams) (Lead, error) {
	handling := p.HandlingRequirements
	if handling == nil {
		handling = []string{}
	}
	lead, err := ScanLead(r.pool.QueryRow(ctx, insertLeadQuery,
		p.JobType, p.OriginZip, p.DestinationZip, p.CompanyName, p.CompanySize,
		p.ContactName, p.ContactEmail, p.ContactPhone, p.NumberOfRacks, p.NumberOfLooseAssets,
		handling, p.DataDestructionRequired, p.CertificateOfDestruction,
		p.ChainOfCustody, p.SecurityClearanceRequired, p.DistanceMiles, p.DistanceSource,
		p.QuoteLow, p.QuoteHigh, p.QuoteSource, p.LeadPrice, p.LeadTier, p.MaxSales, p.VendorID,
	))
	if err != nil {
		return Lead{}, fmt.Errorf("insert lead: %w", err)
	}
	return lead, nil
}

// GetByID retrieves a lead by id.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := ScanLead(r.pool.QueryRow(ctx, `SELECT `+LeadColumns+` FROM leads WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("get lead by id: %w", err)
	}
	return lead, nil
}

// ListAvailable pages purchasable leads, newest first.
func (r *Repo) ListAvailable(ctx context.Context, p ListAvailableParams) ([]Lead, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, countAvailableQuery, p.JobType).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count available leads: %w", err)
	}

	rows, err := r.pool.Query(ctx, listAvailableQuery, p.JobType, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list available leads: %w", err)
	}
	defer rows.Close()

	leads := make([]Lead, 0, p.Limit)
	for rows.Next() {
		lead, err := ScanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, total, nil
}

// ScanLead reads a row selected with LeadColumns.
func ScanLead(row pgx.Row) (Lead, error) {
	var l Lead
	var status string
	err := row.Scan(
		&l.ID, &l.JobType, &l.OriginZip, &l.DestinationZip, &l.CompanyName, &l.CompanySize,
		&l.ContactName, &l.ContactEmail, &l.ContactPhone, &l.NumberOfRacks, &l.NumberOfLooseAssets,
		&l.HandlingRequirements, &l.DataDestructionRequired, &l.CertificateOfDestruction,
		&l.ChainOfCustody, &l.SecurityClearanceRequired, &l.DistanceMiles, &l.DistanceSource,
		&l.QuoteLow, &l.QuoteHigh, &l.QuoteSource, &l.LeadPrice, &l.LeadTier, &l.MaxSales, &l.SoldCount,
		&status, &l.VendorID, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return Lead{}, err
	}
	l.Status = Status(status)
	return l, nil
}

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

const vendorNotFoundMessage = "vendor not found"

const vendorColumns = `id, user_id, company_name, email, is_active, status, job_types, performance_score,
		leads_purchased, leads_closed, payment_customer_id, created_at, updated_at`

const listActiveByJobTypeQuery = `
		SELECT ` + vendorColumns + `
		FROM vendors
		WHERE is_active = true AND $1 = ANY(job_types)
		ORDER BY performance_score DESC, id ASC`

// Payment customer ids are set once; a concurrent checkout must not overwrite them.
const setPaymentCustomerQuery = `
		UPDATE vendors SET payment_customer_id = $2, updated_at = now()
		WHERE id = $1 AND payment_customer_id IS NULL`

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new vendors repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// GetByID retrieves a vendor by id.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE id = $1`
	return r.getOne(ctx, "get vendor by id", query, id)
}

// GetByUserID retrieves the vendor account owned by a user.
func (r *Repo) GetByUserID(ctx context.Context, userID uuid.UUID) (Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE user_id = $1`
	return r.getOne(ctx, "get vendor by user id", query, userID)
}

// ListActiveByJobType lists active vendors serving jobType, best score first.
func (r *Repo) ListActiveByJobType(ctx context.Context, jobType string) ([]Vendor, error) {
	rows, err := r.pool.Query(ctx, listActiveByJobTypeQuery, jobType)
	if err != nil {
		return nil, fmt.Errorf("list vendors by job type: %w", err)
	}
	defer rows.Close()

	vendors := make([]Vendor, 0)
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendors: %w", err)
	}
	return vendors, nil
}

// SetPaymentCustomerID stores the payment customer reference if none is set.
func (r *Repo) SetPaymentCustomerID(ctx context.Context, vendorID uuid.UUID, customerID string) error {
	tag, err := r.pool.Exec(ctx, setPaymentCustomerQuery, vendorID, customerID)
	if err != nil {
		return fmt.Errorf("set payment customer id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("payment customer already set")
	}
	return nil
}

func (r *Repo) getOne(ctx context.Context, op, query string, arg any) (Vendor, error) {
	v, err := scanVendor(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, apperr.NotFound(vendorNotFoundMessage)
		}
		return Vendor{}, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

func scanVendor(row pgx.Row) (Vendor, error) {
	var v Vendor
	var status string
	err := row.Scan(
		&v.ID, &v.UserID, &v.CompanyName, &v.Email, &v.IsActive, &status, &v.JobTypes, &v.PerformanceScore,
		&v.LeadsPurchased, &v.LeadsClosed, &v.PaymentCustomerID, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return Vendor{}, err
	}
	v.Status = Status(status)
	return v, nil
}

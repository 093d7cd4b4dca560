package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	leadsrepo "leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	activePairConstraint   = "lead_purchases_active_pair_key"
	msgDuplicatePurchase   = "this vendor already holds a purchase for the lead"
	msgPurchaseNotFound    = "purchase not found"
	msgPurchaseNotComplete = "purchase is not completed"
	msgOutcomeReported     = "outcome already reported"
)

// errNotAllocated aborts a transaction whose conditional increment matched no row.
var errNotAllocated = errors.New("lead not allocatable")

const purchaseColumns = `id, lead_id, vendor_id, price_paid, status, outcome, checkout_session_id,
		created_at, completed_at, outcome_reported_at`

const qualifiedPurchaseColumns = `p.id, p.lead_id, p.vendor_id, p.price_paid, p.status, p.outcome,
		p.checkout_session_id, p.created_at, p.completed_at, p.outcome_reported_at`

const hasActivePurchaseQuery = `
		SELECT EXISTS (
			SELECT 1 FROM lead_purchases
			WHERE lead_id = $1 AND vendor_id = $2 AND status NOT IN ('expired', 'refund_required')
		)`

const insertPurchaseQuery = `
		INSERT INTO lead_purchases (lead_id, vendor_id, price_paid, status, checkout_session_id, completed_at)
		VALUES ($1, $2, $3, $4::text, $5, CASE WHEN $4::text = 'completed' THEN now() END)
		RETURNING ` + purchaseColumns

// The WHERE clause is the only cap enforcement: concurrent buyers serialise on
// the row lock and the loser matches zero rows. A lead turns 'sold' only once
// sold_count reaches max_sales; until then it stays available to other vendors.
const incrementSoldCountQuery = `
		UPDATE leads
		SET sold_count = sold_count + 1,
			status = CASE WHEN sold_count + 1 >= max_sales THEN 'sold' ELSE status END,
			updated_at = now()
		WHERE id = $1 AND status = 'available' AND sold_count < max_sales
		RETURNING sold_count, max_sales`

const incrementVendorPurchasedQuery = `
		UPDATE vendors SET leads_purchased = leads_purchased + 1, updated_at = now()
		WHERE id = $1
		RETURNING email`

const incrementVendorClosedQuery = `
		UPDATE vendors SET leads_closed = leads_closed + 1, updated_at = now()
		WHERE id = $1`

const lockPurchaseBySessionQuery = `
		SELECT ` + purchaseColumns + `
		FROM lead_purchases
		WHERE checkout_session_id = $1
		FOR UPDATE`

const completePurchaseQuery = `
		UPDATE lead_purchases SET status = 'completed', completed_at = now()
		WHERE id = $1
		RETURNING ` + purchaseColumns

const markRefundRequiredQuery = `
		UPDATE lead_purchases SET status = 'refund_required'
		WHERE id = $1 AND status IN ('pending', 'expired')
		RETURNING ` + purchaseColumns

const expireByIDQuery = `
		UPDATE lead_purchases SET status = 'expired'
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + purchaseColumns

const expireBySessionQuery = `
		UPDATE lead_purchases SET status = 'expired'
		WHERE checkout_session_id = $1 AND status = 'pending'
		RETURNING ` + purchaseColumns

const listStalePendingQuery = `
		SELECT ` + purchaseColumns + `
		FROM lead_purchases
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at
		LIMIT $2`

const listByVendorQuery = `
		SELECT ` + qualifiedPurchaseColumns + `,
			l.job_type, l.origin_zip, l.destination_zip, l.company_name,
			l.contact_name, l.contact_email, l.contact_phone
		FROM lead_purchases p
		JOIN leads l ON l.id = p.lead_id
		WHERE p.vendor_id = $1 AND p.status <> 'expired'
		ORDER BY p.created_at DESC`

const reportOutcomeQuery = `
		UPDATE lead_purchases SET outcome = $3, outcome_reported_at = now()
		WHERE id = $1 AND vendor_id = $2 AND status = 'completed' AND outcome = 'pending'
		RETURNING ` + purchaseColumns

const getOwnedPurchaseQuery = `
		SELECT ` + purchaseColumns + `
		FROM lead_purchases
		WHERE id = $1 AND vendor_id = $2`

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new allocation repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// GetLead reads the lead a vendor wants to buy.
func (r *Repo) GetLead(ctx context.Context, leadID uuid.UUID) (leadsrepo.Lead, error) {
	lead, err := leadsrepo.ScanLead(r.pool.QueryRow(ctx, `SELECT `+leadsrepo.LeadColumns+` FROM leads WHERE id = $1`, leadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leadsrepo.Lead{}, apperr.NotFound("lead not found")
		}
		return leadsrepo.Lead{}, fmt.Errorf("get lead for purchase: %w", err)
	}
	return lead, nil
}

// HasActivePurchase reports whether the pair already holds a non-expired purchase.
func (r *Repo) HasActivePurchase(ctx context.Context, leadID, vendorID uuid.UUID) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, hasActivePurchaseQuery, leadID, vendorID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active purchase: %w", err)
	}
	return exists, nil
}

// AllocateCompleted runs the direct purchase transaction.
func (r *Repo) AllocateCompleted(ctx context.Context, p AllocateParams) (Purchase, Allocation, error) {
	var (
		purchase   Purchase
		allocation Allocation
	)
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		purchase, err = scanPurchase(tx.QueryRow(ctx, insertPurchaseQuery, p.LeadID, p.VendorID, p.PricePaid, string(StatusCompleted), nil))
		if err != nil {
			return insertError(err)
		}

		allocation, _, err = incrementSoldCount(ctx, tx, p.LeadID)
		if err != nil {
			return err
		}

		var email string
		if err := tx.QueryRow(ctx, incrementVendorPurchasedQuery, p.VendorID).Scan(&email); err != nil {
			return fmt.Errorf("increment vendor purchases: %w", err)
		}
		return nil
	})
	if errors.Is(err, errNotAllocated) {
		return Purchase{}, Allocation{}, nil
	}
	if err != nil {
		return Purchase{}, Allocation{}, err
	}
	return purchase, allocation, nil
}

// CreatePending inserts a purchase awaiting checkout. It does not touch sold_count.
func (r *Repo) CreatePending(ctx context.Context, p PendingParams) (Purchase, error) {
	purchase, err := scanPurchase(r.pool.QueryRow(ctx, insertPurchaseQuery, p.LeadID, p.VendorID, p.PricePaid, string(StatusPending), p.CheckoutSessionID))
	if err != nil {
		return Purchase{}, insertError(err)
	}
	return purchase, nil
}

// ConfirmBySession completes a paid checkout. A purchase that was expired
// locally before payment arrived is revived when the pair and the cap allow it.
func (r *Repo) ConfirmBySession(ctx context.Context, sessionID string) (Confirmation, error) {
	var out Confirmation
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		purchase, err := scanPurchase(tx.QueryRow(ctx, lockPurchaseBySessionQuery, sessionID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound(msgPurchaseNotFound)
			}
			return fmt.Errorf("lock purchase by session: %w", err)
		}
		out.Purchase = purchase

		if purchase.Status.Settled() {
			out.AlreadySettled = true
			return nil
		}

		completed, err := scanPurchase(tx.QueryRow(ctx, completePurchaseQuery, purchase.ID))
		if err != nil {
			if db.IsUniqueViolation(err, activePairConstraint) {
				return errNotAllocated
			}
			return fmt.Errorf("complete purchase: %w", err)
		}

		allocation, maxSales, err := incrementSoldCount(ctx, tx, purchase.LeadID)
		if err != nil {
			return err
		}

		var email string
		if err := tx.QueryRow(ctx, incrementVendorPurchasedQuery, purchase.VendorID).Scan(&email); err != nil {
			return fmt.Errorf("increment vendor purchases: %w", err)
		}

		out.Purchase = completed
		out.Allocation = allocation
		out.MaxSales = maxSales
		out.VendorEmail = email
		return nil
	})
	if errors.Is(err, errNotAllocated) {
		return r.markRefundRequired(ctx, out.Purchase)
	}
	if err != nil {
		return Confirmation{}, err
	}
	return out, nil
}

// markRefundRequired runs after the allocating transaction rolled back. Only
// the confirmation that flips the row reports it as new.
func (r *Repo) markRefundRequired(ctx context.Context, purchase Purchase) (Confirmation, error) {
	marked, err := scanPurchase(r.pool.QueryRow(ctx, markRefundRequiredQuery, purchase.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Confirmation{Purchase: purchase, AlreadySettled: true}, nil
		}
		return Confirmation{}, fmt.Errorf("mark purchase refund required: %w", err)
	}
	return Confirmation{Purchase: marked}, nil
}

// ExpireByID expires a pending purchase. The bool is false when it was not pending.
func (r *Repo) ExpireByID(ctx context.Context, purchaseID uuid.UUID) (Purchase, bool, error) {
	return r.expire(ctx, "expire purchase", expireByIDQuery, purchaseID)
}

// ExpireBySession expires the pending purchase of a checkout session.
func (r *Repo) ExpireBySession(ctx context.Context, sessionID string) (Purchase, bool, error) {
	return r.expire(ctx, "expire purchase by session", expireBySessionQuery, sessionID)
}

func (r *Repo) expire(ctx context.Context, op, query string, arg any) (Purchase, bool, error) {
	purchase, err := scanPurchase(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, false, nil
		}
		return Purchase{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return purchase, true, nil
}

// ListStalePending lists pending purchases created before createdBefore, oldest first.
func (r *Repo) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]Purchase, error) {
	rows, err := r.pool.Query(ctx, listStalePendingQuery, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale pending purchases: %w", err)
	}
	defer rows.Close()

	out := make([]Purchase, 0)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}
	return out, nil
}

// ListByVendor lists a vendor's non-expired purchases, newest first.
func (r *Repo) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]PurchaseWithLead, error) {
	rows, err := r.pool.Query(ctx, listByVendorQuery, vendorID)
	if err != nil {
		return nil, fmt.Errorf("list vendor purchases: %w", err)
	}
	defer rows.Close()

	out := make([]PurchaseWithLead, 0)
	for rows.Next() {
		var (
			item           PurchaseWithLead
			status, result string
		)
		if err := rows.Scan(
			&item.ID, &item.LeadID, &item.VendorID, &item.PricePaid, &status, &result,
			&item.CheckoutSessionID, &item.CreatedAt, &item.CompletedAt, &item.OutcomeReportedAt,
			&item.Lead.JobType, &item.Lead.OriginZip, &item.Lead.DestinationZip, &item.Lead.CompanyName,
			&item.Lead.ContactName, &item.Lead.ContactEmail, &item.Lead.ContactPhone,
		); err != nil {
			return nil, fmt.Errorf("scan vendor purchase: %w", err)
		}
		item.Status = Status(status)
		item.Outcome = Outcome(result)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendor purchases: %w", err)
	}
	return out, nil
}

// ReportOutcome records the outcome and counts a win against the vendor.
func (r *Repo) ReportOutcome(ctx context.Context, purchaseID, vendorID uuid.UUID, outcome Outcome) (Purchase, error) {
	var purchase Purchase
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		purchase, err = scanPurchase(tx.QueryRow(ctx, reportOutcomeQuery, purchaseID, vendorID, string(outcome)))
		if errors.Is(err, pgx.ErrNoRows) {
			return explainOutcomeRejection(ctx, tx, purchaseID, vendorID)
		}
		if err != nil {
			return fmt.Errorf("report outcome: %w", err)
		}

		if outcome == OutcomeWon {
			if _, err := tx.Exec(ctx, incrementVendorClosedQuery, vendorID); err != nil {
				return fmt.Errorf("increment vendor closed: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}
	return purchase, nil
}

func explainOutcomeRejection(ctx context.Context, tx pgx.Tx, purchaseID, vendorID uuid.UUID) error {
	existing, err := scanPurchase(tx.QueryRow(ctx, getOwnedPurchaseQuery, purchaseID, vendorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(msgPurchaseNotFound)
	}
	if err != nil {
		return fmt.Errorf("get purchase: %w", err)
	}
	if existing.Status != StatusCompleted {
		return apperr.BadRequest(msgPurchaseNotComplete)
	}
	return apperr.Conflict(msgOutcomeReported)
}

func incrementSoldCount(ctx context.Context, tx pgx.Tx, leadID uuid.UUID) (Allocation, int, error) {
	var soldCount, maxSales int
	err := tx.QueryRow(ctx, incrementSoldCountQuery, leadID).Scan(&soldCount, &maxSales)
	if errors.Is(err, pgx.ErrNoRows) {
		return Allocation{}, 0, errNotAllocated
	}
	if err != nil {
		return Allocation{}, 0, fmt.Errorf("increment sold count: %w", err)
	}
	return Allocation{Allocated: true, NewSoldCount: soldCount}, maxSales, nil
}

func insertError(err error) error {
	if db.IsUniqueViolation(err, activePairConstraint) {
		return apperr.Conflict(msgDuplicatePurchase)
	}
	return fmt.Errorf("insert purchase: %w", err)
}

func scanPurchase(row pgx.Row) (Purchase, error) {
	var (
		p              Purchase
		status, result string
	)
	if err := row.Scan(
		&p.ID, &p.LeadID, &p.VendorID, &p.PricePaid, &status, &result,
		&p.CheckoutSessionID, &p.CreatedAt, &p.CompletedAt, &p.OutcomeReportedAt,
	); err != nil {
		return Purchase{}, err
	}
	p.Status = Status(status)
	p.Outcome = Outcome(result)
	return p, nil
}

package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/favorlink/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EscrowRepo persists escrow payments. Every status change is a
// status-guarded UPDATE, so the database row is the compare-and-set
// primitive the ledger's guards rely on across processes.
type EscrowRepo struct {
	pool *pgxpool.Pool
}

func NewEscrowRepo(pool *pgxpool.Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

func (r *EscrowRepo) Create(ctx context.Context, e *models.EscrowPayment) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO escrow_payments
			(id, favor_id, requester_id, helper_id, amount_cents, service_fee_cents, total_cents, status, created_at, auto_release_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, e.ID, e.FavorID, e.RequesterID, e.HelperID, e.AmountCents, e.ServiceFeeCents, e.TotalCents,
		e.Status, e.CreatedAt, e.AutoReleaseAt).Scan(&e.ID)

	// The partial unique index on (favor_id) for active rows backs the
	// one-active-escrow-per-favor guard under concurrent creation.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return models.ErrDuplicateEscrow
	}
	return err
}

func (r *EscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowPayment, error) {
	e, err := r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id, favor_id, requester_id, helper_id, amount_cents, service_fee_cents, total_cents,
		       status, created_at, auto_release_at, released_at, released_by
		FROM escrow_payments WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrEscrowNotFound
	}
	return e, err
}

// GetActiveByFavor returns the non-terminal escrow for a favor, if any.
func (r *EscrowRepo) GetActiveByFavor(ctx context.Context, favorID uuid.UUID) (*models.EscrowPayment, error) {
	e, err := r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id, favor_id, requester_id, helper_id, amount_cents, service_fee_cents, total_cents,
		       status, created_at, auto_release_at, released_at, released_by
		FROM escrow_payments
		WHERE favor_id = $1 AND status NOT IN ('released', 'refunded', 'cancelled')
		ORDER BY created_at DESC LIMIT 1
	`, favorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrEscrowNotFound
	}
	return e, err
}

// CompareAndSwapStatus flips status from -> to and reports whether this
// caller won the flip. A false return means another transition got there
// first.
func (r *EscrowRepo) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE escrow_payments SET status = $1 WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkReleased atomically flips releasing -> released and credits the
// helper's wallet in the same transaction, so the flip and the credit
// are one unit of work. The releasing claim belongs to exactly one
// caller, which is what makes the credit exactly-once.
func (r *EscrowRepo) MarkReleased(ctx context.Context, id uuid.UUID, helperID uuid.UUID, amountCents int64, triggeredBy string, at time.Time) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE escrow_payments SET status = 'released', released_at = $1, released_by = $2
		WHERE id = $3 AND status = 'releasing'
	`, at, triggeredBy, id)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_wallets (user_id, balance_cents, pending_earnings_cents, kyc_status, created_at, updated_at)
		VALUES ($1, $2, 0, 'unverified', $3, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			balance_cents = user_wallets.balance_cents + EXCLUDED.balance_cents,
			pending_earnings_cents = GREATEST(user_wallets.pending_earnings_cents - EXCLUDED.balance_cents, 0),
			updated_at = EXCLUDED.updated_at
	`, helperID, amountCents, at)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ListAutoReleasable returns held escrows whose release deadline passed.
func (r *EscrowRepo) ListAutoReleasable(ctx context.Context, cutoff time.Time, limit int) ([]models.EscrowPayment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, favor_id, requester_id, helper_id, amount_cents, service_fee_cents, total_cents,
		       status, created_at, auto_release_at, released_at, released_by
		FROM escrow_payments
		WHERE status = 'held' AND auto_release_at <= $1
		ORDER BY auto_release_at ASC LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EscrowPayment
	for rows.Next() {
		var e models.EscrowPayment
		if err := rows.Scan(&e.ID, &e.FavorID, &e.RequesterID, &e.HelperID,
			&e.AmountCents, &e.ServiceFeeCents, &e.TotalCents,
			&e.Status, &e.CreatedAt, &e.AutoReleaseAt, &e.ReleasedAt, &e.ReleasedBy); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EscrowRepo) scanOne(row pgx.Row) (*models.EscrowPayment, error) {
	var e models.EscrowPayment
	err := row.Scan(&e.ID, &e.FavorID, &e.RequesterID, &e.HelperID,
		&e.AmountCents, &e.ServiceFeeCents, &e.TotalCents,
		&e.Status, &e.CreatedAt, &e.AutoReleaseAt, &e.ReleasedAt, &e.ReleasedBy)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

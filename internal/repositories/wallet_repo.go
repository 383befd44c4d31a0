package repositories

import (
	"context"
	"errors"

	"github.com/favorlink/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

func (r *WalletRepo) Get(ctx context.Context, userID uuid.UUID) (*models.UserWallet, error) {
	var w models.UserWallet
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, balance_cents, pending_earnings_cents, kyc_status, created_at, updated_at
		FROM user_wallets WHERE user_id = $1
	`, userID).Scan(&w.UserID, &w.BalanceCents, &w.PendingEarningsCents, &w.KYCStatus, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}

	methods, err := r.ListPaymentMethods(ctx, userID)
	if err != nil {
		return nil, err
	}
	w.PaymentMethods = methods
	return &w, nil
}

// Crediting the settled balance deliberately has no standalone method:
// the only write path into balance_cents is the wallet arm of
// EscrowRepo.MarkReleased, so no caller can credit outside a release.

// AddPending increases pending earnings when an escrow becomes held.
func (r *WalletRepo) AddPending(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	if amountCents < 0 {
		return models.ErrInvalidAmount
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_wallets (user_id, balance_cents, pending_earnings_cents, kyc_status, created_at, updated_at)
		VALUES ($1, 0, $2, 'unverified', now(), now())
		ON CONFLICT (user_id) DO UPDATE SET
			pending_earnings_cents = user_wallets.pending_earnings_cents + EXCLUDED.pending_earnings_cents,
			updated_at = now()
	`, userID, amountCents)
	return err
}

// SubPending removes pending earnings when a held escrow is refunded.
func (r *WalletRepo) SubPending(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	if amountCents < 0 {
		return models.ErrInvalidAmount
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE user_wallets SET
			pending_earnings_cents = GREATEST(pending_earnings_cents - $1, 0),
			updated_at = now()
		WHERE user_id = $2
	`, amountCents, userID)
	return err
}

func (r *WalletRepo) SetKYCStatus(ctx context.Context, userID uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE user_wallets SET kyc_status = $1, updated_at = now() WHERE user_id = $2
	`, status, userID)
	return err
}

// --- Payment methods ---

func (r *WalletRepo) AddPaymentMethod(ctx context.Context, m *models.PaymentMethod) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if m.IsDefault {
		if _, err := tx.Exec(ctx, `
			UPDATE payment_methods SET is_default = false WHERE user_id = $1
		`, m.UserID); err != nil {
			return err
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO payment_methods (id, user_id, kind, label, last4, is_default)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, m.ID, m.UserID, m.Kind, m.Label, m.Last4, m.IsDefault).Scan(&m.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *WalletRepo) ListPaymentMethods(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, kind, label, last4, is_default, created_at
		FROM payment_methods WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []models.PaymentMethod
	for rows.Next() {
		var m models.PaymentMethod
		if err := rows.Scan(&m.ID, &m.UserID, &m.Kind, &m.Label, &m.Last4, &m.IsDefault, &m.CreatedAt); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

func (r *WalletRepo) RemovePaymentMethod(ctx context.Context, userID, methodID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM payment_methods WHERE id = $1 AND user_id = $2
	`, methodID, userID)
	return err
}

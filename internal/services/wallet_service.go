package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/favorlink/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WalletStore is the read/maintenance surface of the wallet table. It
// has no balance-credit operation; only the ledger release path writes
// the settled balance.
type WalletStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.UserWallet, error)
	SetKYCStatus(ctx context.Context, userID uuid.UUID, status string) error
	AddPaymentMethod(ctx context.Context, m *models.PaymentMethod) error
	ListPaymentMethods(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error)
	RemovePaymentMethod(ctx context.Context, userID, methodID uuid.UUID) error
}

type WalletService struct {
	wallets WalletStore
	audit   AuditStore
	log     *zap.Logger
}

func NewWalletService(wallets WalletStore, audit AuditStore, log *zap.Logger) *WalletService {
	return &WalletService{wallets: wallets, audit: audit, log: log}
}

// GetWallet returns the user's wallet. A user who was never credited
// gets an empty wallet rather than an error; the row itself is created
// lazily on first credit.
func (s *WalletService) GetWallet(ctx context.Context, userID uuid.UUID) (*models.UserWallet, error) {
	w, err := s.wallets.Get(ctx, userID)
	if errors.Is(err, models.ErrWalletNotFound) {
		return &models.UserWallet{
			UserID:    userID,
			KYCStatus: models.KYCStatusUnverified,
		}, nil
	}
	return w, err
}

func (s *WalletService) AddPaymentMethod(ctx context.Context, userID uuid.UUID, kind, label, last4 string, isDefault bool) (*models.PaymentMethod, error) {
	switch kind {
	case "card", "bank", "internal":
	default:
		return nil, fmt.Errorf("invalid payment method kind %q, must be one of: card, bank, internal", kind)
	}

	m := &models.PaymentMethod{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Label:     label,
		Last4:     last4,
		IsDefault: isDefault,
	}
	if err := s.wallets.AddPaymentMethod(ctx, m); err != nil {
		return nil, err
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &userID,
		ActorType:   "user",
		Action:      "payment_method_added",
		EntityType:  "payment_method",
		EntityID:    &m.ID,
		Meta:        map[string]any{"kind": kind, "is_default": isDefault},
	})
	return m, nil
}

func (s *WalletService) ListPaymentMethods(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error) {
	return s.wallets.ListPaymentMethods(ctx, userID)
}

func (s *WalletService) RemovePaymentMethod(ctx context.Context, userID, methodID uuid.UUID) error {
	if err := s.wallets.RemovePaymentMethod(ctx, userID, methodID); err != nil {
		return err
	}
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: &userID,
		ActorType:   "user",
		Action:      "payment_method_removed",
		EntityType:  "payment_method",
		EntityID:    &methodID,
	})
	return nil
}

// SetKYCStatus records the outcome reported by the external
// verification provider. This core does not verify anything itself.
func (s *WalletService) SetKYCStatus(ctx context.Context, userID uuid.UUID, status string) error {
	switch status {
	case models.KYCStatusUnverified, models.KYCStatusPending, models.KYCStatusVerified:
	default:
		return fmt.Errorf("invalid kyc status %q", status)
	}
	if err := s.wallets.SetKYCStatus(ctx, userID, status); err != nil {
		return err
	}
	s.log.Info("kyc status updated",
		zap.String("user_id", userID.String()),
		zap.String("status", status),
	)
	return nil
}

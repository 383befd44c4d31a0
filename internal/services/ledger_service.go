package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/favorlink/backend/internal/config"
	"github.com/favorlink/backend/internal/events"
	"github.com/favorlink/backend/internal/fees"
	"github.com/favorlink/backend/internal/gateway"
	"github.com/favorlink/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EscrowStore persists escrow payments. Status flips are compare-and-set:
// the store reports whether the caller won the flip, and MarkReleased
// performs the flip and the wallet credit as one unit of work.
type EscrowStore interface {
	Create(ctx context.Context, e *models.EscrowPayment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowPayment, error)
	GetActiveByFavor(ctx context.Context, favorID uuid.UUID) (*models.EscrowPayment, error)
	CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	MarkReleased(ctx context.Context, id uuid.UUID, helperID uuid.UUID, amountCents int64, triggeredBy string, at time.Time) (bool, error)
	ListAutoReleasable(ctx context.Context, cutoff time.Time, limit int) ([]models.EscrowPayment, error)
}

// LedgerWallets is the slice of the wallet store the ledger touches for
// pending-earnings bookkeeping. The settled balance is credited inside
// EscrowStore.MarkReleased only.
type LedgerWallets interface {
	AddPending(ctx context.Context, userID uuid.UUID, amountCents int64) error
	SubPending(ctx context.Context, userID uuid.UUID, amountCents int64) error
}

type AuditStore interface {
	Log(ctx context.Context, entry models.AuditLog) error
	GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]models.AuditLog, error)
}

// LedgerService owns the escrow payment lifecycle:
// pending -> held -> released/refunded, plus pending -> cancelled.
// It is the only component that moves money between the gateway, the
// escrow records and the wallets.
type LedgerService struct {
	escrows   EscrowStore
	wallets   LedgerWallets
	audit     AuditStore
	gateway   gateway.PaymentGateway
	publisher events.Publisher
	fees      fees.Policy
	window    time.Duration
	log       *zap.Logger

	now func() time.Time
}

func NewLedgerService(
	escrows EscrowStore,
	wallets LedgerWallets,
	audit AuditStore,
	gw gateway.PaymentGateway,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *LedgerService {
	return &LedgerService{
		escrows:   escrows,
		wallets:   wallets,
		audit:     audit,
		gateway:   gw,
		publisher: publisher,
		fees:      fees.NewPolicy(cfg.PlatformFeeBPS),
		window:    cfg.ReleaseWindow,
		log:       log,
		now:       time.Now,
	}
}

// CreateEscrow opens a pending escrow for a favor acceptance. Fees are
// computed once here and are immutable for the record's life.
func (s *LedgerService) CreateEscrow(ctx context.Context, favorID, requesterID, helperID uuid.UUID, amountCents int64) (*models.EscrowPayment, error) {
	if requesterID == helperID {
		return nil, models.ErrSameParty
	}

	split, err := s.fees.Compute(amountCents)
	if err != nil {
		return nil, err
	}

	if _, err := s.escrows.GetActiveByFavor(ctx, favorID); err == nil {
		return nil, models.ErrDuplicateEscrow
	} else if !errors.Is(err, models.ErrEscrowNotFound) {
		return nil, err
	}

	now := s.now()
	e := &models.EscrowPayment{
		ID:              uuid.New(),
		FavorID:         favorID,
		RequesterID:     requesterID,
		HelperID:        helperID,
		AmountCents:     split.AmountCents,
		ServiceFeeCents: split.ServiceFeeCents,
		TotalCents:      split.TotalCents,
		Status:          models.EscrowStatusPending,
		CreatedAt:       now,
		AutoReleaseAt:   now.Add(s.window),
	}

	if err := s.escrows.Create(ctx, e); err != nil {
		return nil, err
	}

	s.logAudit(ctx, &requesterID, "user", "escrow_created", e.ID, map[string]any{
		"favor_id":    favorID.String(),
		"total_cents": e.TotalCents,
	})
	s.publish(ctx, events.Event{
		Type:        events.EventEscrowCreated,
		UserID:      requesterID,
		EscrowID:    e.ID,
		AmountCents: e.TotalCents,
	})

	return e, nil
}

// HoldEscrow captures the requester's payment through the gateway and
// moves the escrow to held. The pending -> charging claim is taken
// before the provider call, so a concurrent cancel either wins before
// any money is captured or fails while the capture is in flight; no
// captured funds can end up orphaned on a lost race. On a gateway
// decline or fault the record reverts to pending and the caller may
// retry.
func (s *LedgerService) HoldEscrow(ctx context.Context, id uuid.UUID) (*models.EscrowPayment, error) {
	e, err := s.loadForTransition(ctx, id, models.EscrowStatusPending)
	if err != nil {
		return nil, err
	}

	won, err := s.escrows.CompareAndSwapStatus(ctx, e.ID, models.EscrowStatusPending, models.EscrowStatusCharging)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.staleError(ctx, e.ID)
	}

	res, err := s.gateway.Charge(ctx, e.RequesterID, e.TotalCents)
	if err != nil || !res.OK {
		s.revertClaim(ctx, e.ID, models.EscrowStatusCharging, models.EscrowStatusPending)
		s.publish(ctx, events.Event{
			Type:        events.EventChargeFailed,
			UserID:      e.RequesterID,
			EscrowID:    e.ID,
			AmountCents: e.TotalCents,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrChargeFailed, err)
		}
		return nil, fmt.Errorf("%w: %s", models.ErrChargeFailed, res.Reason)
	}

	// The claim is exclusive, so advancing it cannot be contended.
	won, err = s.escrows.CompareAndSwapStatus(ctx, e.ID, models.EscrowStatusCharging, models.EscrowStatusHeld)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.staleError(ctx, e.ID)
	}
	e.Status = models.EscrowStatusHeld

	if err := s.wallets.AddPending(ctx, e.HelperID, e.AmountCents); err != nil {
		s.log.Error("failed to record pending earnings",
			zap.String("escrow_id", e.ID.String()), zap.Error(err))
	}

	s.logAudit(ctx, &e.RequesterID, "user", "escrow_status_pending_to_held", e.ID, map[string]any{
		"provider_ref": res.ProviderRef,
	})
	s.publish(ctx, events.Event{
		Type:        events.EventPaymentHeld,
		UserID:      e.HelperID,
		EscrowID:    e.ID,
		AmountCents: e.AmountCents,
	})

	return e, nil
}

// ReleaseEscrow pays the held amount out to the helper and credits their
// wallet. triggeredBy is one of the models.ReleaseTrigger constants.
// The held -> releasing claim is taken before the provider transfer, so
// a racing refund fails before money moves: exactly one of a concurrent
// release and refund ever reaches the provider.
func (s *LedgerService) ReleaseEscrow(ctx context.Context, id uuid.UUID, triggeredBy string, actorID *uuid.UUID) (*models.EscrowPayment, error) {
	e, err := s.loadForTransition(ctx, id, models.EscrowStatusHeld)
	if err != nil {
		return nil, err
	}

	won, err := s.escrows.CompareAndSwapStatus(ctx, e.ID, models.EscrowStatusHeld, models.EscrowStatusReleasing)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.staleError(ctx, e.ID)
	}

	res, err := s.gateway.Transfer(ctx, e.HelperID, e.AmountCents)
	if err != nil || !res.OK {
		s.revertClaim(ctx, e.ID, models.EscrowStatusReleasing, models.EscrowStatusHeld)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrTransferFailed, err)
		}
		return nil, fmt.Errorf("%w: %s", models.ErrTransferFailed, res.Reason)
	}

	now := s.now()
	won, err = s.escrows.MarkReleased(ctx, e.ID, e.HelperID, e.AmountCents, triggeredBy, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.staleError(ctx, e.ID)
	}
	e.Status = models.EscrowStatusReleased
	e.ReleasedAt = &now
	e.ReleasedBy = &triggeredBy

	actorType := "user"
	if triggeredBy == models.ReleaseTriggerAuto {
		actorType = "scheduler"
	}
	s.logAudit(ctx, actorID, actorType, "escrow_status_held_to_released", e.ID, map[string]any{
		"triggered_by": triggeredBy,
		"amount_cents": e.AmountCents,
	})
	s.publish(ctx, events.Event{
		Type:        events.EventPaymentReleased,
		UserID:      e.HelperID,
		EscrowID:    e.ID,
		AmountCents: e.AmountCents,
	})

	s.log.Info("escrow released",
		zap.String("escrow_id", e.ID.String()),
		zap.String("triggered_by", triggeredBy),
		zap.Int64("amount_cents", e.AmountCents),
	)
	return e, nil
}

// RefundEscrow returns the full captured amount to the requester. Only
// a held escrow can be refunded; a pending one is cancelled instead.
// Takes the held -> refunding claim before the provider call, mirroring
// ReleaseEscrow.
func (s *LedgerService) RefundEscrow(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*models.EscrowPayment, error) {
	e, err := s.loadForTransition(ctx, id, models.EscrowStatusHeld)
	if err != nil {
		return nil, err
	}

	won, err := s.escrows.CompareAndSwapStatus(ctx, e.ID, models.EscrowStatusHeld, models.EscrowStatusRefunding)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.staleError(ctx, e.ID)
	}

	res, err := s.gateway.Refund(ctx, e.RequesterID, e.TotalCents)
	if err != nil || !res.OK {
		s.revertClaim(ctx, e.ID, models.EscrowStatusRefunding, models.EscrowStatusHeld)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrRefundFailed, err)
		}
		return nil, fmt.Errorf("%w: %s", models.ErrRefundFailed, res.Reason)
	}

	won, err = s.escrows.CompareAndSwapStatus(ctx, e.ID, models.EscrowStatusRefunding, models.EscrowStatusRefunded)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.staleError(ctx, e.ID)
	}
	e.Status = models.EscrowStatusRefunded

	if err := s.wallets.SubPending(ctx, e.HelperID, e.AmountCents); err != nil {
		s.log.Error("failed to remove pending earnings",
			zap.String("escrow_id", e.ID.String()), zap.Error(err))
	}

	s.logAudit(ctx, actorID, "user", "escrow_status_held_to_refunded", e.ID, map[string]any{
		"total_cents": e.TotalCents,
	})
	s.publish(ctx, events.Event{
		Type:        events.EventPaymentRefunded,
		UserID:      e.RequesterID,
		EscrowID:    e.ID,
		AmountCents: e.TotalCents,
	})

	return e, nil
}

// CancelEscrow voids a pending escrow before any money moved.
func (s *LedgerService) CancelEscrow(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*models.EscrowPayment, error) {
	e, err := s.loadForTransition(ctx, id, models.EscrowStatusPending)
	if err != nil {
		return nil, err
	}

	won, err := s.escrows.CompareAndSwapStatus(ctx, e.ID, models.EscrowStatusPending, models.EscrowStatusCancelled)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.staleError(ctx, e.ID)
	}
	e.Status = models.EscrowStatusCancelled

	s.logAudit(ctx, actorID, "user", "escrow_status_pending_to_cancelled", e.ID, nil)
	s.publish(ctx, events.Event{
		Type:     events.EventEscrowCancelled,
		UserID:   e.RequesterID,
		EscrowID: e.ID,
	})

	return e, nil
}

func (s *LedgerService) GetEscrow(ctx context.Context, id uuid.UUID) (*models.EscrowPayment, error) {
	return s.escrows.GetByID(ctx, id)
}

func (s *LedgerService) GetEscrowByFavor(ctx context.Context, favorID uuid.UUID) (*models.EscrowPayment, error) {
	return s.escrows.GetActiveByFavor(ctx, favorID)
}

// CalculateFees is the side-effect-free fee preview.
func (s *LedgerService) CalculateFees(amountCents int64) (fees.Breakdown, error) {
	return s.fees.Compute(amountCents)
}

func (s *LedgerService) GetEscrowEvents(ctx context.Context, id uuid.UUID) ([]models.AuditLog, error) {
	return s.audit.GetByEntity(ctx, "escrow", id, 100, 0)
}

// ListAutoReleasable exposes due held escrows to the scheduler.
func (s *LedgerService) ListAutoReleasable(ctx context.Context, cutoff time.Time, limit int) ([]models.EscrowPayment, error) {
	return s.escrows.ListAutoReleasable(ctx, cutoff, limit)
}

// --- helpers ---

// loadForTransition fetches the record and verifies it sits in the
// status the transition starts from. Terminal records come back as
// ErrAlreadyFinal so racing callers can treat them as a benign no-op.
func (s *LedgerService) loadForTransition(ctx context.Context, id uuid.UUID, want string) (*models.EscrowPayment, error) {
	e, err := s.escrows.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.verifyRecord(ctx, e); err != nil {
		return nil, err
	}
	if e.IsFinal() {
		return nil, models.ErrAlreadyFinal
	}
	if e.Status != want {
		return nil, fmt.Errorf("%w: escrow is %s", models.ErrInvalidTransition, e.Status)
	}
	return e, nil
}

// revertClaim returns an in-flight record to its pre-claim status after
// a provider failure. The claim is exclusive, so the revert can only
// fail on a store error.
func (s *LedgerService) revertClaim(ctx context.Context, id uuid.UUID, from, to string) {
	won, err := s.escrows.CompareAndSwapStatus(ctx, id, from, to)
	if err != nil || !won {
		s.log.Error("failed to revert in-flight escrow claim",
			zap.String("escrow_id", id.String()),
			zap.String("from", from),
			zap.String("to", to),
			zap.Bool("won", won),
			zap.Error(err),
		)
	}
}

// staleError re-reads a record after a lost compare-and-set to report
// what actually happened.
func (s *LedgerService) staleError(ctx context.Context, id uuid.UUID) error {
	e, err := s.escrows.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e.IsFinal() {
		return models.ErrAlreadyFinal
	}
	return fmt.Errorf("%w: escrow is %s", models.ErrInvalidTransition, e.Status)
}

// verifyRecord enforces the fee-sum invariant. A broken record is
// frozen: every transition refuses it and it is flagged for manual
// audit.
func (s *LedgerService) verifyRecord(ctx context.Context, e *models.EscrowPayment) error {
	if e.TotalCents == e.AmountCents+e.ServiceFeeCents {
		return nil
	}
	s.log.Error("escrow fee sum mismatch, record frozen for manual audit",
		zap.String("escrow_id", e.ID.String()),
		zap.Int64("amount_cents", e.AmountCents),
		zap.Int64("service_fee_cents", e.ServiceFeeCents),
		zap.Int64("total_cents", e.TotalCents),
	)
	s.logAudit(ctx, nil, "system", "escrow_invariant_violation", e.ID, map[string]any{
		"amount_cents":      e.AmountCents,
		"service_fee_cents": e.ServiceFeeCents,
		"total_cents":       e.TotalCents,
	})
	return models.ErrInvariantViolation
}

func (s *LedgerService) logAudit(ctx context.Context, actorID *uuid.UUID, actorType, action string, escrowID uuid.UUID, meta map[string]any) {
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorUserID: actorID,
		ActorType:   actorType,
		Action:      action,
		EntityType:  "escrow",
		EntityID:    &escrowID,
		Meta:        meta,
	})
}

func (s *LedgerService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.StreamPayments, event); err != nil {
		s.log.Warn("failed to publish payment event",
			zap.String("type", event.Type), zap.Error(err))
	}
}

package handlers

import (
	"errors"

	"github.com/favorlink/backend/internal/http/dto"
	"github.com/favorlink/backend/internal/middleware"
	"github.com/favorlink/backend/internal/models"
	"github.com/favorlink/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EscrowHandler struct {
	ledger *services.LedgerService
	log    *zap.Logger
}

func NewEscrowHandler(ledger *services.LedgerService, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{ledger: ledger, log: log}
}

// CreateEscrow opens a pending escrow when the favor lifecycle reports
// an acceptance.
// POST /escrows
func (h *EscrowHandler) CreateEscrow(c *fiber.Ctx) error {
	var req dto.CreateEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	favorID, err := uuid.Parse(req.FavorID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid favor_id"})
	}
	requesterID, err := uuid.Parse(req.RequesterID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid requester_id"})
	}
	helperID, err := uuid.Parse(req.HelperID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid helper_id"})
	}

	escrow, err := h.ledger.CreateEscrow(c.Context(), favorID, requesterID, helperID, req.AmountCents)
	if err != nil {
		return h.writeLedgerError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// HoldEscrow captures the requester's payment.
// POST /escrows/:id/hold
func (h *EscrowHandler) HoldEscrow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	escrow, err := h.ledger.HoldEscrow(c.Context(), id)
	if err != nil {
		return h.writeLedgerError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// ReleaseEscrow pays a held escrow out to the helper.
// POST /escrows/:id/release
func (h *EscrowHandler) ReleaseEscrow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	var req dto.ReleaseEscrowRequest
	_ = c.BodyParser(&req)
	trigger := req.TriggeredBy
	switch trigger {
	case "":
		trigger = models.ReleaseTriggerRequester
	case models.ReleaseTriggerRequester, models.ReleaseTriggerDispute:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "triggered_by must be requester or dispute-resolution"})
	}

	actorID := middleware.GetUserID(c)
	escrow, err := h.ledger.ReleaseEscrow(c.Context(), id, trigger, &actorID)
	if err != nil {
		return h.writeLedgerError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// RefundEscrow returns the captured amount to the requester.
// POST /escrows/:id/refund
func (h *EscrowHandler) RefundEscrow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	actorID := middleware.GetUserID(c)
	escrow, err := h.ledger.RefundEscrow(c.Context(), id, &actorID)
	if err != nil {
		return h.writeLedgerError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// CancelEscrow voids a pending escrow before payment capture.
// POST /escrows/:id/cancel
func (h *EscrowHandler) CancelEscrow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	actorID := middleware.GetUserID(c)
	escrow, err := h.ledger.CancelEscrow(c.Context(), id, &actorID)
	if err != nil {
		return h.writeLedgerError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// GetEscrow returns one escrow record.
// GET /escrows/:id
func (h *EscrowHandler) GetEscrow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	escrow, err := h.ledger.GetEscrow(c.Context(), id)
	if err != nil {
		return h.writeLedgerError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// GetEscrowByFavor returns the active escrow for a favor.
// GET /favors/:favorId/escrow
func (h *EscrowHandler) GetEscrowByFavor(c *fiber.Ctx) error {
	favorID, err := uuid.Parse(c.Params("favorId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid favor id"})
	}

	escrow, err := h.ledger.GetEscrowByFavor(c.Context(), favorID)
	if err != nil {
		return h.writeLedgerError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// GetEscrowEvents returns the audit trail of one escrow.
// GET /escrows/:id/events
func (h *EscrowHandler) GetEscrowEvents(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	logs, err := h.ledger.GetEscrowEvents(c.Context(), id)
	if err != nil {
		h.log.Error("failed to load escrow events", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: logs})
}

// CalculateFees is the side-effect-free fee preview for the UI.
// GET /fees?amount_cents=5000
func (h *EscrowHandler) CalculateFees(c *fiber.Ctx) error {
	amount := c.QueryInt("amount_cents")
	breakdown, err := h.ledger.CalculateFees(int64(amount))
	if err != nil {
		return h.writeLedgerError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: breakdown})
}

// writeLedgerError maps the ledger's error taxonomy onto HTTP statuses.
func (h *EscrowHandler) writeLedgerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrEscrowNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "escrow not found"})
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrSameParty):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrDuplicateEscrow),
		errors.Is(err, models.ErrAlreadyFinal),
		errors.Is(err, models.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrChargeFailed),
		errors.Is(err, models.ErrTransferFailed),
		errors.Is(err, models.ErrRefundFailed):
		// Recoverable: the record kept its pre-call status.
		return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{Error: "payment failed, try again"})
	default:
		h.log.Error("ledger operation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
}

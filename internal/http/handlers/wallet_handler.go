package handlers

import (
	"github.com/favorlink/backend/internal/http/dto"
	"github.com/favorlink/backend/internal/middleware"
	"github.com/favorlink/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type WalletHandler struct {
	walletService *services.WalletService
	log           *zap.Logger
}

func NewWalletHandler(walletService *services.WalletService, log *zap.Logger) *WalletHandler {
	return &WalletHandler{walletService: walletService, log: log}
}

// GetWallet returns the caller's balance, pending earnings, kyc status
// and payment methods.
// GET /me/wallet
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	wallet, err := h.walletService.GetWallet(c.Context(), userID)
	if err != nil {
		h.log.Error("failed to load wallet", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: wallet})
}

// AddPaymentMethod registers a payout destination.
// POST /me/wallet/payment-methods
func (h *WalletHandler) AddPaymentMethod(c *fiber.Ctx) error {
	var req dto.AddPaymentMethodRequest
	if err := c.BodyParser(&req); err != nil || req.Kind == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "kind is required (card, bank, internal)"})
	}

	userID := middleware.GetUserID(c)
	m, err := h.walletService.AddPaymentMethod(c.Context(), userID, req.Kind, req.Label, req.Last4, req.IsDefault)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: m})
}

// ListPaymentMethods lists the caller's payout destinations.
// GET /me/wallet/payment-methods
func (h *WalletHandler) ListPaymentMethods(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	methods, err := h.walletService.ListPaymentMethods(c.Context(), userID)
	if err != nil {
		h.log.Error("failed to list payment methods", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: methods})
}

// RemovePaymentMethod deletes one of the caller's payout destinations.
// DELETE /me/wallet/payment-methods/:id
func (h *WalletHandler) RemovePaymentMethod(c *fiber.Ctx) error {
	methodID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid payment method id"})
	}

	userID := middleware.GetUserID(c)
	if err := h.walletService.RemovePaymentMethod(c.Context(), userID, methodID); err != nil {
		h.log.Error("failed to remove payment method", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// SetKYCStatus records the verification outcome reported by the
// external KYC provider. Service credentials required.
// PUT /users/:id/kyc
func (h *WalletHandler) SetKYCStatus(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid user id"})
	}

	var req dto.SetKYCStatusRequest
	if err := c.BodyParser(&req); err != nil || req.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "status is required"})
	}

	if err := h.walletService.SetKYCStatus(c.Context(), userID, req.Status); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

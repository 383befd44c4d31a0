package http

import (
	"time"

	"github.com/favorlink/backend/internal/config"
	"github.com/favorlink/backend/internal/http/handlers"
	"github.com/favorlink/backend/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	escrowHandler *handlers.EscrowHandler,
	walletHandler *handlers.WalletHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Fee preview (read-only)
	protected.Get("/fees", escrowHandler.CalculateFees)

	// Wallet
	protected.Get("/me/wallet", walletHandler.GetWallet)
	protected.Get("/me/wallet/payment-methods", walletHandler.ListPaymentMethods)
	protected.Post("/me/wallet/payment-methods", walletHandler.AddPaymentMethod)
	protected.Delete("/me/wallet/payment-methods/:id", walletHandler.RemovePaymentMethod)

	// Escrow queries
	protected.Get("/escrows/:id", escrowHandler.GetEscrow)
	protected.Get("/escrows/:id/events", escrowHandler.GetEscrowEvents)
	protected.Get("/favors/:favorId/escrow", escrowHandler.GetEscrowByFavor)

	// Escrow transitions, driven by the favor lifecycle collaborator
	// (acceptance, completion, dispute resolution, cancellation).
	service := protected.Group("", middleware.ServiceOnly())
	service.Post("/escrows", escrowHandler.CreateEscrow)
	service.Post("/escrows/:id/hold", escrowHandler.HoldEscrow)
	service.Post("/escrows/:id/release", escrowHandler.ReleaseEscrow)
	service.Post("/escrows/:id/refund", escrowHandler.RefundEscrow)
	service.Post("/escrows/:id/cancel", escrowHandler.CancelEscrow)
	service.Put("/users/:id/kyc", walletHandler.SetKYCStatus)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}

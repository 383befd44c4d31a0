package middleware

import (
	"strings"

	"github.com/favorlink/backend/internal/auth"
	"github.com/favorlink/backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CtxUserID  = "user_id"
	CtxService = "service"
)

func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(CtxUserID, claims.UserID)
		c.Locals(CtxService, claims.Service)

		return c.Next()
	}
}

func GetUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxUserID).(uuid.UUID)
	return id
}

// IsServiceCall reports whether the token belongs to an internal
// collaborator (favor lifecycle, dispute resolution) rather than an end
// user.
func IsServiceCall(c *fiber.Ctx) bool {
	s, _ := c.Locals(CtxService).(string)
	return s != ""
}

// ServiceOnly guards transition endpoints that only internal
// collaborators may call.
func ServiceOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IsServiceCall(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "service credentials required"})
		}
		return c.Next()
	}
}

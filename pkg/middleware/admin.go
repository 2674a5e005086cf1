package middleware

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func RequireAdmin(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := CurrentIdentity(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		if !identity.IsAdmin {
			logger.Warn("Non-admin tried an admin route", zap.String("user_id", identity.ID), zap.String("path", c.Path()))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}
		return c.Next()
	}
}

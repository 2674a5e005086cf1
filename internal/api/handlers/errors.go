package handlers

import (
	"errors"

	"proofchest/internal/backend"
	"proofchest/internal/models"
	"proofchest/internal/service"
	"proofchest/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrPreconditionFailed),
		errors.Is(err, models.ErrUnknownCategory):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrInvalidCredential):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	// checked before upload/persist, which may wrap it
	case errors.Is(err, backend.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, service.ErrUpload), errors.Is(err, service.ErrPersist):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// respondError writes err as JSON. Internal errors are logged and their
// details hidden.
func respondError(c *fiber.Ctx, logger *zap.Logger, msg string, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		logger.Error(msg, zap.String("path", c.Path()), zap.Error(err))
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
	if code == fiber.StatusBadGateway {
		logger.Warn(msg, zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func currentIdentity(c *fiber.Ctx) (models.Identity, error) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return models.Identity{}, service.ErrUnauthenticated
	}
	return identity, nil
}

package handlers

import (
	"errors"
	"fmt"
	"testing"

	"proofchest/internal/backend"
	"proofchest/internal/models"
	"proofchest/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", service.ErrUsernameTaken, fiber.StatusBadRequest},
		{"unknown category", fmt.Errorf("%w: %w", service.ErrValidation, models.ErrUnknownCategory), fiber.StatusBadRequest},
		{"precondition", service.ErrPreconditionFailed, fiber.StatusBadRequest},
		{"unauthenticated", service.ErrUnauthenticated, fiber.StatusUnauthorized},
		{"invalid credential", service.ErrInvalidCredential, fiber.StatusUnauthorized},
		{"permission", service.ErrPermissionDenied, fiber.StatusForbidden},
		{"not found", service.ErrNotFound, fiber.StatusNotFound},
		{"upload", fmt.Errorf("%w: disk full", service.ErrUpload), fiber.StatusBadGateway},
		{"persist", fmt.Errorf("%w: %w", service.ErrPersist, errors.New("conn reset")), fiber.StatusBadGateway},
		{"persist wrapping unavailable", fmt.Errorf("%w: %w", service.ErrPersist, backend.ErrUnavailable), fiber.StatusServiceUnavailable},
		{"upload wrapping unavailable", fmt.Errorf("%w: %w", service.ErrUpload, backend.ErrUnavailable), fiber.StatusServiceUnavailable},
		{"other", errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, statusFor(tc.err))
		})
	}
}

package handlers

import (
	"errors"

	"proofchest/internal/dto"
	"proofchest/internal/models"
	"proofchest/internal/service"
	"proofchest/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *service.AuthService
	expiresIn   int64
	logger      *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, expiresIn int64, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		expiresIn:   expiresIn,
		logger:      logger,
	}
}

// SignUp godoc
// @Summary Sign up
// @Description Create an account with username and password. Falls back to a local identity when the backend is unreachable in development.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.SignUpRequest true "Sign-up request"
// @Success 201 {object} dto.AuthResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/auth/signup [post]
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	res, err := h.authService.SignUp(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, h.logger, "Sign-up failed", err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.authResponse(res))
}

// Login godoc
// @Summary Login
// @Description Login with username and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	res, err := h.authService.Login(c.UserContext(), req.Username, req.Password)
	if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrInvalidCredential) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}
	if err != nil {
		return respondError(c, h.logger, "Login failed", err)
	}
	return c.JSON(h.authResponse(res))
}

// Me godoc
// @Summary Current identity
// @Tags auth
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return respondError(c, h.logger, "Unauthorized", err)
	}
	return c.JSON(userResponse(identity))
}

// Logout godoc
// @Summary Logout
// @Description Ends the session. Always succeeds for a valid token.
// @Tags auth
// @Security Bearer
// @Success 204
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return respondError(c, h.logger, "Unauthorized", err)
	}
	if err := h.authService.Logout(c.UserContext(), identity, middleware.BearerToken(c)); err != nil {
		return respondError(c, h.logger, "Logout failed", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) authResponse(res *service.AuthResult) dto.AuthResponse {
	resp := dto.AuthResponse{
		AccessToken: res.Token,
		User:        userResponse(res.Identity),
	}
	if res.Token != "" {
		resp.TokenType = "Bearer"
		resp.ExpiresIn = h.expiresIn
	}
	return resp
}

func userResponse(identity models.Identity) dto.UserResponse {
	return dto.UserResponse{
		ID:       identity.ID,
		Username: identity.Username,
		IsAdmin:  identity.IsAdmin,
		Fallback: identity.IsFallback(),
	}
}

package middleware

import (
	"context"

	"proofchest/internal/models"
	"proofchest/pkg/auth"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	tokenKey    = "jwt"
	identityKey = "identity"
)

type IdentityResolver interface {
	ResolveCurrentIdentity(ctx context.Context, token string) (models.Identity, error)
}

// JWT rejects requests without a correctly signed, unexpired bearer token.
func JWT(jwtManager *auth.JWTManager, logger *zap.Logger) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: jwtManager.SigningKey()},
		ContextKey: tokenKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			logger.Debug("Rejected bearer token", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		},
	})
}

// Identity resolves the verified token to the caller's identity. It must run
// after JWT.
func Identity(resolver IdentityResolver, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization token required",
			})
		}

		identity, err := resolver.ResolveCurrentIdentity(c.UserContext(), token)
		if err != nil {
			logger.Debug("No identity for token", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Session expired or signed out",
			})
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// BearerToken returns the raw token verified by JWT.
func BearerToken(c *fiber.Ctx) string {
	tok, ok := c.Locals(tokenKey).(*jwt.Token)
	if !ok || tok == nil {
		return ""
	}
	return tok.Raw
}

func CurrentIdentity(c *fiber.Ctx) (models.Identity, bool) {
	identity, ok := c.Locals(identityKey).(models.Identity)
	return identity, ok && !identity.IsZero()
}

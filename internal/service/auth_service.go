package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"proofchest/internal/backend"
	"proofchest/internal/models"
	"proofchest/pkg/auth"
	"proofchest/pkg/config"

	"go.uber.org/zap"
)

// FallbackAdminID is the id of the explicitly configured local admin.
const FallbackAdminID = models.FallbackIDPrefix + "admin"

type AuthResult struct {
	Identity models.Identity
	// Token is empty when sign-up succeeded but no session could be opened.
	Token string
}

// AuthService is the only place identities are built. Callers receive
// them as values.
type AuthService struct {
	remote     backend.Backend
	local      backend.Backend
	jwtManager *auth.JWTManager
	fallback   config.FallbackConfig
	logger     *zap.Logger
}

func NewAuthService(backends backend.Selector, jwtManager *auth.JWTManager, fallback config.FallbackConfig, logger *zap.Logger) *AuthService {
	s := &AuthService{
		remote:     backends.Remote,
		jwtManager: jwtManager,
		fallback:   fallback,
		logger:     logger,
	}
	if backends.FallbackEnabled && backends.Local != nil {
		s.local = backends.Local
	}
	return s
}

func (s *AuthService) fallbackEnabled() bool {
	return s.local != nil
}

// ResolveCurrentIdentity maps a bearer token to the identity it was issued for.
func (s *AuthService) ResolveCurrentIdentity(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, ErrUnauthenticated
	}
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return models.Identity{}, ErrUnauthenticated
	}

	if claims.Fallback {
		if !s.fallbackEnabled() {
			return models.Identity{}, ErrUnauthenticated
		}
		if _, err := s.local.ResolveSession(ctx, token); err != nil {
			return models.Identity{}, ErrUnauthenticated
		}
		user, err := s.local.LookupUserByID(ctx, claims.UserID)
		if err != nil {
			return models.Identity{}, ErrUnauthenticated
		}
		return models.FallbackIdentity(*user), nil
	}

	userID, err := s.remote.ResolveSession(ctx, token)
	if err != nil {
		s.logger.Debug("No remote session for token", zap.String("user_id", claims.UserID), zap.Error(err))
		return s.restoreFallback(ctx, claims.Username)
	}
	user, err := s.remote.LookupUserByID(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load user for session", zap.String("user_id", userID), zap.Error(err))
		return s.restoreFallback(ctx, claims.Username)
	}
	return models.RemoteIdentity(*user), nil
}

// restoreFallback returns the persisted fallback identity for username, if
// one is still signed in locally.
func (s *AuthService) restoreFallback(ctx context.Context, username string) (models.Identity, error) {
	if !s.fallbackEnabled() || username == "" {
		return models.Identity{}, ErrUnauthenticated
	}
	account, err := s.local.LookupUser(ctx, username)
	if err != nil {
		return models.Identity{}, ErrUnauthenticated
	}
	user, err := s.local.LookupUserByID(ctx, account.ID)
	if err != nil {
		return models.Identity{}, ErrUnauthenticated
	}
	s.logger.Info("Restored fallback identity", zap.String("user_id", user.ID))
	return models.FallbackIdentity(*user), nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	if s.isFallbackAdmin(username, password) {
		admin := models.User{ID: FallbackAdminID, Username: username, IsAdmin: true, CreatedAt: time.Now().UTC()}
		return s.establishFallback(ctx, admin)
	}

	user, err := s.remote.LookupUser(ctx, username)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return s.degrade(ctx, "login", username, password, err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredential
	}

	token, err := s.remote.EstablishSession(ctx, *user)
	if err != nil {
		if backend.IsUnavailable(err) {
			return s.degrade(ctx, "login", username, password, err)
		}
		return nil, fmt.Errorf("failed to establish session: %w", err)
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID))
	return &AuthResult{Identity: models.RemoteIdentity(*user), Token: token}, nil
}

func (s *AuthService) SignUp(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.remote.CreateUser(ctx, username, hash)
	if errors.Is(err, backend.ErrAlreadyExists) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return s.degrade(ctx, "signup", username, password, err)
	}

	token, err := s.remote.EstablishSession(ctx, *user)
	if err != nil {
		// the row exists, so the account is usable with a later login
		s.logger.Warn("Failed to establish session after sign-up", zap.String("user_id", user.ID), zap.Error(err))
		token = ""
	}

	s.logger.Info("User signed up", zap.String("user_id", user.ID))
	return &AuthResult{Identity: models.RemoteIdentity(*user), Token: token}, nil
}

// Logout always succeeds. Teardown failures are only logged.
func (s *AuthService) Logout(ctx context.Context, identity models.Identity, token string) error {
	user := models.User{ID: identity.ID, Username: identity.Username, IsAdmin: identity.IsAdmin}

	if identity.IsFallback() {
		if s.fallbackEnabled() {
			if err := s.local.EndSession(ctx, user, token); err != nil {
				s.logger.Warn("Failed to clear fallback identity", zap.String("user_id", identity.ID), zap.Error(err))
			}
		}
		return nil
	}

	if err := s.remote.EndSession(ctx, user, token); err != nil {
		s.logger.Warn("Failed to end session", zap.String("user_id", identity.ID), zap.Error(err))
	}
	s.clearFallback(ctx, identity.Username)
	return nil
}

// clearFallback removes the persisted fallback identity for username so a
// signed-out remote token cannot restore it.
func (s *AuthService) clearFallback(ctx context.Context, username string) {
	if !s.fallbackEnabled() || username == "" {
		return
	}
	account, err := s.local.LookupUser(ctx, username)
	if err != nil {
		if !errors.Is(err, backend.ErrNotFound) {
			s.logger.Warn("Failed to read fallback account", zap.String("username", username), zap.Error(err))
		}
		return
	}
	if err := s.local.EndSession(ctx, *account, ""); err != nil {
		s.logger.Warn("Failed to clear fallback identity", zap.String("user_id", account.ID), zap.Error(err))
	}
}

func (s *AuthService) isFallbackAdmin(username, password string) bool {
	if !s.fallbackEnabled() || s.fallback.AdminUsername == "" || s.fallback.AdminPassword == "" {
		return false
	}
	return username == s.fallback.AdminUsername && password == s.fallback.AdminPassword
}

// degrade turns a backend failure into a local identity when fallback is on.
// Fallback identities are never admin.
func (s *AuthService) degrade(ctx context.Context, op, username, password string, cause error) (*AuthResult, error) {
	if !s.fallbackEnabled() || !backend.IsUnavailable(cause) {
		return nil, fmt.Errorf("%s: %w", op, cause)
	}
	s.logger.Warn("Backend unavailable, using fallback identity",
		zap.String("op", op),
		zap.String("username", username),
		zap.Error(cause),
	)

	user, err := s.local.LookupUser(ctx, username)
	switch {
	case err == nil:
		if user.PasswordHash != "" && !auth.CheckPasswordHash(password, user.PasswordHash) {
			return nil, ErrInvalidCredential
		}
	case errors.Is(err, backend.ErrNotFound):
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user, err = s.local.CreateUser(ctx, username, hash)
		if err != nil {
			return nil, fmt.Errorf("failed to create fallback user: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to read fallback user: %w", err)
	}

	user.IsAdmin = false
	return s.establishFallback(ctx, *user)
}

func (s *AuthService) establishFallback(ctx context.Context, user models.User) (*AuthResult, error) {
	token, err := s.local.EstablishSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to persist fallback identity: %w", err)
	}
	return &AuthResult{Identity: models.FallbackIdentity(user), Token: token}, nil
}

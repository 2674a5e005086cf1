package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"proofchest/internal/models"
	"proofchest/internal/repository"
	"proofchest/pkg/auth"

	"go.uber.org/zap"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrInvalidCredential = errors.New("invalid session credential")
)

// SyntheticDomain is the address space for credentials derived from user ids.
const SyntheticDomain = "proofchest.local"

// SyntheticEmail bridges username logins onto the email-keyed credential table.
func SyntheticEmail(userID string) string {
	return userID + "@" + SyntheticDomain
}

type CredentialStore interface {
	Create(ctx context.Context, cred models.Credential) error
	GetByEmail(ctx context.Context, email string) (*models.Credential, error)
}

// Store keeps live sessions keyed by token id.
type Store interface {
	Save(ctx context.Context, id, userID string, ttl time.Duration) error
	Load(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
}

type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

type Service struct {
	creds  CredentialStore
	store  Store
	jwt    *auth.JWTManager
	logger *zap.Logger
}

func NewService(creds CredentialStore, store Store, jwtManager *auth.JWTManager, logger *zap.Logger) *Service {
	return &Service{
		creds:  creds,
		store:  store,
		jwt:    jwtManager,
		logger: logger,
	}
}

// SignUp registers a credential for userID. The secret is stored hashed.
func (s *Service) SignUp(ctx context.Context, email, secret, userID string) error {
	hash, err := auth.HashPassword(secret)
	if err != nil {
		return fmt.Errorf("failed to hash session secret: %w", err)
	}
	err = s.creds.Create(ctx, models.Credential{Email: email, SecretHash: hash, UserID: userID})
	if err != nil {
		return fmt.Errorf("failed to create session credential: %w", err)
	}
	return nil
}

// SignIn verifies the credential and opens a session.
func (s *Service) SignIn(ctx context.Context, email, secret, username string) (*Session, error) {
	cred, err := s.creds.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session credential: %w", err)
	}
	if !auth.CheckPasswordHash(secret, cred.SecretHash) {
		return nil, ErrInvalidCredential
	}

	token, claims, err := s.jwt.GenerateToken(cred.UserID, username, false)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, claims.ID, cred.UserID, s.jwt.GetTokenDuration()); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Debug("Session opened", zap.String("user_id", cred.UserID), zap.String("session_id", claims.ID))
	return &Session{Token: token, UserID: cred.UserID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Current returns the live session behind token.
func (s *Service) Current(ctx context.Context, token string) (*Session, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, ErrNotFound
	}
	if claims.Fallback {
		return nil, ErrNotFound
	}

	userID, err := s.store.Load(ctx, claims.ID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if userID != claims.UserID {
		return nil, ErrNotFound
	}
	return &Session{Token: token, UserID: userID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return ErrNotFound
	}
	if err := s.store.Delete(ctx, claims.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

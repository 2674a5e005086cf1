// Package backend hides where users, sessions, files and documents live.
// Ingestion and browsing are written once against Backend; the networked and
// local implementations are chosen per identity by a Selector built at startup.
package backend

import (
	"context"
	"errors"

	"proofchest/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrUnavailable       = errors.New("backend unavailable")
)

type Mode string

const (
	ModeNetworked Mode = "networked"
	ModeLocal     Mode = "local"
)

type Backend interface {
	Mode() Mode

	LookupUser(ctx context.Context, username string) (*models.User, error)
	LookupUserByID(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)

	// EstablishSession opens a session for user and returns its bearer token.
	EstablishSession(ctx context.Context, user models.User) (string, error)
	EndSession(ctx context.Context, user models.User, token string) error
	// ResolveSession returns the user id behind a live session token.
	ResolveSession(ctx context.Context, token string) (string, error)

	// StoreFile persists raw bytes and returns a durable reference to them.
	StoreFile(ctx context.Context, key string, data []byte, contentType string) (string, error)

	InsertDocument(ctx context.Context, doc models.Document) (*models.Document, error)
	// ListDocuments returns the owner's documents in category, newest first.
	ListDocuments(ctx context.Context, ownerID string, category models.Category) ([]*models.Document, error)
	DeleteDocument(ctx context.Context, ownerID, documentID string) error
}

// IsUnavailable reports whether err means the backend could not be reached,
// as opposed to a definite answer such as not found.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrNotFound) &&
		!errors.Is(err, ErrAlreadyExists) &&
		!errors.Is(err, ErrInvalidCredential) &&
		!errors.Is(err, context.Canceled)
}

// Selector routes each identity to the backend that owns its data.
type Selector struct {
	Remote          Backend
	Local           Backend
	FallbackEnabled bool
}

func (s Selector) For(identity models.Identity) Backend {
	if identity.IsFallback() {
		if s.FallbackEnabled && s.Local != nil {
			return s.Local
		}
		return Unavailable{}
	}
	return s.Remote
}

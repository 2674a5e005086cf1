package backend

import (
	"context"

	"proofchest/internal/models"
)

// Unavailable stands in for the networked backend when it could not be
// reached at startup. Every call fails, which sends callers down the
// fallback path when that is enabled.
type Unavailable struct{}

func (Unavailable) Mode() Mode { return ModeNetworked }

func (Unavailable) LookupUser(context.Context, string) (*models.User, error) {
	return nil, ErrUnavailable
}

func (Unavailable) LookupUserByID(context.Context, string) (*models.User, error) {
	return nil, ErrUnavailable
}

func (Unavailable) CreateUser(context.Context, string, string) (*models.User, error) {
	return nil, ErrUnavailable
}

func (Unavailable) EstablishSession(context.Context, models.User) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) EndSession(context.Context, models.User, string) error {
	return ErrUnavailable
}

func (Unavailable) ResolveSession(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) StoreFile(context.Context, string, []byte, string) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) InsertDocument(context.Context, models.Document) (*models.Document, error) {
	return nil, ErrUnavailable
}

func (Unavailable) ListDocuments(context.Context, string, models.Category) ([]*models.Document, error) {
	return nil, ErrUnavailable
}

func (Unavailable) DeleteDocument(context.Context, string, string) error {
	return ErrUnavailable
}

// Announcement store methods, so the announcement board degrades the same way.

func (Unavailable) List(context.Context) ([]*models.Announcement, error) {
	return nil, ErrUnavailable
}

func (Unavailable) GetByID(context.Context, string) (*models.Announcement, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Create(context.Context, models.Announcement) (*models.Announcement, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Update(context.Context, string, models.Announcement) (*models.Announcement, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Delete(context.Context, string) error {
	return ErrUnavailable
}

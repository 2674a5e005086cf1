package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"proofchest/internal/models"
	"proofchest/internal/repository"
	"proofchest/internal/session"
	"proofchest/internal/storage"

	"go.uber.org/zap"
)

type UserRepository interface {
	Create(ctx context.Context, username, passwordHash string, isAdmin bool) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type DocumentRepository interface {
	Create(ctx context.Context, doc models.Document) (*models.Document, error)
	ListByOwnerAndCategory(ctx context.Context, ownerID string, category models.Category) ([]*models.Document, error)
	DeleteOwned(ctx context.Context, ownerID, id string) error
}

type SessionService interface {
	SignUp(ctx context.Context, email, secret, userID string) error
	SignIn(ctx context.Context, email, secret, username string) (*session.Session, error)
	SignOut(ctx context.Context, token string) error
	Current(ctx context.Context, token string) (*session.Session, error)
}

// Networked talks to PostgreSQL, the session service and the file bucket.
type Networked struct {
	users    UserRepository
	docs     DocumentRepository
	sessions SessionService
	bucket   storage.Bucket
	logger   *zap.Logger
}

func NewNetworked(users UserRepository, docs DocumentRepository, sessions SessionService, bucket storage.Bucket, logger *zap.Logger) *Networked {
	return &Networked{
		users:    users,
		docs:     docs,
		sessions: sessions,
		bucket:   bucket,
		logger:   logger,
	}
}

func (n *Networked) Mode() Mode { return ModeNetworked }

func (n *Networked) LookupUser(ctx context.Context, username string) (*models.User, error) {
	user, err := n.users.GetByUsername(ctx, username)
	return user, translate(err)
}

func (n *Networked) LookupUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := n.users.GetByID(ctx, id)
	return user, translate(err)
}

func (n *Networked) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user, err := n.users.Create(ctx, username, passwordHash, false)
	return user, translate(err)
}

// EstablishSession signs in with the synthetic credential and creates that
// credential on first use.
func (n *Networked) EstablishSession(ctx context.Context, user models.User) (string, error) {
	email := session.SyntheticEmail(user.ID)

	sess, err := n.sessions.SignIn(ctx, email, user.ID, user.Username)
	if errors.Is(err, session.ErrNotFound) {
		n.logger.Info("Creating session credential", zap.String("user_id", user.ID))
		if err := n.sessions.SignUp(ctx, email, user.ID, user.ID); err != nil {
			return "", translate(err)
		}
		sess, err = n.sessions.SignIn(ctx, email, user.ID, user.Username)
	}
	if errors.Is(err, session.ErrInvalidCredential) {
		return "", ErrInvalidCredential
	}
	if err != nil {
		return "", translate(err)
	}
	return sess.Token, nil
}

func (n *Networked) EndSession(ctx context.Context, user models.User, token string) error {
	err := n.sessions.SignOut(ctx, token)
	if errors.Is(err, session.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (n *Networked) ResolveSession(ctx context.Context, token string) (string, error) {
	sess, err := n.sessions.Current(ctx, token)
	if errors.Is(err, session.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return sess.UserID, nil
}

// StoreFile uploads to the bucket and returns the object key.
func (n *Networked) StoreFile(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := n.bucket.Upload(ctx, key, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("upload to bucket %s: %w", n.bucket.Name(), err)
	}
	return key, nil
}

func (n *Networked) InsertDocument(ctx context.Context, doc models.Document) (*models.Document, error) {
	created, err := n.docs.Create(ctx, doc)
	return created, translate(err)
}

func (n *Networked) ListDocuments(ctx context.Context, ownerID string, category models.Category) ([]*models.Document, error) {
	docs, err := n.docs.ListByOwnerAndCategory(ctx, ownerID, category)
	return docs, translate(err)
}

func (n *Networked) DeleteDocument(ctx context.Context, ownerID, documentID string) error {
	return translate(n.docs.DeleteOwned(ctx, ownerID, documentID))
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrAlreadyExists):
		return ErrAlreadyExists
	}
	return err
}

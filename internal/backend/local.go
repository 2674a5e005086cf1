package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"proofchest/internal/kv"
	"proofchest/internal/models"
	"proofchest/pkg/auth"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	fallbackUserPrefix     = "fallback_user:"
	fallbackUsernamePrefix = "fallback_username:"
	fallbackDocumentsKey   = "fallback_documents"
)

type localUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash,omitempty"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u localUser) model() *models.User {
	return &models.User{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
	}
}

type localDocument struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"user_id"`
	Bucket        string    `json:"category"`
	ImageURL      string    `json:"image_url"`
	ExtractedText string    `json:"extracted_text"`
	CreatedAt     time.Time `json:"created_at"`
}

// Local keeps fallback identities and their documents in the device-local
// key-value store. Files are inlined as data URLs.
//
// Layout:
//
//	fallback_user:<id>           current identity, removed on logout
//	fallback_username:<username> account record, survives logout
//	fallback_documents           JSON array of every fallback document
type Local struct {
	store  kv.Store
	jwt    *auth.JWTManager
	now    func() time.Time
	logger *zap.Logger

	// guards read-modify-write of fallback_documents
	mu sync.Mutex
}

func NewLocal(store kv.Store, jwtManager *auth.JWTManager, logger *zap.Logger) *Local {
	return &Local{
		store:  store,
		jwt:    jwtManager,
		now:    time.Now,
		logger: logger,
	}
}

func (l *Local) Mode() Mode { return ModeLocal }

// LookupUser finds a fallback account by username.
func (l *Local) LookupUser(ctx context.Context, username string) (*models.User, error) {
	var u localUser
	if err := l.getJSON(ctx, fallbackUsernamePrefix+username, &u); err != nil {
		return nil, err
	}
	return u.model(), nil
}

// LookupUserByID returns the persisted current identity for id.
func (l *Local) LookupUserByID(ctx context.Context, id string) (*models.User, error) {
	var u localUser
	if err := l.getJSON(ctx, fallbackUserPrefix+id, &u); err != nil {
		return nil, err
	}
	return u.model(), nil
}

// CreateUser registers a fallback account with a dev-<username>-<unixms> id.
func (l *Local) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	if _, err := l.LookupUser(ctx, username); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := l.now().UTC()
	u := localUser{
		ID:           fmt.Sprintf("%s%s-%d", models.FallbackIDPrefix, username, now.UnixMilli()),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}
	if err := l.setJSON(ctx, fallbackUsernamePrefix+username, u); err != nil {
		return nil, err
	}
	l.logger.Info("Fallback account created", zap.String("user_id", u.ID), zap.String("username", username))
	return u.model(), nil
}

// EstablishSession persists user as the current identity and issues a
// fallback token for it.
func (l *Local) EstablishSession(ctx context.Context, user models.User) (string, error) {
	if !models.IsFallbackID(user.ID) {
		return "", fmt.Errorf("%w: %q is not a fallback id", ErrInvalidCredential, user.ID)
	}
	u := localUser{
		ID:        user.ID,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
	}
	if err := l.setJSON(ctx, fallbackUserPrefix+user.ID, u); err != nil {
		return "", err
	}
	token, _, err := l.jwt.GenerateToken(user.ID, user.Username, true)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (l *Local) EndSession(ctx context.Context, user models.User, _ string) error {
	return l.store.Remove(ctx, fallbackUserPrefix+user.ID)
}

// ResolveSession accepts fallback tokens whose identity is still persisted.
func (l *Local) ResolveSession(ctx context.Context, token string) (string, error) {
	claims, err := l.jwt.ValidateToken(token)
	if err != nil || !claims.Fallback {
		return "", ErrNotFound
	}
	if _, err := l.LookupUserByID(ctx, claims.UserID); err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// StoreFile returns the bytes as a data URL. Nothing is written.
func (l *Local) StoreFile(_ context.Context, _ string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func (l *Local) InsertDocument(ctx context.Context, doc models.Document) (*models.Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	docs, err := l.loadDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = l.now()
	}
	doc.ID = uuid.NewString()
	docs = append(docs, localDocument{
		ID:            doc.ID,
		OwnerID:       doc.OwnerID,
		Bucket:        doc.Category.Bucket(),
		ImageURL:      doc.ImageReference,
		ExtractedText: doc.ExtractedText,
		CreatedAt:     doc.CreatedAt.UTC(),
	})
	if err := l.setJSON(ctx, fallbackDocumentsKey, docs); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments filters by owner and by the lowercase bucket name, the form
// fallback documents are recorded under.
func (l *Local) ListDocuments(ctx context.Context, ownerID string, category models.Category) ([]*models.Document, error) {
	l.mu.Lock()
	docs, err := l.loadDocuments(ctx)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}

	result := make([]*models.Document, 0)
	for i := len(docs) - 1; i >= 0; i-- {
		d := docs[i]
		if d.OwnerID != ownerID || !strings.EqualFold(d.Bucket, category.Bucket()) {
			continue
		}
		result = append(result, &models.Document{
			ID:             d.ID,
			OwnerID:        d.OwnerID,
			Category:       category,
			ImageReference: d.ImageURL,
			ExtractedText:  d.ExtractedText,
			CreatedAt:      d.CreatedAt,
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (l *Local) DeleteDocument(ctx context.Context, ownerID, documentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	docs, err := l.loadDocuments(ctx)
	if err != nil {
		return err
	}
	for i, d := range docs {
		if d.ID == documentID && d.OwnerID == ownerID {
			docs = append(docs[:i], docs[i+1:]...)
			return l.setJSON(ctx, fallbackDocumentsKey, docs)
		}
	}
	return ErrNotFound
}

func (l *Local) loadDocuments(ctx context.Context) ([]localDocument, error) {
	var docs []localDocument
	err := l.getJSON(ctx, fallbackDocumentsKey, &docs)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return docs, err
}

func (l *Local) getJSON(ctx context.Context, key string, v any) error {
	raw, err := l.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (l *Local) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return l.store.Set(ctx, key, string(raw))
}

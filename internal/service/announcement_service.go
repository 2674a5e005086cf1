package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"proofchest/internal/models"
	"proofchest/internal/repository"
	"proofchest/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AnnouncementStore interface {
	List(ctx context.Context) ([]*models.Announcement, error)
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, a models.Announcement) (*models.Announcement, error)
	// Update keeps the stored image when a.ImageReference is nil.
	Update(ctx context.Context, id string, a models.Announcement) (*models.Announcement, error)
	Delete(ctx context.Context, id string) error
}

type AnnouncementInput struct {
	Title       string
	Description string
	Image       *Selection
}

type AnnouncementService struct {
	store  AnnouncementStore
	bucket storage.Bucket
	now    func() time.Time
	logger *zap.Logger
}

func NewAnnouncementService(store AnnouncementStore, bucket storage.Bucket, logger *zap.Logger) *AnnouncementService {
	return &AnnouncementService{
		store:  store,
		bucket: bucket,
		now:    time.Now,
		logger: logger,
	}
}

func requireAdmin(identity models.Identity) error {
	if identity.IsZero() {
		return ErrUnauthenticated
	}
	if !identity.IsAdmin {
		return ErrPermissionDenied
	}
	return nil
}

// ListPublished is the feed every signed-in user sees.
func (s *AnnouncementService) ListPublished(ctx context.Context, identity models.Identity) ([]*models.Announcement, error) {
	if identity.IsZero() {
		return nil, ErrUnauthenticated
	}
	return s.list(ctx)
}

func (s *AnnouncementService) List(ctx context.Context, identity models.Identity) ([]*models.Announcement, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	return s.list(ctx)
}

func (s *AnnouncementService) list(ctx context.Context) ([]*models.Announcement, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	return items, nil
}

func (s *AnnouncementService) Create(ctx context.Context, identity models.Identity, in AnnouncementInput) (*models.Announcement, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	a, err := models.NewAnnouncement(in.Title, in.Description, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if a.ImageReference, err = s.uploadImage(ctx, in.Image); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	s.logger.Info("Announcement created", zap.String("announcement_id", created.ID), zap.String("by", identity.ID))
	return created, nil
}

func (s *AnnouncementService) Update(ctx context.Context, identity models.Identity, id string, in AnnouncementInput) (*models.Announcement, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	a, err := models.NewAnnouncement(in.Title, in.Description, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if a.ImageReference, err = s.uploadImage(ctx, in.Image); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, id, a)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	s.logger.Info("Announcement updated", zap.String("announcement_id", id), zap.String("by", identity.ID))
	return updated, nil
}

func (s *AnnouncementService) Delete(ctx context.Context, identity models.Identity, id string) error {
	if err := requireAdmin(identity); err != nil {
		return err
	}
	err := s.store.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	s.logger.Info("Announcement deleted", zap.String("announcement_id", id), zap.String("by", identity.ID))
	return nil
}

// uploadImage returns nil when there is no image to store.
func (s *AnnouncementService) uploadImage(ctx context.Context, sel *Selection) (*string, error) {
	if sel == nil || len(sel.Data) == 0 {
		return nil, nil
	}
	key := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), uuid.NewString(), fileExtension(sel))
	if err := s.bucket.Upload(ctx, key, bytes.NewReader(sel.Data)); err != nil {
		s.logger.Error("Failed to upload announcement image", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUpload, err)
	}
	url := s.bucket.PublicURL(key)
	return &url, nil
}

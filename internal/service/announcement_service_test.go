package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"proofchest/internal/backend/backendtest"
	"proofchest/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	admin  = models.Identity{ID: "a-1", Username: "admin", IsAdmin: true, Origin: models.OriginRemote}
	member = models.Identity{ID: "m-1", Username: "maria", Origin: models.OriginRemote}
)

func newAnnouncementFixture() (*AnnouncementService, *backendtest.Announcements, *backendtest.Bucket) {
	store := backendtest.NewAnnouncements()
	bucket := backendtest.NewBucket("avisos")
	return NewAnnouncementService(store, bucket, zap.NewNop()), store, bucket
}

func TestNonAdminCannotCreateAnnouncement(t *testing.T) {
	svc, store, _ := newAnnouncementFixture()

	_, err := svc.Create(context.Background(), member, AnnouncementInput{Title: "Aviso 1"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, 0, store.Count())

	_, err = svc.List(context.Background(), member)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestAdminCreatesAnnouncementWithoutImage(t *testing.T) {
	svc, _, bucket := newAnnouncementFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, admin, AnnouncementInput{Title: "  Aviso 1 ", Description: "Reunião"})
	require.NoError(t, err)
	assert.Equal(t, "Aviso 1", created.Title)
	assert.Nil(t, created.ImageReference)
	assert.Equal(t, 0, bucket.Len())

	items, err := svc.List(ctx, admin)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Aviso 1", items[0].Title)
	assert.Nil(t, items[0].ImageReference)

	published, err := svc.ListPublished(ctx, member)
	require.NoError(t, err)
	assert.Len(t, published, 1)
}

func TestCreateAnnouncementRequiresTitle(t *testing.T) {
	svc, store, _ := newAnnouncementFixture()
	_, err := svc.Create(context.Background(), admin, AnnouncementInput{Title: "   "})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, models.ErrTitleRequired)
	assert.Equal(t, 0, store.Count())
}

func TestCreateAnnouncementWithImage(t *testing.T) {
	svc, _, bucket := newAnnouncementFixture()

	created, err := svc.Create(context.Background(), admin, AnnouncementInput{
		Title: "Aviso 2",
		Image: NewSelection("cartaz.png", "image/png", []byte("png")),
	})
	require.NoError(t, err)
	require.NotNil(t, created.ImageReference)
	assert.True(t, strings.HasPrefix(*created.ImageReference, "http://files.test/uploads/avisos/"))
	assert.True(t, strings.HasSuffix(*created.ImageReference, ".png"))
	assert.Equal(t, 1, bucket.Len())
}

func TestAnnouncementImageUploadFailureAborts(t *testing.T) {
	svc, store, bucket := newAnnouncementFixture()
	bucket.Err = errors.New("disk full")

	_, err := svc.Create(context.Background(), admin, AnnouncementInput{
		Title: "Aviso 3",
		Image: NewSelection("cartaz.png", "image/png", []byte("png")),
	})
	assert.ErrorIs(t, err, ErrUpload)
	assert.Equal(t, 0, store.Count())
}

func TestUpdateKeepsImageWhenNoneGiven(t *testing.T) {
	svc, _, _ := newAnnouncementFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, admin, AnnouncementInput{
		Title: "Aviso",
		Image: NewSelection("a.png", "image/png", []byte("png")),
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, admin, created.ID, AnnouncementInput{Title: "Aviso editado"})
	require.NoError(t, err)
	assert.Equal(t, "Aviso editado", updated.Title)
	require.NotNil(t, updated.ImageReference)
	assert.Equal(t, *created.ImageReference, *updated.ImageReference)

	_, err = svc.Update(ctx, member, created.ID, AnnouncementInput{Title: "x"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = svc.Update(ctx, admin, "missing", AnnouncementInput{Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAnnouncement(t *testing.T) {
	svc, store, _ := newAnnouncementFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, admin, AnnouncementInput{Title: "Aviso"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, member, created.ID), ErrPermissionDenied)
	require.NoError(t, svc.Delete(ctx, admin, created.ID))
	assert.Equal(t, 0, store.Count())
	assert.ErrorIs(t, svc.Delete(ctx, admin, created.ID), ErrNotFound)
}

func TestListPublishedNeedsIdentity(t *testing.T) {
	svc, _, _ := newAnnouncementFixture()
	_, err := svc.ListPublished(context.Background(), models.Identity{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestStoreFailureIsPersistError(t *testing.T) {
	svc, store, _ := newAnnouncementFixture()
	store.Err = errors.New("connection reset")
	_, err := svc.Create(context.Background(), admin, AnnouncementInput{Title: "Aviso"})
	assert.ErrorIs(t, err, ErrPersist)
}

package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"proofchest/internal/backend"
	"proofchest/internal/backend/backendtest"
	"proofchest/internal/models"
	"proofchest/internal/ocr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExtractor struct {
	text  string
	err   error
	calls int
	last  ocr.Input
}

func (f *fakeExtractor) Extract(_ context.Context, in ocr.Input) (string, error) {
	f.calls++
	f.last = in
	if in.Progress != nil {
		in.Progress(ocr.Progress{Status: ocr.StatusRecognizing, Fraction: 0.5})
	}
	return f.text, f.err
}

type docFixture struct {
	svc    *DocumentService
	remote *backendtest.Memory
	local  *backend.Local
	ocr    *fakeExtractor
}

func newDocFixture(t *testing.T) *docFixture {
	t.Helper()
	remote := backendtest.NewMemory()
	local := backend.NewLocal(backendtest.NewKV(), backendtest.JWTManager(), zap.NewNop())
	extractor := &fakeExtractor{text: "RECIBO DE PAGAMENTO"}
	sel := backend.Selector{Remote: remote, Local: local, FallbackEnabled: true}

	svc := NewDocumentService(sel, extractor, backendtest.NewBucket("documents"), "", zap.NewNop())
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return &docFixture{svc: svc, remote: remote, local: local, ocr: extractor}
}

var remoteUser = models.Identity{ID: "7f1d2c7e-5a1b-4c3d-9e8f-0a1b2c3d4e5f", Username: "maria", Origin: models.OriginRemote}

func pngSelection() *Selection {
	return NewSelection("recibo.png", "image/png", []byte("\x89PNG fake"))
}

func TestIngestAPCThenList(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()

	res, err := f.svc.Ingest(ctx, remoteUser, pngSelection(), "APC", IngestOptions{})
	require.NoError(t, err)
	assert.NoError(t, res.Warning)
	assert.Equal(t, models.CategoryAPC, res.Document.Category)
	assert.Equal(t, "RECIBO DE PAGAMENTO", res.Document.ExtractedText)

	keyPattern := regexp.MustCompile(`^` + remoteUser.ID + `/\d+-[0-9a-f-]{36}\.png$`)
	assert.Regexp(t, keyPattern, res.Document.ImageReference)
	stored, ok := f.remote.File(res.Document.ImageReference)
	require.True(t, ok)
	assert.Equal(t, []byte("\x89PNG fake"), stored)

	docs, err := f.svc.ListDocuments(ctx, remoteUser, "apc")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, res.Document.ImageReference, docs[0].ImageReference)
}

func TestIngestUsesLanguageHintAndForwardsProgress(t *testing.T) {
	f := newDocFixture(t)
	var progress []ocr.Progress

	_, err := f.svc.Ingest(context.Background(), remoteUser, pngSelection(), "ACE", IngestOptions{
		OnProgress: func(p ocr.Progress) { progress = append(progress, p) },
	})
	require.NoError(t, err)
	assert.Equal(t, "por", f.ocr.last.Language)
	assert.Equal(t, "image/png", f.ocr.last.ContentType)
	require.Len(t, progress, 1)
	assert.Equal(t, 0.5, progress[0].Fraction)
}

func TestIngestReciboListedUnderBucketName(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, remoteUser, pngSelection(), "RECIBO", IngestOptions{})
	require.NoError(t, err)

	for _, token := range []string{"recibos", "RECIBOS", "Recibos", "recibo"} {
		docs, err := f.svc.ListDocuments(ctx, remoteUser, token)
		require.NoError(t, err, token)
		assert.Len(t, docs, 1, token)
	}
}

func TestIngestOCRFailureIsAWarning(t *testing.T) {
	f := newDocFixture(t)
	f.ocr.err = errors.New("tesseract exploded")

	res, err := f.svc.Ingest(context.Background(), remoteUser, pngSelection(), "APC", IngestOptions{})
	require.NoError(t, err)
	assert.ErrorIs(t, res.Warning, ErrOCRWarning)
	assert.Equal(t, "", res.Document.ExtractedText)
	assert.Equal(t, 1, f.remote.DocumentCount())
}

func TestIngestPreconditions(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, remoteUser, nil, "APC", IngestOptions{})
	assert.ErrorIs(t, err, ErrPreconditionFailed)
	_, err = f.svc.Ingest(ctx, models.Identity{}, pngSelection(), "APC", IngestOptions{})
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	assert.Equal(t, 0, f.remote.FileCount())
	assert.Equal(t, 0, f.remote.DocumentCount())
	assert.Equal(t, 0, f.ocr.calls)
}

func TestIngestUnknownCategory(t *testing.T) {
	f := newDocFixture(t)
	_, err := f.svc.Ingest(context.Background(), remoteUser, pngSelection(), "XYZ", IngestOptions{})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, models.ErrUnknownCategory)
	assert.Equal(t, 0, f.remote.FileCount())
}

func TestIngestUploadFailureStopsPipeline(t *testing.T) {
	f := newDocFixture(t)
	f.remote.UploadErr = errors.New("bucket full")

	_, err := f.svc.Ingest(context.Background(), remoteUser, pngSelection(), "APC", IngestOptions{})
	assert.ErrorIs(t, err, ErrUpload)
	assert.Equal(t, 0, f.ocr.calls)
	assert.Equal(t, 0, f.remote.DocumentCount())
}

func TestIngestPersistFailureKeepsUploadedFile(t *testing.T) {
	f := newDocFixture(t)
	f.remote.InsertErr = errors.New("constraint violation")

	_, err := f.svc.Ingest(context.Background(), remoteUser, pngSelection(), "APC", IngestOptions{})
	assert.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, 1, f.remote.FileCount())
	assert.Equal(t, 0, f.remote.DocumentCount())
}

func TestIngestKeysAreUnique(t *testing.T) {
	f := newDocFixture(t)
	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		res, err := f.svc.Ingest(context.Background(), remoteUser, pngSelection(), "APC", IngestOptions{})
		require.NoError(t, err)
		assert.False(t, seen[res.Document.ImageReference])
		seen[res.Document.ImageReference] = true
	}
}

func TestListDocumentsNewestFirst(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.svc.Ingest(ctx, remoteUser, pngSelection(), "ACE", IngestOptions{})
		require.NoError(t, err)
	}
	docs, err := f.svc.ListDocuments(ctx, remoteUser, "ace")
	require.NoError(t, err)
	require.Len(t, docs, 5)
	for i := 1; i < len(docs); i++ {
		assert.False(t, docs[i].CreatedAt.After(docs[i-1].CreatedAt))
	}
}

func TestListDocumentsOnlyShowsOwner(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()
	other := models.Identity{ID: "other", Username: "joao", Origin: models.OriginRemote}

	_, err := f.svc.Ingest(ctx, remoteUser, pngSelection(), "APC", IngestOptions{})
	require.NoError(t, err)

	docs, err := f.svc.ListDocuments(ctx, other, "apc")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDeleteDocumentNotOwned(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()
	other := models.Identity{ID: "other", Username: "joao", Origin: models.OriginRemote}

	res, err := f.svc.Ingest(ctx, remoteUser, pngSelection(), "APC", IngestOptions{})
	require.NoError(t, err)

	err = f.svc.DeleteDocument(ctx, other, res.Document.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, f.remote.DocumentCount())

	require.NoError(t, f.svc.DeleteDocument(ctx, remoteUser, res.Document.ID))
	assert.Equal(t, 0, f.remote.DocumentCount())
	// bytes stay in the bucket
	assert.Equal(t, 1, f.remote.FileCount())
}

func TestFallbackIdentityIngestsLocally(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()
	dev := models.Identity{ID: "dev-maria-1700000000000", Username: "maria", Origin: models.OriginFallback}

	res, err := f.svc.Ingest(ctx, dev, pngSelection(), "RECIBO", IngestOptions{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Document.ImageReference, "data:image/png;base64,"))
	assert.Empty(t, res.Document.ExtractedText)
	assert.Equal(t, 0, f.ocr.calls)
	assert.Equal(t, 0, f.remote.FileCount())

	docs, err := f.svc.ListDocuments(ctx, dev, "recibos")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, res.Document.ImageReference, f.svc.ResolveImageURL(docs[0].ImageReference))

	require.NoError(t, f.svc.DeleteDocument(ctx, dev, docs[0].ID))
	assert.ErrorIs(t, f.svc.DeleteDocument(ctx, dev, docs[0].ID), ErrNotFound)
}

func TestResolveImageURL(t *testing.T) {
	f := newDocFixture(t)

	assert.Equal(t, "https://cdn.example/a.png", f.svc.ResolveImageURL("https://cdn.example/a.png"))
	assert.Equal(t, "data:image/png;base64,AA==", f.svc.ResolveImageURL("data:image/png;base64,AA=="))
	assert.Equal(t, "http://files.test/uploads/documents/u/1-a.png", f.svc.ResolveImageURL("u/1-a.png"))
}

func TestNewSelection(t *testing.T) {
	sel := NewSelection("scan.jpg", "", []byte("abc"))
	assert.Equal(t, "image/jpeg", sel.ContentType)
	assert.Equal(t, "data:image/jpeg;base64,YWJj", sel.Preview)

	sniffed := NewSelection("noext", "application/octet-stream", []byte("%PDF-1.4"))
	assert.Equal(t, "application/pdf", sniffed.ContentType)
}

func TestSelectFileRequiresFile(t *testing.T) {
	_, err := SelectFile(nil)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"proofchest/internal/backend"
	"proofchest/internal/models"
	"proofchest/internal/ocr"
	"proofchest/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TextExtractor is the OCR step of ingestion.
type TextExtractor interface {
	Extract(ctx context.Context, in ocr.Input) (string, error)
}

// Selection is a chosen file held in memory until it is ingested.
type Selection struct {
	FileName    string
	ContentType string
	Data        []byte
	// Preview is a data: URL of the file for immediate display.
	Preview string
}

type IngestOptions struct {
	OnProgress func(ocr.Progress)
}

type IngestResult struct {
	Document *models.Document
	// Warning is set when the document was saved without extracted text.
	Warning error
}

type DocumentService struct {
	backends backend.Selector
	ocr      TextExtractor
	bucket   storage.Bucket
	language string
	now      func() time.Time
	logger   *zap.Logger
}

func NewDocumentService(backends backend.Selector, extractor TextExtractor, bucket storage.Bucket, language string, logger *zap.Logger) *DocumentService {
	if language == "" {
		language = ocr.DefaultLanguage
	}
	return &DocumentService{
		backends: backends,
		ocr:      extractor,
		bucket:   bucket,
		language: language,
		now:      time.Now,
		logger:   logger,
	}
}

// SelectFile reads an uploaded file and builds its preview. Any file type is
// accepted.
func SelectFile(fh *multipart.FileHeader) (*Selection, error) {
	if fh == nil {
		return nil, fmt.Errorf("%w: no file selected", ErrPreconditionFailed)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return NewSelection(fh.Filename, fh.Header.Get("Content-Type"), data), nil
}

// NewSelection sniffs the content type when the client did not send a useful one.
func NewSelection(fileName, contentType string, data []byte) *Selection {
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); byExt != "" {
			contentType = byExt
		} else {
			contentType = http.DetectContentType(data)
		}
	}
	return &Selection{
		FileName:    fileName,
		ContentType: contentType,
		Data:        data,
		Preview:     "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}
}

// Ingest stores the file, extracts its text and records the document. An
// OCR failure is returned as IngestResult.Warning, not as an error.
func (s *DocumentService) Ingest(ctx context.Context, identity models.Identity, sel *Selection, category string, opts IngestOptions) (*IngestResult, error) {
	if sel == nil || len(sel.Data) == 0 {
		return nil, fmt.Errorf("%w: no file selected", ErrPreconditionFailed)
	}
	if identity.IsZero() {
		return nil, fmt.Errorf("%w: no current identity", ErrPreconditionFailed)
	}
	cat, err := models.ParseCategory(category)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	b := s.backends.For(identity)
	now := s.now().UTC()
	key := storageKey(identity.ID, now, sel)

	ref, err := b.StoreFile(ctx, key, sel.Data, sel.ContentType)
	if err != nil {
		s.logger.Error("Failed to store document file", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUpload, err)
	}

	result := &IngestResult{}
	var text string
	if b.Mode() == backend.ModeNetworked && s.ocr != nil {
		text, err = s.ocr.Extract(ctx, ocr.Input{
			Image:       sel.Data,
			ContentType: sel.ContentType,
			Language:    s.language,
			Progress:    opts.OnProgress,
		})
		if err != nil {
			s.logger.Warn("OCR failed, saving document without text", zap.String("key", key), zap.Error(err))
			result.Warning = fmt.Errorf("%w: %v", ErrOCRWarning, err)
			text = ""
		}
	}

	doc, err := models.NewDocument(identity.ID, cat, ref, text, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	created, err := b.InsertDocument(ctx, doc)
	if err != nil {
		s.logger.Error("Failed to save document", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	s.logger.Info("Document ingested",
		zap.String("document_id", created.ID),
		zap.String("owner_id", identity.ID),
		zap.String("category", string(cat)),
		zap.String("mode", string(b.Mode())),
		zap.Int("text_length", len(text)),
	)
	result.Document = created
	return result, nil
}

// ListDocuments returns the caller's documents in a category, newest first.
func (s *DocumentService) ListDocuments(ctx context.Context, identity models.Identity, category string) ([]*models.Document, error) {
	if identity.IsZero() {
		return nil, ErrUnauthenticated
	}
	cat, err := models.ParseCategory(category)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	docs, err := s.backends.For(identity).ListDocuments(ctx, identity.ID, cat)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes one of the caller's documents. The stored file is
// left in place.
func (s *DocumentService) DeleteDocument(ctx context.Context, identity models.Identity, id string) error {
	if identity.IsZero() {
		return ErrUnauthenticated
	}
	err := s.backends.For(identity).DeleteDocument(ctx, identity.ID, id)
	if errors.Is(err, backend.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	s.logger.Info("Document deleted", zap.String("document_id", id), zap.String("owner_id", identity.ID))
	return nil
}

// ResolveImageURL turns a stored reference into something a browser can load.
func (s *DocumentService) ResolveImageURL(reference string) string {
	lower := strings.ToLower(reference)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return reference
	}
	return s.bucket.PublicURL(reference)
}

// storageKey is <owner>/<unix millis>-<uuid><ext>.
func storageKey(ownerID string, now time.Time, sel *Selection) string {
	return fmt.Sprintf("%s/%d-%s%s", ownerID, now.UnixMilli(), uuid.NewString(), fileExtension(sel))
}

func fileExtension(sel *Selection) string {
	if ext := strings.ToLower(filepath.Ext(sel.FileName)); ext != "" && !strings.ContainsAny(ext, `/\`) {
		return ext
	}
	if exts, err := mime.ExtensionsByType(sel.ContentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

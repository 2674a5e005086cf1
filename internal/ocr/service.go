package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// DefaultLanguage is the hint used when the caller gives none.
const DefaultLanguage = "por"

// Service routes PDFs to embedded-text extraction and images to an Engine.
type Service struct {
	engine   Engine
	language string
	logger   *zap.Logger
}

func NewService(engine Engine, language string, logger *zap.Logger) *Service {
	if language == "" {
		language = DefaultLanguage
	}
	return &Service{
		engine:   engine,
		language: language,
		logger:   logger,
	}
}

// Extract returns the trimmed text of the input. An empty result is ErrNoText.
func (s *Service) Extract(ctx context.Context, in Input) (string, error) {
	if in.Language == "" {
		in.Language = s.language
	}

	var (
		text   string
		method string
		err    error
	)
	switch {
	case isPDF(in.ContentType):
		method = "go-fitz"
		in.report(StatusLoading, 0)
		text, err = s.extractTextFromPDF(in.Image)
		in.report(StatusDone, 1)
	case isImage(in.ContentType):
		method = s.engine.Name()
		var res Result
		res, err = s.engine.Recognize(ctx, in)
		text = res.Text
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, in.ContentType)
	}
	if err != nil {
		return "", fmt.Errorf("%s extraction failed: %w", method, err)
	}

	text = strings.TrimSpace(sanitizeUTF8(text))

	s.logger.Info("OCR extraction completed",
		zap.String("content_type", in.ContentType),
		zap.String("method", method),
		zap.Int("text_length", len(text)),
	)

	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func (s *Service) extractTextFromPDF(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var textBuilder strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			s.logger.Warn("Failed to extract text from page", zap.Int("page", i+1), zap.Error(err))
			continue
		}
		if pageText != "" {
			textBuilder.WriteString(pageText)
			textBuilder.WriteString("\n")
		}
	}
	return textBuilder.String(), nil
}

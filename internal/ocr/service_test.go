package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEngine struct {
	text string
	err  error
	last Input
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(_ context.Context, in Input) (Result, error) {
	f.last = in
	in.report(StatusRecognizing, 0.5)
	in.report(StatusDone, 1)
	return Result{Text: f.text, Engine: "fake"}, f.err
}

func TestExtractRoutesImagesToEngineWithDefaultLanguage(t *testing.T) {
	engine := &fakeEngine{text: "  RECIBO nº 42 \n"}
	svc := NewService(engine, "", zap.NewNop())

	var seen []Progress
	text, err := svc.Extract(context.Background(), Input{
		Image:       []byte{0x89, 'P', 'N', 'G'},
		ContentType: "image/png",
		Progress:    func(p Progress) { seen = append(seen, p) },
	})
	require.NoError(t, err)
	assert.Equal(t, "RECIBO nº 42", text)
	assert.Equal(t, "por", engine.last.Language)
	require.Len(t, seen, 2)
	assert.Equal(t, StatusRecognizing, seen[0].Status)
	assert.Equal(t, 0.5, seen[0].Fraction)
}

func TestExtractEmptyTextIsAnError(t *testing.T) {
	svc := NewService(&fakeEngine{text: "   "}, "por", zap.NewNop())
	_, err := svc.Extract(context.Background(), Input{Image: []byte("x"), ContentType: "image/jpeg"})
	assert.ErrorIs(t, err, ErrNoText)
}

func TestExtractWrapsEngineFailure(t *testing.T) {
	boom := errors.New("engine crashed")
	svc := NewService(&fakeEngine{err: boom}, "por", zap.NewNop())
	_, err := svc.Extract(context.Background(), Input{Image: []byte("x"), ContentType: "image/jpeg"})
	assert.ErrorIs(t, err, boom)
}

func TestExtractRejectsUnsupportedFormat(t *testing.T) {
	svc := NewService(&fakeEngine{text: "x"}, "por", zap.NewNop())
	_, err := svc.Extract(context.Background(), Input{Image: []byte("x"), ContentType: "text/plain"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractRejectsBrokenPDF(t *testing.T) {
	svc := NewService(&fakeEngine{text: "x"}, "por", zap.NewNop())
	_, err := svc.Extract(context.Background(), Input{Image: []byte("not a pdf"), ContentType: "application/pdf"})
	assert.Error(t, err)
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "ação", sanitizeUTF8("ação"))
	assert.Equal(t, "ab", sanitizeUTF8("a\xffb"))
}

func TestContentTypeHelpers(t *testing.T) {
	assert.True(t, isPDF("application/pdf; charset=binary"))
	assert.True(t, isImage("IMAGE/PNG"))
	assert.False(t, isImage("application/pdf"))
	assert.Equal(t, ".jpg", extensionFor("image/jpeg"))
}

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine runs recognition through libtesseract. A new client is
// created per call; gosseract clients are not safe for concurrent use.
type TesseractEngine struct {
	clientFactory func() *gosseract.Client
}

func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{clientFactory: gosseract.NewClient}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

func (e *TesseractEngine) Recognize(ctx context.Context, in Input) (Result, error) {
	in.report(StatusLoading, 0)

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(in.Image); err != nil {
		return Result{}, fmt.Errorf("set image: %w", err)
	}
	if in.Language != "" {
		if err := c.SetLanguage(in.Language); err != nil {
			return Result{}, fmt.Errorf("set language: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	in.report(StatusRecognizing, 0)
	text, err := c.Text()
	if err != nil {
		return Result{}, fmt.Errorf("recognize text: %w", err)
	}
	in.report(StatusRecognizing, 1)
	in.report(StatusDone, 1)

	return Result{Text: strings.TrimSpace(text), Engine: e.Name()}, nil
}

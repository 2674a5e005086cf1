// Package ocr turns document images and PDFs into plain text.
package ocr

import (
	"context"
	"errors"
)

var (
	ErrNoText            = errors.New("no text extracted")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Progress statuses reported while an engine works.
const (
	StatusLoading     = "loading"
	StatusRecognizing = "recognizing text"
	StatusDone        = "done"
)

type Progress struct {
	Status   string
	Fraction float64
}

type Input struct {
	Image       []byte
	ContentType string
	// Language is a Tesseract-style hint such as "por".
	Language string
	Progress func(Progress)
}

func (in Input) report(status string, fraction float64) {
	if in.Progress != nil {
		in.Progress(Progress{Status: status, Fraction: fraction})
	}
}

type Result struct {
	Text   string
	Engine string
}

type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
}

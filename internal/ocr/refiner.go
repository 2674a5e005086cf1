package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

const refineInstruction = `You clean up raw OCR output from scanned documents.
Fix characters that were obviously misread and rejoin broken words.
Do not translate, summarize or add anything. Keep line breaks.
Reply with the corrected text only.`

// Refiner post-processes another engine's output with a language model.
// When the model fails the raw text is returned unchanged.
type Refiner struct {
	engine   Engine
	complete func(ctx context.Context, prompt string) (string, error)
	logger   *zap.Logger
}

func NewRefiner(engine Engine, client *gigago.Client, modelName string, logger *zap.Logger) *Refiner {
	if modelName == "" {
		modelName = "GigaChat"
	}
	model := client.GenerativeModel(modelName)
	model.SystemInstruction = refineInstruction
	model.Temperature = 0.1

	return &Refiner{
		engine: engine,
		complete: func(ctx context.Context, prompt string) (string, error) {
			resp, err := model.Generate(ctx, []gigago.Message{
				{Role: gigago.RoleUser, Content: prompt},
			})
			if err != nil {
				return "", fmt.Errorf("failed to generate response: %w", err)
			}
			if len(resp.Choices) == 0 {
				return "", errors.New("no response from LLM")
			}
			return resp.Choices[0].Message.Content, nil
		},
		logger: logger,
	}
}

func (r *Refiner) Name() string { return r.engine.Name() + "+refine" }

func (r *Refiner) Recognize(ctx context.Context, in Input) (Result, error) {
	res, err := r.engine.Recognize(ctx, in)
	if err != nil || strings.TrimSpace(res.Text) == "" {
		return res, err
	}

	prompt := fmt.Sprintf("Language hint: %s\n\n%s", in.Language, res.Text)
	refined, err := r.complete(ctx, prompt)
	if err != nil {
		r.logger.Warn("OCR refinement failed, keeping raw text", zap.Error(err))
		return res, nil
	}
	refined = strings.TrimSpace(refined)
	if refined == "" {
		return res, nil
	}

	res.Text = refined
	res.Engine = r.Name()
	return res, nil
}

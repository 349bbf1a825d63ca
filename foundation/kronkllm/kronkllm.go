// Package kronkllm provides a completion capability backed by a model running
// in process through kronk.
package kronkllm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ardanlabs/ai-agents/foundation/logger"
	"github.com/ardanlabs/kronk/sdk/kronk"
	"github.com/ardanlabs/kronk/sdk/kronk/model"
	"github.com/ardanlabs/kronk/sdk/tools/defaults"
	"github.com/ardanlabs/kronk/sdk/tools/libs"
	"github.com/ardanlabs/kronk/sdk/tools/models"
)

// DefaultModelURL is the model installed when no other is configured.
const DefaultModelURL = "https://huggingface.co/Qwen/Qwen3-8B-GGUF/resolve/main/Qwen3-8B-Q8_0.gguf?download=true"

// ErrNoResponse is returned when the model stream ends without content.
var ErrNoResponse = errors.New("no response from model")

// Install makes sure the llama.cpp libraries and the model are present on
// disk and returns the location of the model files.
func Install(ctx context.Context, modelURL string) (models.Path, error) {
	if modelURL == "" {
		modelURL = DefaultModelURL
	}

	lib, err := libs.New(
		libs.WithVersion(defaults.LibVersion("")),
	)
	if err != nil {
		return models.Path{}, fmt.Errorf("libs: %w", err)
	}

	if _, err := lib.Download(ctx, kronk.FmtLogger); err != nil {
		return models.Path{}, fmt.Errorf("unable to install llama.cpp: %w", err)
	}

	mdls, err := models.New()
	if err != nil {
		return models.Path{}, fmt.Errorf("unable to create models api: %w", err)
	}

	mp, err := mdls.Download(ctx, kronk.FmtLogger, modelURL, "")
	if err != nil {
		return models.Path{}, fmt.Errorf("unable to install model: %w", err)
	}

	return mp, nil
}

// =============================================================================

// Config represents the settings for the in process model.
type Config struct {
	Log           logger.Logger
	ModelFiles    []string
	ContextWindow int
	Temperature   float64
}

// LLM provides completions from a loaded kronk model.
type LLM struct {
	log         logger.Logger
	krn         *kronk.Kronk
	temperature float64
}

// New loads the model described by the configuration.
func New(cfg Config) (*LLM, error) {
	if len(cfg.ModelFiles) == 0 {
		return nil, errors.New("model files are required")
	}

	log := cfg.Log
	if log == nil {
		log = logger.Noop
	}

	if err := kronk.Init(); err != nil {
		return nil, fmt.Errorf("unable to init kronk: %w", err)
	}

	contextWindow := cfg.ContextWindow
	if contextWindow == 0 {
		contextWindow = 8 * 1024
	}

	krn, err := kronk.New(model.Config{
		ContextWindow: contextWindow,
		ModelFiles:    cfg.ModelFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create inference model: %w", err)
	}

	llm := LLM{
		log:         log,
		krn:         krn,
		temperature: cfg.Temperature,
	}

	return &llm, nil
}

// Unload releases the model.
func (llm *LLM) Unload(ctx context.Context) error {
	return llm.krn.Unload(ctx)
}

// Complete sends the prompt as a single user message and returns the content
// of the reply.
func (llm *LLM) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	d := model.D{
		"messages":    []model.D{model.TextMessage("user", prompt)},
		"temperature": llm.temperature,
	}

	ch, err := llm.krn.ChatStreaming(ctx, d)
	if err != nil {
		return "", fmt.Errorf("chat streaming: %w", err)
	}

	text, err := collect(ch)
	if err != nil {
		llm.log(ctx, "kronkllm: complete", "duration", time.Since(start), "ERROR", err)
		return "", err
	}

	llm.log(ctx, "kronkllm: complete", "duration", time.Since(start), "chars", len(text))

	return text, nil
}

// collect drains the stream. The final message carries the full content;
// the deltas are used when it does not.
func collect(ch <-chan model.ChatResponse) (string, error) {
	var b strings.Builder

	for resp := range ch {
		if len(resp.Choice) == 0 {
			continue
		}

		choice := resp.Choice[0]

		switch choice.FinishReason() {
		case model.FinishReasonError:
			return "", fmt.Errorf("error from model: %s", choice.Delta.Content)

		case model.FinishReasonStop:
			if choice.Delta.Content != "" {
				return choice.Delta.Content, nil
			}

			if b.Len() == 0 {
				return "", ErrNoResponse
			}

			return b.String(), nil

		default:
			b.WriteString(choice.Delta.Content)
		}
	}

	if b.Len() == 0 {
		return "", ErrNoResponse
	}

	return b.String(), nil
}

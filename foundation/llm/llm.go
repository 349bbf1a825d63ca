// Package llm selects the completion backend the programs talk to and the
// retry policy wrapped around it.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ardanlabs/ai-agents/foundation/client"
	"github.com/ardanlabs/ai-agents/foundation/config"
	"github.com/ardanlabs/ai-agents/foundation/kronkllm"
	"github.com/ardanlabs/ai-agents/foundation/logger"
	"github.com/ardanlabs/ai-agents/foundation/retry"
)

// Set of supported backends.
const (
	BackendHTTP  = "http"
	BackendKronk = "kronk"
)

// Defaults for the http backend.
const (
	DefaultURL   = "http://localhost:8080/v1/chat/completions"
	DefaultModel = "cerebras_Qwen3-Coder-REAP-25B-A3B-Q8_0"
)

// Completer represents the completion capability of a language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config represents the backend settings.
type Config struct {
	Log           logger.Logger
	Backend       string
	URL           string
	Model         string
	APIKey        string
	KronkModelURL string
	Temperature   float32
}

// New constructs the completer for the configured backend. The returned
// function releases what the backend holds.
func New(ctx context.Context, cfg Config) (Completer, func(ctx context.Context) error, error) {
	noop := func(ctx context.Context) error { return nil }

	switch cfg.Backend {
	case "", BackendHTTP:
		url := cfg.URL
		if url == "" {
			url = DefaultURL
		}

		model := cfg.Model
		if model == "" {
			model = DefaultModel
		}

		llm := client.NewLLM(client.LLMConfig{
			Log:         cfg.Log,
			URL:         url,
			Model:       model,
			APIKey:      cfg.APIKey,
			Temperature: cfg.Temperature,
		})

		return llm, noop, nil

	case BackendKronk:
		mp, err := kronkllm.Install(ctx, cfg.KronkModelURL)
		if err != nil {
			return nil, nil, fmt.Errorf("install: %w", err)
		}

		llm, err := kronkllm.New(kronkllm.Config{
			Log:         cfg.Log,
			ModelFiles:  mp.ModelFiles,
			Temperature: float64(cfg.Temperature),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("kronk: %w", err)
		}

		return llm, llm.Unload, nil
	}

	return nil, nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
}

// Policy builds the retry policy for model calls. Only temporary failures
// are retried.
func Policy(timeout time.Duration, maxTries uint) retry.Policy {
	return retry.Policy{
		Timeout:         timeout,
		MaxTries:        maxTries,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Retryable:       client.Temporary,
	}
}

// PolicyFromEnv builds the retry policy from LLM_TIMEOUT and LLM_MAX_TRIES.
// A model call gets one try and a minute unless the environment says
// otherwise.
func PolicyFromEnv() (retry.Policy, error) {
	timeout, err := config.Duration("LLM_TIMEOUT", 60*time.Second)
	if err != nil {
		return retry.Policy{}, err
	}

	maxTries, err := config.Int("LLM_MAX_TRIES", 1)
	if err != nil {
		return retry.Policy{}, err
	}

	return Policy(timeout, uint(max(maxTries, 1))), nil
}

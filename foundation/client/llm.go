package client

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"

	"github.com/ardanlabs/ai-agents/foundation/logger"
)

// ErrNoResponse is returned when the service answers without any choices.
var ErrNoResponse = errors.New("no response")

// LLMConfig represents the settings for talking to a chat completions
// endpoint.
type LLMConfig struct {
	Log         logger.Logger
	URL         string
	Model       string
	APIKey      string
	Temperature float32
	HTTP        *http.Client
}

type LLM struct {
	cln         *Client
	url         string
	model       string
	temperature float32
}

func NewLLM(cfg LLMConfig) *LLM {
	log := cfg.Log
	if log == nil {
		log = logger.Noop
	}

	options := []func(cln *Client){
		WithBearer(cfg.APIKey),
	}

	if cfg.HTTP != nil {
		options = append(options, WithClient(cfg.HTTP))
	}

	return &LLM{
		cln:         New(log, options...),
		url:         cfg.URL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

type withParam struct {
	typ string
	d   D
}

func WithTemperature(temperature float32) withParam {
	return withParam{
		typ: "params",
		d: D{
			"temperature": temperature,
		},
	}
}

func (llm *LLM) ChatCompletions(ctx context.Context, text string, options ...withParam) (string, error) {
	params := D{
		"temperature": 1.0,
		"top_p":       0.5,
	}

	for _, opt := range options {
		switch opt.typ {
		case "params":
			params = opt.d
		}
	}

	d := D{
		"model": llm.model,
		"messages": []D{
			{
				"role":    "user",
				"content": text,
			},
		},
	}

	maps.Copy(d, params)

	var chat Chat
	if err := llm.cln.Do(ctx, http.MethodPost, llm.url, d, &chat); err != nil {
		return "", fmt.Errorf("do: %w", err)
	}

	if len(chat.Choices) == 0 {
		return "", ErrNoResponse
	}

	return chat.Choices[0].Message.Content, nil
}

// Complete sends a single user prompt with the configured temperature and
// returns the text of the first choice.
func (llm *LLM) Complete(ctx context.Context, prompt string) (string, error) {
	return llm.ChatCompletions(ctx, prompt, WithTemperature(llm.temperature))
}

// Temporary reports if an error returned by the LLM is worth retrying.
// Authorization failures and empty responses are final.
func Temporary(err error) bool {
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNoResponse) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}

	return true
}

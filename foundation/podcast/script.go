package podcast

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
)

//go:embed prompts/script.txt
var scriptPrompt string

// MaxScriptChars bounds the length of a script in characters.
const MaxScriptChars = 2000

// ErrEmptyScript is returned when the model produces no script.
var ErrEmptyScript = errors.New("empty script from model")

// Completer represents the completion capability of a language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Scripter asks the model for a podcast script.
type Scripter struct {
	completer Completer
}

// NewScripter constructs a scripter.
func NewScripter(completer Completer) *Scripter {
	return &Scripter{
		completer: completer,
	}
}

// Script returns a conversational script for the text no longer than
// MaxScriptChars.
func (s *Scripter) Script(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no text to convert")
	}

	script, err := s.completer.Complete(ctx, fmt.Sprintf(scriptPrompt, text))
	if err != nil {
		return "", fmt.Errorf("script: %w", err)
	}

	script = strings.TrimSpace(script)
	if script == "" {
		return "", ErrEmptyScript
	}

	return truncate(script, MaxScriptChars), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n])
}

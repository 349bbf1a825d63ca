package analyst

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/ardanlabs/ai-agents/foundation/duck"
)

var (
	//go:embed prompts/sql.txt
	sqlPrompt string

	//go:embed prompts/explain.txt
	explainPrompt string
)

// Completer represents the completion capability of a language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Describer provides the columns of a relation for the schema hint.
type Describer interface {
	Describe(ctx context.Context, name string) ([]duck.Column, error)
}

// Synthesizer asks the model to turn a question into SQL.
type Synthesizer struct {
	completer Completer
	describer Describer
}

// NewSynthesizer constructs a synthesizer. When describer is not nil the
// prompt also lists the columns of the table.
func NewSynthesizer(completer Completer, describer Describer) *Synthesizer {
	return &Synthesizer{
		completer: completer,
		describer: describer,
	}
}

// Synthesize returns the text produced by the model, unmodified.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, table string) (string, error) {
	prompt := fmt.Sprintf(sqlPrompt, table, s.schema(ctx, table), question)

	text, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return "", &LLMError{Op: "synthesize", Err: err}
	}

	if strings.TrimSpace(text) == "" {
		return "", &LLMError{Op: "synthesize", Err: ErrEmptyResponse}
	}

	return text, nil
}

// schema renders the column list of the table. A table that cannot be
// described yields no hint.
func (s *Synthesizer) schema(ctx context.Context, table string) string {
	if s.describer == nil {
		return ""
	}

	cols, err := s.describer.Describe(ctx, table)
	if err != nil {
		return ""
	}

	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s (%s)", c.Name, c.Type)
	}

	return fmt.Sprintf("Columns: %s\n", strings.Join(parts, ", "))
}

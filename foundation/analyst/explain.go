package analyst

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ardanlabs/ai-agents/foundation/duck"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// PreviewRows is the number of leading rows shown to the model.
const PreviewRows = 5

// Explainer asks the model to describe a query result.
type Explainer struct {
	completer Completer
}

// NewExplainer constructs an explainer.
func NewExplainer(completer Completer) *Explainer {
	return &Explainer{
		completer: completer,
	}
}

// Explain renders a preview of the result and returns the model's summary.
func (e *Explainer) Explain(ctx context.Context, res duck.Result) (string, error) {
	preview, err := Markdown(res, PreviewRows)
	if err != nil {
		return "", &LLMError{Op: "explain", Err: fmt.Errorf("render preview: %w", err)}
	}

	text, err := e.completer.Complete(ctx, fmt.Sprintf(explainPrompt, preview))
	if err != nil {
		return "", &LLMError{Op: "explain", Err: err}
	}

	if strings.TrimSpace(text) == "" {
		return "", &LLMError{Op: "explain", Err: ErrEmptyResponse}
	}

	return text, nil
}

// =============================================================================

// Markdown renders at most n rows of the result as a markdown table. A
// negative n renders every row.
func Markdown(res duck.Result, n int) (string, error) {
	var b strings.Builder

	table := tablewriter.NewTable(&b,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)

	if err := render(table, res.Head(n)); err != nil {
		return "", err
	}

	return b.String(), nil
}

// Table renders every row of the result as a boxed text table.
func Table(w io.Writer, res duck.Result) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)

	return render(table, res)
}

func render(table *tablewriter.Table, res duck.Result) error {
	header := make([]any, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = c
	}
	table.Header(header...)

	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cell(v)
		}

		if err := table.Append(cells); err != nil {
			return fmt.Errorf("append: %w", err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	return nil
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return v.Format(time.DateTime)
	default:
		return fmt.Sprint(v)
	}
}

package website

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/ai-agents/foundation/analyst"
	"github.com/ardanlabs/ai-agents/foundation/duck"
)

var (
	errBadRequest = errors.New("bad request")
	errBusy       = errors.New("too many questions in flight, try again shortly")
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// AskRequest is the body of a question.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is what a completed run produced.
type AskResponse struct {
	RunID    string   `json:"run_id"`
	Question string   `json:"question"`
	Mode     string   `json:"mode"`
	SQL      string   `json:"sql,omitempty"`
	Raw      string   `json:"raw,omitempty"`
	Columns  []string `json:"columns,omitempty"`
	Rows     [][]any  `json:"rows,omitempty"`
	Answer   string   `json:"answer,omitempty"`
	Path     []string `json:"path"`
}

func toAskResponse(mode analyst.Mode, state analyst.State) AskResponse {
	resp := AskResponse{
		RunID:    state.RunID,
		Question: state.Question,
		Mode:     mode.String(),
		SQL:      state.SQL,
		Raw:      state.Raw,
		Answer:   state.Answer,
		Path:     make([]string, len(state.Path)),
	}

	for i, p := range state.Path {
		resp.Path[i] = p.String()
	}

	if state.Result != nil {
		resp.Columns = state.Result.Columns
		resp.Rows = state.Result.Rows
	}

	return resp
}

// UploadResponse describes the dataset that was loaded.
type UploadResponse struct {
	Table   string        `json:"table"`
	File    string        `json:"file"`
	Columns []duck.Column `json:"columns"`
	Rows    int           `json:"rows"`
	Preview [][]any       `json:"preview"`
}

// TableSchema describes one relation in the store.
type TableSchema struct {
	Name    string        `json:"name"`
	Columns []duck.Column `json:"columns"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Phase   string `json:"phase,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

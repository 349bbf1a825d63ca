package analyst_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/ai-agents/foundation/analyst"
	"github.com/ardanlabs/ai-agents/foundation/client"
	"github.com/ardanlabs/ai-agents/foundation/duck"
	"github.com/ardanlabs/ai-agents/foundation/retry"
)

type response struct {
	text string
	err  error
}

// completer returns the scripted responses in order and records every
// prompt it receives.
type completer struct {
	mu        sync.Mutex
	responses []response
	prompts   []string
}

func (c *completer) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prompts = append(c.prompts, prompt)

	idx := len(c.prompts) - 1
	if idx >= len(c.responses) {
		return "", errors.New("unexpected completion call")
	}

	return c.responses[idx].text, c.responses[idx].err
}

// querier counts queries and returns a fixed result.
type querier struct {
	calls   int
	queries []string
	result  duck.Result
	err     error
}

func (q *querier) Query(ctx context.Context, sql string) (duck.Result, error) {
	q.calls++
	q.queries = append(q.queries, sql)
	return q.result, q.err
}

func newPipeline(t *testing.T, cfg analyst.Config) *analyst.Pipeline {
	t.Helper()

	p, err := analyst.New(cfg)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	return p
}

func loadRows(t *testing.T, n int) *duck.Store {
	t.Helper()

	s, err := duck.Open(duck.Config{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ds := duck.Dataset{
		Columns: []duck.Column{
			{Name: "region", Type: duck.TypeVarchar},
			{Name: "sales", Type: duck.TypeBigint},
		},
	}

	regions := []string{"north", "south", "east", "west"}
	for i := range n {
		ds.Rows = append(ds.Rows, []any{regions[i%len(regions)], int64((i + 1) * 10)})
	}

	if err := s.Load(t.Context(), analyst.DefaultTable, ds); err != nil {
		t.Fatalf("load: %v", err)
	}

	return s
}

// =============================================================================

func TestEndToEnd(t *testing.T) {
	store := loadRows(t, 5)

	llm := completer{
		responses: []response{
			{text: "```sql\nSELECT COUNT(*) FROM uploaded_data\n```"},
			{text: "The table has 5 rows."},
		},
	}

	var transitions []string

	p := newPipeline(t, analyst.Config{
		Completer: &llm,
		Store:     store,
		Mode:      analyst.ModeExplain,
		OnTransition: func(ctx context.Context, runID string, from analyst.Phase, to analyst.Phase) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})

	state, err := p.Run(t.Context(), "How many rows are there?")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if state.SQL != "SELECT COUNT(*) FROM uploaded_data" {
		t.Fatalf("unexpected sql: %q", state.SQL)
	}

	if state.Result == nil || len(state.Result.Rows) != 1 || state.Result.Rows[0][0] != int64(5) {
		t.Fatalf("expected a single row with 5, got %#v", state.Result)
	}

	if state.Answer == "" {
		t.Fatal("expected an answer")
	}

	if state.Phase != analyst.PhaseDone {
		t.Fatalf("expected done, got %s", state.Phase)
	}

	wantPath := []analyst.Phase{
		analyst.PhaseStart,
		analyst.PhaseSynthesizing,
		analyst.PhaseNormalizing,
		analyst.PhaseExecuting,
		analyst.PhaseExplaining,
		analyst.PhaseDone,
	}

	if !reflect.DeepEqual(state.Path, wantPath) {
		t.Fatalf("unexpected path: %v", state.Path)
	}

	wantTransitions := []string{
		"start>synthesizing",
		"synthesizing>normalizing",
		"normalizing>executing",
		"executing>explaining",
		"explaining>done",
	}

	if !reflect.DeepEqual(transitions, wantTransitions) {
		t.Fatalf("unexpected transitions: %v", transitions)
	}

	if !strings.Contains(llm.prompts[0], "Table name: uploaded_data") || !strings.Contains(llm.prompts[0], "How many rows are there?") {
		t.Fatalf("unexpected sql prompt:\n%s", llm.prompts[0])
	}

	if !strings.Contains(llm.prompts[1], "5") {
		t.Fatalf("expected the result in the explain prompt:\n%s", llm.prompts[1])
	}
}

func TestRouter(t *testing.T) {
	tt := []struct {
		name     string
		text     string
		executes bool
	}{
		{name: "sql", text: "SELECT region FROM uploaded_data", executes: true},
		{name: "fenced", text: "```sql\nselect 1\n```", executes: true},
		{name: "mixed", text: "sElEcT 1", executes: true},
		{name: "prose", text: "That question is not about the data.", executes: false},
		{name: "update", text: "UPDATE uploaded_data SET sales = 0", executes: false},
	}

	for _, tst := range tt {
		t.Run(tst.name, func(t *testing.T) {
			llm := completer{responses: []response{{text: tst.text}}}
			store := querier{result: duck.Result{Columns: []string{"x"}, Rows: [][]any{{1}}}}

			p := newPipeline(t, analyst.Config{
				Completer: &llm,
				Store:     &store,
				Mode:      analyst.ModeRoute,
			})

			state, err := p.Run(t.Context(), "question")
			if err != nil {
				t.Fatalf("run: %v", err)
			}

			if state.Phase != analyst.PhaseDone {
				t.Fatalf("expected done, got %s", state.Phase)
			}

			executed := state.Path[2] == analyst.PhaseNormalizing && state.Path[3] == analyst.PhaseExecuting

			if tst.executes {
				if !executed || store.calls != 1 {
					t.Fatalf("expected execution, path %v, calls %d", state.Path, store.calls)
				}
				if state.Answer != "" {
					t.Fatalf("expected no answer, got %q", state.Answer)
				}
				return
			}

			wantPath := []analyst.Phase{analyst.PhaseStart, analyst.PhaseSynthesizing, analyst.PhaseDone}
			if !reflect.DeepEqual(state.Path, wantPath) {
				t.Fatalf("unexpected path: %v", state.Path)
			}

			if store.calls != 0 {
				t.Fatalf("expected no queries, got %d", store.calls)
			}

			if state.Answer != tst.text {
				t.Fatalf("expected model text as answer, got %q", state.Answer)
			}
		})
	}
}

func TestExecuteMode(t *testing.T) {
	llm := completer{responses: []response{{text: "```sql\nSELECT 1 AS one\n```"}}}
	store := querier{result: duck.Result{Columns: []string{"one"}, Rows: [][]any{{int32(1)}}}}

	p := newPipeline(t, analyst.Config{
		Completer: &llm,
		Store:     &store,
		Mode:      analyst.ModeExecute,
	})

	state, err := p.Run(t.Context(), "give me one")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(llm.prompts) != 1 {
		t.Fatalf("expected no explain call, got %d prompts", len(llm.prompts))
	}

	if store.queries[0] != "SELECT 1 AS one" {
		t.Fatalf("expected normalized sql to be executed, got %q", store.queries[0])
	}

	if state.Path[len(state.Path)-2] != analyst.PhaseExecuting {
		t.Fatalf("expected executing before done, got %v", state.Path)
	}
}

func TestSynthesisFailure(t *testing.T) {
	llm := completer{responses: []response{{err: client.ErrUnauthorized}}}
	store := querier{}

	p := newPipeline(t, analyst.Config{
		Completer: &llm,
		Store:     &store,
		Mode:      analyst.ModeExplain,
	})

	state, err := p.Run(t.Context(), "How many rows are there?")
	if err == nil {
		t.Fatal("expected an error")
	}

	if state.Phase != analyst.PhaseFailed {
		t.Fatalf("expected failed, got %s", state.Phase)
	}

	var le *analyst.LLMError
	if !errors.As(err, &le) {
		t.Fatalf("expected LLMError, got %T: %v", err, err)
	}

	if !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized in chain, got %v", err)
	}

	var se *analyst.StageError
	if !errors.As(err, &se) || se.Phase != analyst.PhaseSynthesizing {
		t.Fatalf("expected failure in synthesizing, got %v", err)
	}

	if store.calls != 0 {
		t.Fatalf("expected zero queries, got %d", store.calls)
	}

	if state.SQL != "" || state.Result != nil || state.Answer != "" {
		t.Fatalf("expected no outputs, got %#v", state)
	}
}

func TestEmptySynthesis(t *testing.T) {
	llm := completer{responses: []response{{text: "   \n"}}}
	store := querier{}

	p := newPipeline(t, analyst.Config{Completer: &llm, Store: &store})

	_, err := p.Run(t.Context(), "anything")
	if !errors.Is(err, analyst.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}

	if store.calls != 0 {
		t.Fatalf("expected zero queries, got %d", store.calls)
	}
}

func TestQueryFailure(t *testing.T) {
	store := loadRows(t, 3)
	llm := completer{responses: []response{{text: "SELECT missing_column FROM uploaded_data"}}}

	p := newPipeline(t, analyst.Config{
		Completer: &llm,
		Store:     store,
		Mode:      analyst.ModeExplain,
	})

	state, err := p.Run(t.Context(), "what is missing?")

	var qe *duck.QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QueryError, got %T: %v", err, err)
	}

	var se *analyst.StageError
	if !errors.As(err, &se) || se.Phase != analyst.PhaseExecuting {
		t.Fatalf("expected failure in executing, got %v", err)
	}

	if state.Phase != analyst.PhaseFailed || state.Result != nil || state.Answer != "" {
		t.Fatalf("unexpected state: %#v", state)
	}

	if len(llm.prompts) != 1 {
		t.Fatalf("expected no explain call, got %d prompts", len(llm.prompts))
	}
}

func TestQueryFailureWrapped(t *testing.T) {
	llm := completer{responses: []response{{text: "SELECT 1"}}}
	store := querier{err: context.DeadlineExceeded}

	p := newPipeline(t, analyst.Config{Completer: &llm, Store: &store, Mode: analyst.ModeExecute})

	_, err := p.Run(t.Context(), "one")

	var qe *duck.QueryError
	if !errors.As(err, &qe) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected a QueryError wrapping the deadline, got %v", err)
	}
}

func TestExplainFailure(t *testing.T) {
	llm := completer{
		responses: []response{
			{text: "SELECT 1"},
			{err: errors.New("rate limited")},
		},
	}
	store := querier{result: duck.Result{Columns: []string{"x"}, Rows: [][]any{{1}}}}

	p := newPipeline(t, analyst.Config{Completer: &llm, Store: &store, Mode: analyst.ModeExplain})

	state, err := p.Run(t.Context(), "one")

	var se *analyst.StageError
	if !errors.As(err, &se) || se.Phase != analyst.PhaseExplaining {
		t.Fatalf("expected failure in explaining, got %v", err)
	}

	var le *analyst.LLMError
	if !errors.As(err, &le) || le.Error() != "rate limited" {
		t.Fatalf("expected verbatim LLMError, got %v", err)
	}

	if state.Answer != "" {
		t.Fatalf("expected no answer, got %q", state.Answer)
	}
}

func TestEmptyQuestion(t *testing.T) {
	llm := completer{}
	store := querier{}

	p := newPipeline(t, analyst.Config{Completer: &llm, Store: &store})

	state, err := p.Run(t.Context(), "  ")
	if !errors.Is(err, analyst.ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}

	if state.Phase != analyst.PhaseFailed || len(llm.prompts) != 0 {
		t.Fatalf("expected no work, got %#v", state)
	}
}

func TestRetryPolicy(t *testing.T) {
	llm := completer{
		responses: []response{
			{err: &client.StatusError{StatusCode: 503, Message: "overloaded"}},
			{text: "SELECT 1"},
		},
	}
	store := querier{result: duck.Result{Columns: []string{"x"}, Rows: [][]any{{1}}}}

	p := newPipeline(t, analyst.Config{
		Completer: &llm,
		Store:     &store,
		Mode:      analyst.ModeExecute,
		LLMPolicy: retry.Policy{
			MaxTries:        2,
			InitialInterval: time.Millisecond,
			Retryable:       client.Temporary,
		},
	})

	if _, err := p.Run(t.Context(), "one"); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(llm.prompts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(llm.prompts))
	}
}

func TestRetryPolicyFinal(t *testing.T) {
	llm := completer{
		responses: []response{
			{err: client.ErrUnauthorized},
			{text: "SELECT 1"},
		},
	}

	p := newPipeline(t, analyst.Config{
		Completer: &llm,
		Store:     &querier{},
		LLMPolicy: retry.Policy{
			MaxTries:        3,
			InitialInterval: time.Millisecond,
			Retryable:       client.Temporary,
		},
	})

	if _, err := p.Run(t.Context(), "one"); !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if len(llm.prompts) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(llm.prompts))
	}
}

func TestSchemaHint(t *testing.T) {
	store := loadRows(t, 2)
	llm := completer{responses: []response{{text: "SELECT SUM(sales) FROM uploaded_data"}}}

	p := newPipeline(t, analyst.Config{
		Completer:  &llm,
		Store:      store,
		Mode:       analyst.ModeExecute,
		SchemaHint: true,
	})

	state, err := p.Run(t.Context(), "total sales?")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !strings.Contains(llm.prompts[0], "Columns: region (VARCHAR), sales (BIGINT)") {
		t.Fatalf("expected schema hint in prompt:\n%s", llm.prompts[0])
	}

	if len(state.Result.Rows) != 1 {
		t.Fatalf("unexpected result: %#v", state.Result)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := analyst.New(analyst.Config{Store: &querier{}}); err == nil {
		t.Fatal("expected an error without a completer")
	}

	if _, err := analyst.New(analyst.Config{Completer: &completer{}}); err == nil {
		t.Fatal("expected an error without a store")
	}

	if _, err := analyst.New(analyst.Config{Completer: &completer{}, Store: &querier{}, Mode: analyst.Mode(42)}); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}

func TestParseMode(t *testing.T) {
	for _, name := range []string{"explain", "execute", "route", "Route-Explain"} {
		m, err := analyst.ParseMode(name)
		if err != nil {
			t.Fatalf("parse %q: %v", name, err)
		}

		if !strings.EqualFold(m.String(), name) {
			t.Fatalf("expected %q, got %q", name, m)
		}
	}

	if _, err := analyst.ParseMode("graph"); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}

func TestMarkdown(t *testing.T) {
	res := duck.Result{
		Columns: []string{"region", "sales"},
		Rows: [][]any{
			{"north", int64(10)},
			{"south", nil},
			{"east", int64(30)},
		},
	}

	md, err := analyst.Markdown(res, 2)
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}

	for _, want := range []string{"region", "sales", "north", "NULL", "|"} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in:\n%s", want, md)
		}
	}

	if strings.Contains(md, "east") {
		t.Fatalf("expected preview to stop after 2 rows:\n%s", md)
	}
}

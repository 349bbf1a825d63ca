// Package analyst provides the question answering pipeline: a question is
// turned into SQL by a language model, the SQL is executed against the table
// store and, depending on the mode, the result is explained by the model.
//
// A run is a small state machine:
//
//	Start -> Synthesizing -> Normalizing -> Executing -> [Explaining] -> Done
//
// with Failed reachable from every non-terminal phase. In the routing modes
// the synthesized text is inspected after Synthesizing and, when it does not
// look like SQL, the run ends in Done with the text as the answer.
package analyst

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ardanlabs/ai-agents/foundation/duck"
	"github.com/ardanlabs/ai-agents/foundation/logger"
	"github.com/ardanlabs/ai-agents/foundation/retry"
	"github.com/google/uuid"
)

// DefaultTable is the relation uploaded datasets are loaded into.
const DefaultTable = "uploaded_data"

// Querier represents the query capability of the table store.
type Querier interface {
	Query(ctx context.Context, sql string) (duck.Result, error)
}

// =============================================================================

// Mode selects the shape of the graph a run follows.
type Mode int

// Set of supported modes.
const (
	// ModeExplain always executes the SQL and explains the result.
	ModeExplain Mode = iota

	// ModeExecute always executes the SQL and returns the result.
	ModeExecute

	// ModeRoute executes only text containing "select"; any other text is
	// returned as the answer.
	ModeRoute

	// ModeRouteExplain routes like ModeRoute and explains executed results.
	ModeRouteExplain
)

var modeNames = map[Mode]string{
	ModeExplain:      "explain",
	ModeExecute:      "execute",
	ModeRoute:        "route",
	ModeRouteExplain: "route-explain",
}

// ParseMode converts the mode name into a Mode.
func ParseMode(name string) (Mode, error) {
	for m, n := range modeNames {
		if strings.EqualFold(name, n) {
			return m, nil
		}
	}

	return 0, fmt.Errorf("unknown mode %q", name)
}

func (m Mode) String() string {
	if name, exists := modeNames[m]; exists {
		return name
	}

	return fmt.Sprintf("mode(%d)", int(m))
}

func (m Mode) routes() bool {
	return m == ModeRoute || m == ModeRouteExplain
}

func (m Mode) explains() bool {
	return m == ModeExplain || m == ModeRouteExplain
}

// =============================================================================

// Config represents the dependencies and settings of a pipeline.
type Config struct {
	Log       logger.Logger
	Completer Completer
	Store     Querier
	Table     string
	Mode      Mode

	// SchemaHint adds the table's columns to the SQL prompt when the store
	// can describe the table.
	SchemaHint bool

	LLMPolicy   retry.Policy
	QueryPolicy retry.Policy

	// OnTransition is called for every phase change of a run.
	OnTransition func(ctx context.Context, runID string, from Phase, to Phase)
}

// Pipeline sequences the stages of a run.
type Pipeline struct {
	log          logger.Logger
	store        Querier
	synth        *Synthesizer
	explainer    *Explainer
	table        string
	mode         Mode
	llmPolicy    retry.Policy
	queryPolicy  retry.Policy
	onTransition func(ctx context.Context, runID string, from Phase, to Phase)
}

// New constructs a pipeline from the configuration.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Completer == nil {
		return nil, errors.New("completer is required")
	}

	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}

	if _, exists := modeNames[cfg.Mode]; !exists {
		return nil, fmt.Errorf("unknown mode %d", cfg.Mode)
	}

	log := cfg.Log
	if log == nil {
		log = logger.Noop
	}

	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}

	var describer Describer
	if cfg.SchemaHint {
		describer, _ = cfg.Store.(Describer)
	}

	p := Pipeline{
		log:          log,
		store:        cfg.Store,
		synth:        NewSynthesizer(cfg.Completer, describer),
		explainer:    NewExplainer(cfg.Completer),
		table:        table,
		mode:         cfg.Mode,
		llmPolicy:    cfg.LLMPolicy,
		queryPolicy:  cfg.QueryPolicy,
		onTransition: cfg.OnTransition,
	}

	return &p, nil
}

// Mode returns the mode the pipeline runs in.
func (p *Pipeline) Mode() Mode {
	return p.mode
}

// Table returns the relation questions are asked against.
func (p *Pipeline) Table() string {
	return p.table
}

// Run executes one pass of the state machine for the question. The returned
// state always carries the terminal phase and the path taken. When the run
// fails the error is a *StageError wrapping an *LLMError or *duck.QueryError,
// and nothing produced after the failing stage is in the state.
func (p *Pipeline) Run(ctx context.Context, question string) (State, error) {
	state := State{
		RunID:    uuid.NewString(),
		Question: question,
		Phase:    PhaseStart,
		Path:     []Phase{PhaseStart},
	}

	if strings.TrimSpace(question) == "" {
		p.transition(ctx, &state, PhaseFailed)
		return state, &StageError{Phase: PhaseStart, Err: ErrEmptyQuestion}
	}

	start := time.Now()
	p.log(ctx, "analyst: run: started", "run_id", state.RunID, "mode", p.mode)

	next := PhaseSynthesizing

	for !next.Terminal() {
		p.transition(ctx, &state, next)

		d, to, err := p.step(ctx, state)
		if err == nil {
			err = state.apply(d)
		}

		if err != nil {
			failed := state.Phase
			p.transition(ctx, &state, PhaseFailed)
			p.log(ctx, "analyst: run: failed", "run_id", state.RunID, "phase", failed, "ERROR", err, "duration", time.Since(start))
			return state, &StageError{Phase: failed, Err: err}
		}

		next = to
	}

	p.transition(ctx, &state, next)
	p.log(ctx, "analyst: run: completed", "run_id", state.RunID, "path", state.Path, "duration", time.Since(start))

	return state, nil
}

// step executes the stage for the current phase against a copy of the state
// and returns what the stage produced with the phase to move to.
func (p *Pipeline) step(ctx context.Context, state State) (delta, Phase, error) {
	switch state.Phase {
	case PhaseSynthesizing:
		raw, err := retry.Do(ctx, p.llmPolicy, func(ctx context.Context) (string, error) {
			return p.synth.Synthesize(ctx, state.Question, p.table)
		})
		if err != nil {
			return delta{}, PhaseFailed, asLLMError("synthesize", err)
		}

		if p.mode.routes() && !WantsExecution(raw) {
			return delta{raw: &raw, answer: &raw}, PhaseDone, nil
		}

		return delta{raw: &raw}, PhaseNormalizing, nil

	case PhaseNormalizing:
		sql := Normalize(state.Raw)
		return delta{sql: &sql}, PhaseExecuting, nil

	case PhaseExecuting:
		res, err := retry.Do(ctx, p.queryPolicy, func(ctx context.Context) (duck.Result, error) {
			return p.store.Query(ctx, state.SQL)
		})
		if err != nil {
			var qe *duck.QueryError
			if !errors.As(err, &qe) {
				err = &duck.QueryError{Query: state.SQL, Err: err}
			}
			return delta{}, PhaseFailed, err
		}

		if p.mode.explains() {
			return delta{result: &res}, PhaseExplaining, nil
		}

		return delta{result: &res}, PhaseDone, nil

	case PhaseExplaining:
		answer, err := retry.Do(ctx, p.llmPolicy, func(ctx context.Context) (string, error) {
			return p.explainer.Explain(ctx, *state.Result)
		})
		if err != nil {
			return delta{}, PhaseFailed, asLLMError("explain", err)
		}

		return delta{answer: &answer}, PhaseDone, nil
	}

	return delta{}, PhaseFailed, fmt.Errorf("no stage for phase %s", state.Phase)
}

// asLLMError makes sure failures of a model stage carry the LLMError kind,
// including a context that expired between attempts.
func asLLMError(op string, err error) error {
	var le *LLMError
	if errors.As(err, &le) {
		return err
	}

	return &LLMError{Op: op, Err: err}
}

func (p *Pipeline) transition(ctx context.Context, state *State, to Phase) {
	from := state.Phase

	state.Phase = to
	state.Path = append(state.Path, to)

	p.log(ctx, "analyst: transition", "run_id", state.RunID, "from", from, "to", to)

	if p.onTransition != nil {
		p.onTransition(ctx, state.RunID, from, to)
	}
}

package analyst

import (
	"fmt"

	"github.com/ardanlabs/ai-agents/foundation/duck"
)

// Phase represents a state of the pipeline state machine.
type Phase int

// Set of phases a run moves through.
const (
	PhaseStart Phase = iota
	PhaseSynthesizing
	PhaseNormalizing
	PhaseExecuting
	PhaseExplaining
	PhaseDone
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseStart:        "start",
	PhaseSynthesizing: "synthesizing",
	PhaseNormalizing:  "normalizing",
	PhaseExecuting:    "executing",
	PhaseExplaining:   "explaining",
	PhaseDone:         "done",
	PhaseFailed:       "failed",
}

func (p Phase) String() string {
	if name, exists := phaseNames[p]; exists {
		return name
	}

	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Terminal reports if no transition leaves the phase.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// =============================================================================

// State is the record threaded through a run. Each output field is written
// at most once per run.
type State struct {
	RunID    string       `json:"run_id"`
	Question string       `json:"question"`
	Raw      string       `json:"raw,omitempty"`
	SQL      string       `json:"sql,omitempty"`
	Result   *duck.Result `json:"result,omitempty"`
	Answer   string       `json:"answer,omitempty"`
	Phase    Phase        `json:"phase"`
	Path     []Phase      `json:"path"`

	written field
}

type field uint8

const (
	fieldRaw field = 1 << iota
	fieldSQL
	fieldResult
	fieldAnswer
)

var fieldNames = map[field]string{
	fieldRaw:    "raw",
	fieldSQL:    "sql",
	fieldResult: "result",
	fieldAnswer: "answer",
}

// delta carries the fields produced by a single stage.
type delta struct {
	raw    *string
	sql    *string
	result *duck.Result
	answer *string
}

// apply merges the delta into the state, refusing to overwrite a field that
// an earlier stage already produced.
func (s *State) apply(d delta) error {
	for f, set := range map[field]bool{
		fieldRaw:    d.raw != nil,
		fieldSQL:    d.sql != nil,
		fieldResult: d.result != nil,
		fieldAnswer: d.answer != nil,
	} {
		if set && s.written&f != 0 {
			return fmt.Errorf("field %q already written", fieldNames[f])
		}
	}

	if d.raw != nil {
		s.Raw = *d.raw
		s.written |= fieldRaw
	}

	if d.sql != nil {
		s.SQL = *d.sql
		s.written |= fieldSQL
	}

	if d.result != nil {
		s.Result = d.result
		s.written |= fieldResult
	}

	if d.answer != nil {
		s.Answer = *d.answer
		s.written |= fieldAnswer
	}

	return nil
}

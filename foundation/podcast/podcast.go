// Package podcast provides the blog to podcast pipeline: a web page is
// scraped to text, the text is turned into a short conversational script by
// a language model and the script is converted to speech.
//
//	Start -> Scraping -> Scripting -> Speaking -> Done
//
// Failed is reachable from every non-terminal phase.
package podcast

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ardanlabs/ai-agents/foundation/logger"
	"github.com/ardanlabs/ai-agents/foundation/retry"
	"github.com/google/uuid"
)

// ErrEmptyURL is returned when a run is started without a URL.
var ErrEmptyURL = errors.New("please enter a blog URL")

// Phase identifies where a run is.
type Phase int

// Set of phases of a run.
const (
	PhaseStart Phase = iota
	PhaseScraping
	PhaseScripting
	PhaseSpeaking
	PhaseDone
	PhaseFailed
)

var phaseNames = [...]string{"start", "scraping", "scripting", "speaking", "done", "failed"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}

	return fmt.Sprintf("phase(%d)", int(p))
}

// Terminal reports if the run stops in this phase.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// StageError identifies the phase in which a run failed.
type StageError struct {
	Phase Phase
	Err   error
}

func (se *StageError) Error() string {
	return fmt.Sprintf("%s: %s", se.Phase, se.Err)
}

func (se *StageError) Unwrap() error {
	return se.Err
}

// =============================================================================

// State is what a run has produced so far.
type State struct {
	RunID  string
	URL    string
	Text   string
	Script string
	Audio  []byte
	Phase  Phase
	Path   []Phase
}

// Scraper returns the readable text of a web page.
type Scraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// Speaker converts text to audio.
type Speaker interface {
	Speak(ctx context.Context, text string) ([]byte, error)
}

// Config represents the dependencies and settings of a pipeline.
type Config struct {
	Log       logger.Logger
	Scraper   Scraper
	Completer Completer
	Speaker   Speaker
	Policy    retry.Policy
}

// Pipeline sequences the stages of a run.
type Pipeline struct {
	log      logger.Logger
	scraper  Scraper
	scripter *Scripter
	speaker  Speaker
	policy   retry.Policy
}

// New constructs a pipeline from the configuration.
func New(cfg Config) (*Pipeline, error) {
	switch {
	case cfg.Scraper == nil:
		return nil, errors.New("scraper is required")
	case cfg.Completer == nil:
		return nil, errors.New("completer is required")
	case cfg.Speaker == nil:
		return nil, errors.New("speaker is required")
	}

	log := cfg.Log
	if log == nil {
		log = logger.Noop
	}

	p := Pipeline{
		log:      log,
		scraper:  cfg.Scraper,
		scripter: NewScripter(cfg.Completer),
		speaker:  cfg.Speaker,
		policy:   cfg.Policy,
	}

	return &p, nil
}

// Run takes the page at rawURL through every stage. On failure the returned
// state holds what was produced before the failing stage.
func (p *Pipeline) Run(ctx context.Context, rawURL string) (State, error) {
	state := State{
		RunID: uuid.NewString(),
		URL:   strings.TrimSpace(rawURL),
		Phase: PhaseStart,
		Path:  []Phase{PhaseStart},
	}

	if err := validateURL(state.URL); err != nil {
		p.transition(ctx, &state, PhaseFailed)
		return state, &StageError{Phase: PhaseStart, Err: err}
	}

	start := time.Now()
	p.log(ctx, "podcast: run: started", "run_id", state.RunID, "url", state.URL)

	fail := func(err error) (State, error) {
		failed := state.Phase
		p.transition(ctx, &state, PhaseFailed)
		p.log(ctx, "podcast: run: failed", "run_id", state.RunID, "phase", failed, "ERROR", err, "duration", time.Since(start))
		return state, &StageError{Phase: failed, Err: err}
	}

	// -------------------------------------------------------------------------

	p.transition(ctx, &state, PhaseScraping)

	text, err := retry.Do(ctx, p.policy, func(ctx context.Context) (string, error) {
		return p.scraper.Scrape(ctx, state.URL)
	})
	if err != nil {
		return fail(err)
	}
	state.Text = text

	// -------------------------------------------------------------------------

	p.transition(ctx, &state, PhaseScripting)

	script, err := retry.Do(ctx, p.policy, func(ctx context.Context) (string, error) {
		return p.scripter.Script(ctx, state.Text)
	})
	if err != nil {
		return fail(err)
	}
	state.Script = script

	// -------------------------------------------------------------------------

	p.transition(ctx, &state, PhaseSpeaking)

	audio, err := retry.Do(ctx, p.policy, func(ctx context.Context) ([]byte, error) {
		return p.speaker.Speak(ctx, state.Script)
	})
	if err != nil {
		return fail(err)
	}
	state.Audio = audio

	// -------------------------------------------------------------------------

	p.transition(ctx, &state, PhaseDone)
	p.log(ctx, "podcast: run: completed", "run_id", state.RunID, "script_chars", len(state.Script), "audio_bytes", len(state.Audio), "duration", time.Since(start))

	return state, nil
}

func (p *Pipeline) transition(ctx context.Context, state *State, to Phase) {
	p.log(ctx, "podcast: transition", "run_id", state.RunID, "from", state.Phase, "to", to)

	state.Phase = to
	state.Path = append(state.Path, to)
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return ErrEmptyURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url %q must be an absolute http(s) address", rawURL)
	}

	return nil
}

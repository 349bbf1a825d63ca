package analyst

import (
	"errors"
	"fmt"
)

// ErrEmptyQuestion is returned when a run is started without a question.
var ErrEmptyQuestion = errors.New("please enter a question")

// ErrEmptyResponse is returned when the model produces no text.
var ErrEmptyResponse = errors.New("empty response from model")

// LLMError is returned when the completion capability fails or produces an
// unusable response. The message is the underlying message, unmodified.
type LLMError struct {
	Op  string
	Err error
}

func (le *LLMError) Error() string {
	return le.Err.Error()
}

func (le *LLMError) Unwrap() error {
	return le.Err
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

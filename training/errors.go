package training

import (
	"errors"
	"fmt"
)

// Precondition errors. These are rejected locally, never retried, and map
// to exit code 2 at the CLI boundary.
var (
	// ErrOutOfSequence is returned when a hint level is requested before
	// the levels below it have been delivered, or requested again after
	// it was already delivered.
	ErrOutOfSequence = errors.New("hint level out of sequence")

	// ErrEmptyResolution is returned when a resolution attempt carries no
	// text. The incident stays open and unscored.
	ErrEmptyResolution = errors.New("resolution text is empty")

	// ErrIncidentClosed is returned when hints or scoring are requested
	// for an incident in a terminal state.
	ErrIncidentClosed = errors.New("incident is closed")
)

// GenerationError reports that the generative service could not produce a
// usable result within the retry budget. Attempts is the number of calls
// actually made.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

package sequencer

import "errors"

var (
	// ErrNotStarted is returned when navigating before Start
	ErrNotStarted = errors.New("sequencer: not started")

	// ErrNotInProgress is returned when the run has already completed
	ErrNotInProgress = errors.New("sequencer: run is not in progress")

	// ErrSubmissionInFlight is returned for any mutation while a submission is pending
	ErrSubmissionInFlight = errors.New("sequencer: submission in flight")

	// ErrRetreatDisabled is returned when going back is not enabled for this flow
	ErrRetreatDisabled = errors.New("sequencer: retreat is disabled")

	// ErrAtFirstStep is returned when retreating from the first visible question
	ErrAtFirstStep = errors.New("sequencer: already at first step")

	// ErrUnknownQuestion is returned when answering an id outside the active pool
	ErrUnknownQuestion = errors.New("sequencer: unknown question")

	// ErrQuestionHidden is returned when answering a question its conditions hide
	ErrQuestionHidden = errors.New("sequencer: question is hidden")
)

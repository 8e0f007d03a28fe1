package flow

import "errors"

var (
	// ErrWrongScreen is returned when an operation is not available on the current screen.
	ErrWrongScreen = errors.New("flow: operation not available on this screen")
	// ErrNoFollowUp is returned by BeginFollowUp when the catalog has no follow-up pool.
	ErrNoFollowUp = errors.New("flow: catalog has no follow-up pool")
)

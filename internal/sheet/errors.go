package sheet

import "errors"

var (
	// ErrEmptyBody is returned when a request carries no payload.
	ErrEmptyBody = errors.New("sheet: empty request body")
	// ErrInvalidPayload is returned when the payload is not the submission JSON.
	ErrInvalidPayload = errors.New("sheet: invalid submission payload")
	// ErrListUnsupported is returned when the backend cannot list rows.
	ErrListUnsupported = errors.New("sheet: backend does not support listing")
)

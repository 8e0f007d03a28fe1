package submission

import (
	"errors"
	"fmt"
)

// Kind classifies a submission failure.
type Kind string

const (
	// KindConfiguration means the endpoint URL is missing or still the placeholder.
	// No request was attempted.
	KindConfiguration Kind = "configuration"
	// KindTransport covers network failures and non-2xx responses.
	KindTransport Kind = "transport"
	// KindLogical means the endpoint answered but reported a failure status.
	KindLogical Kind = "logical"
)

// PlaceholderURL is the marker left in unconfigured deployments.
const PlaceholderURL = "YOUR_GOOGLE_APPS_SCRIPT_WEB_APP_URL"

// GenericFailureMessage is shown to respondents when a send fails.
const GenericFailureMessage = "Something went wrong sending your responses. Please try again."

var (
	// ErrMissingURL is returned when no submit URL is configured
	ErrMissingURL = errors.New("submit url is not configured")

	// ErrPlaceholderURL is returned when the submit URL was never replaced
	ErrPlaceholderURL = errors.New("submit url is still the placeholder")

	// ErrInvalidURL is returned when the submit URL is not an absolute http(s) URL
	ErrInvalidURL = errors.New("submit url is not a valid http(s) url")
)

// Error is the failure returned by the submission pipeline. Every kind is
// recoverable: answers stay intact and the respondent may try again.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("submission %s error (status %d): %s", e.Kind, e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("submission %s error: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("submission %s error: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("submission %s error", e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the text surfaced to the respondent for this failure.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindConfiguration:
		if e.Err == nil {
			return "The form is not set up to send responses yet."
		}
		return "The form is not set up to send responses yet: " + e.Err.Error() + "."
	case KindLogical:
		if e.Message != "" {
			return e.Message
		}
		return GenericFailureMessage
	default:
		return GenericFailureMessage
	}
}

// KindOf returns the kind of a submission error, or "" for other errors.
func KindOf(err error) Kind {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Kind
	}
	return ""
}

func configurationError(err error) *Error {
	return &Error{Kind: KindConfiguration, Err: err}
}

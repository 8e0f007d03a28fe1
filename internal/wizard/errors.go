package wizard

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/talmzip/awwwe-feedback-form/internal/flow"
	"github.com/talmzip/awwwe-feedback-form/internal/sequencer"
	"github.com/talmzip/awwwe-feedback-form/internal/session"
	"github.com/talmzip/awwwe-feedback-form/internal/submission"
)

// ErrorResponse is the body of every non-2xx wizard response.
type ErrorResponse struct {
	Error string          `json:"error"`
	Kind  submission.Kind `json:"kind,omitempty"`
	View  *flow.View      `json:"view,omitempty"`
}

// statusFor maps a flow error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, sequencer.ErrUnknownQuestion):
		return http.StatusNotFound
	case errors.Is(err, sequencer.ErrSubmissionInFlight),
		errors.Is(err, sequencer.ErrNotStarted),
		errors.Is(err, sequencer.ErrNotInProgress),
		errors.Is(err, sequencer.ErrRetreatDisabled),
		errors.Is(err, sequencer.ErrAtFirstStep),
		errors.Is(err, sequencer.ErrQuestionHidden),
		errors.Is(err, flow.ErrWrongScreen),
		errors.Is(err, flow.ErrNoFollowUp):
		return http.StatusConflict
	}
	switch submission.KindOf(err) {
	case submission.KindConfiguration:
		return http.StatusInternalServerError
	case submission.KindTransport, submission.KindLogical:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error, view *flow.View) {
	resp := ErrorResponse{Error: err.Error(), View: view}
	var serr *submission.Error
	if errors.As(err, &serr) {
		resp.Kind = serr.Kind
		resp.Error = serr.UserMessage()
	}
	writeJSON(w, statusFor(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Package wizard exposes the questionnaire flow over HTTP and streams flow
// events over a websocket.
package wizard

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/talmzip/awwwe-feedback-form/internal/flow"
	"github.com/talmzip/awwwe-feedback-form/internal/questionnaire"
	"github.com/talmzip/awwwe-feedback-form/internal/sequencer"
	"github.com/talmzip/awwwe-feedback-form/internal/session"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

// Handler serves the wizard routes.
type Handler struct {
	sessions *session.Manager
	catalog  *questionnaire.Catalog
	logger   *logging.Logger
}

// NewHandler creates a wizard handler.
func NewHandler(sessions *session.Manager, catalog *questionnaire.Catalog, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{sessions: sessions, catalog: catalog, logger: logger.Component("wizard")}
}

// Routes mounts the wizard endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/catalog", h.Catalog)
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Get("/events", h.Events)
		r.Post("/start", h.Start)
		r.Put("/answers/{questionID}", h.Answer)
		r.Post("/advance", h.Advance)
		r.Post("/retreat", h.Retreat)
		r.Post("/continue", h.Continue)
		r.Post("/follow-up", h.FollowUp)
		r.Post("/restart", h.Restart)
	})
}

// SessionResponse carries a session's current view.
type SessionResponse struct {
	SessionID string            `json:"session_id"`
	Outcome   sequencer.Outcome `json:"outcome,omitempty"`
	View      flow.View         `json:"view"`
}

// AnswerRequest is the body of PUT .../answers/{questionID}.
type AnswerRequest struct {
	Value string `json:"value"`
}

// Catalog handles GET /wizard/catalog.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog)
}

// CreateSession handles POST /wizard/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, f, err := h.sessions.Create(r.Context())
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{SessionID: id, View: f.View()})
}

// GetSession handles GET /wizard/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, View: f.View()})
}

// Start handles POST /wizard/sessions/{id}/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(_ context.Context, f *flow.Flow) (sequencer.Outcome, error) {
		return "", f.Start()
	})
}

// Answer handles PUT /wizard/sessions/{id}/answers/{questionID}.
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	questionID := chi.URLParam(r, "questionID")
	h.mutate(w, r, func(_ context.Context, f *flow.Flow) (sequencer.Outcome, error) {
		return "", f.Answer(questionID, req.Value)
	})
}

// Advance handles POST /wizard/sessions/{id}/advance. The submission, if one
// starts, is not cancelled when the client goes away.
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, f *flow.Flow) (sequencer.Outcome, error) {
		return f.Advance(context.WithoutCancel(ctx))
	})
}

// Retreat handles POST /wizard/sessions/{id}/retreat.
func (h *Handler) Retreat(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(_ context.Context, f *flow.Flow) (sequencer.Outcome, error) {
		return "", f.Retreat()
	})
}

// Continue handles POST /wizard/sessions/{id}/continue.
func (h *Handler) Continue(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(_ context.Context, f *flow.Flow) (sequencer.Outcome, error) {
		return "", f.Continue()
	})
}

// FollowUp handles POST /wizard/sessions/{id}/follow-up.
func (h *Handler) FollowUp(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(_ context.Context, f *flow.Flow) (sequencer.Outcome, error) {
		return "", f.BeginFollowUp()
	})
}

// Restart handles POST /wizard/sessions/{id}/restart.
func (h *Handler) Restart(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(_ context.Context, f *flow.Flow) (sequencer.Outcome, error) {
		return "", f.Restart()
	})
}

// mutate loads the session, applies op, persists the result and writes the
// view. Failed submissions still persist: answers survive for the retry.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, *flow.Flow) (sequencer.Outcome, error)) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()
	f, err := h.sessions.Get(ctx, id)
	if err != nil {
		writeError(w, err, nil)
		return
	}

	outcome, opErr := op(ctx, f)
	if saveErr := h.sessions.Save(ctx, id); saveErr != nil {
		h.logger.Warn("failed to persist session", "session_id", id, "error", saveErr)
	}

	view := f.View()
	if opErr != nil {
		if outcome == sequencer.OutcomeFailed {
			h.logger.Warn("submission failed", "session_id", id, "error", opErr)
		}
		writeError(w, opErr, &view)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, Outcome: outcome, View: view})
}

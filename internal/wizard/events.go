package wizard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"

	"github.com/talmzip/awwwe-feedback-form/internal/flow"
)

const eventBuffer = 32

// StreamMessage is what the events socket sends.
type StreamMessage struct {
	Type  string      `json:"type"`
	Event *flow.Event `json:"event,omitempty"`
	View  *flow.View  `json:"view,omitempty"`
}

type inboundMessage struct {
	Type string `json:"type"`
}

// Events handles GET /wizard/sessions/{id}/events. The socket first sends
// the current view, then one message per flow event with the view after it.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	websocket.Handler(func(conn *websocket.Conn) {
		h.stream(conn, f, id)
	}).ServeHTTP(w, r)
}

func (h *Handler) stream(conn *websocket.Conn, f *flow.Flow, id string) {
	events := make(chan flow.Event, eventBuffer)
	unsubscribe := f.Subscribe(func(ev flow.Event) {
		select {
		case events <- ev:
		default:
			h.logger.Debug("dropping event for slow socket", "session_id", id, "type", ev.Type)
		}
	})
	defer unsubscribe()

	view := f.View()
	if err := websocket.JSON.Send(conn, StreamMessage{Type: "view", View: &view}); err != nil {
		return
	}
	h.logger.Info("events socket opened", "session_id", id)

	pings := make(chan struct{}, 1)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var msg inboundMessage
			if err := websocket.JSON.Receive(conn, &msg); err != nil {
				return
			}
			if msg.Type == "ping" {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	for {
		select {
		case <-closed:
			h.logger.Debug("events socket closed", "session_id", id)
			return
		case <-pings:
			if err := websocket.JSON.Send(conn, StreamMessage{Type: "pong"}); err != nil {
				return
			}
		case ev := <-events:
			view := f.View()
			if err := websocket.JSON.Send(conn, StreamMessage{Type: ev.Type, Event: &ev, View: &view}); err != nil {
				return
			}
		}
	}
}

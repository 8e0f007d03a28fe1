package sheet

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

// Handler serves the logging endpoint and the admin row listing.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new sheet handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Submit handles POST /sheet/submissions. Every outcome is reported in the
// JSON body with status 200, so callers must read "status".
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	setEndpointHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	payload, err := DecodePayload(r.Header.Get("Content-Type"), r.Body)
	if err != nil {
		h.logger.Warn("rejected submission payload", "error", err)
		writeStatus(w, statusResponse{Status: "error", Message: err.Error()})
		return
	}

	if _, err := h.service.Ingest(r.Context(), payload); err != nil {
		writeStatus(w, statusResponse{Status: "error", Message: err.Error()})
		return
	}
	writeStatus(w, statusResponse{Status: "ok"})
}

// ListRowsResponse is the response for listing rows
type ListRowsResponse struct {
	Rows   []Row `json:"rows"`
	Count  int   `json:"count"`
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
}

// ListRows handles GET /admin/submissions requests
func (h *Handler) ListRows(w http.ResponseWriter, r *http.Request) {
	lister, ok := h.service.Lister()
	if !ok {
		http.Error(w, ErrListUnsupported.Error(), http.StatusNotImplemented)
		return
	}

	limit, offset := 50, 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if v, err := strconv.Atoi(offsetStr); err == nil && v >= 0 {
			offset = v
		}
	}

	rows, err := lister.List(r.Context(), limit, offset)
	if err != nil {
		if errors.Is(err, ErrListUnsupported) {
			http.Error(w, err.Error(), http.StatusNotImplemented)
			return
		}
		h.logger.Error("failed to list rows", "error", err)
		http.Error(w, "failed to list submissions", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []Row{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ListRowsResponse{
		Rows:   rows,
		Count:  len(rows),
		Offset: offset,
		Limit:  limit,
	})
}

func setEndpointHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeStatus(w http.ResponseWriter, resp statusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

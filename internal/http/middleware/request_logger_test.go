package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)

	h := chimw.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wizard/catalog", nil))

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if line["status"] != float64(http.StatusTeapot) {
		t.Errorf("unexpected status %v", line["status"])
	}
	if line["path"] != "/wizard/catalog" {
		t.Errorf("unexpected path %v", line["path"])
	}
	if line["bytes"] != float64(5) {
		t.Errorf("unexpected bytes %v", line["bytes"])
	}
	if id, _ := line["request_id"].(string); id == "" {
		t.Error("expected request id")
	}
}

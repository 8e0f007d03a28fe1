package sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/talmzip/awwwe-feedback-form/internal/observability/metrics"
	"github.com/talmzip/awwwe-feedback-form/internal/submission"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

var sheetTracer = otel.Tracer("awwwe.internal.sheet")

const maxBodyBytes = 1 << 20

// Service turns submission payloads into rows.
type Service struct {
	appender Appender
	backend  string
	logger   *logging.Logger
	metrics  *metrics.FormMetrics
	now      func() time.Time
}

// NewService creates a service appending to appender. backend labels metrics.
func NewService(appender Appender, backend string, logger *logging.Logger, m *metrics.FormMetrics) *Service {
	if appender == nil {
		panic("sheet: appender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		appender: appender,
		backend:  backend,
		logger:   logger.Component("sheet"),
		metrics:  m,
		now:      time.Now,
	}
}

// Lister returns the backend as a Lister when it supports listing.
func (s *Service) Lister() (Lister, bool) {
	l, ok := s.appender.(Lister)
	return l, ok
}

// Ingest appends one row for payload. There is no deduplication: the same
// payload sent twice yields two rows.
func (s *Service) Ingest(ctx context.Context, payload submission.Payload) (Row, error) {
	ctx, span := sheetTracer.Start(ctx, "sheet.ingest", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	row := Row{
		ID:          uuid.NewString(),
		ReceivedAt:  s.now().UTC(),
		SubmittedAt: payload.SubmittedAt,
		Columns:     make([]string, len(payload.Answers)),
		Values:      make([]string, len(payload.Answers)),
	}
	for i, entry := range payload.Answers {
		row.Columns[i] = entry.ID
		row.Values[i] = strings.TrimSpace(entry.Value)
	}
	span.SetAttributes(
		attribute.String("sheet.backend", s.backend),
		attribute.Int("sheet.columns", len(row.Values)),
	)

	if err := s.appender.Append(ctx, row); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.ObserveRow(s.backend, false)
		s.logger.Error("failed to append row", "backend", s.backend, "error", err)
		return Row{}, fmt.Errorf("sheet: append: %w", err)
	}
	s.metrics.ObserveRow(s.backend, true)
	s.logger.Info("row appended", "row_id", row.ID, "backend", s.backend, "columns", len(row.Values))
	return row, nil
}

// DecodePayload reads a submission from body. The payload may be the raw
// JSON document or a urlencoded form whose "data" field holds it.
func DecodePayload(contentType string, body io.Reader) (submission.Payload, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return submission.Payload{}, fmt.Errorf("sheet: read body: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return submission.Payload{}, ErrEmptyBody
	}

	if strings.HasPrefix(strings.ToLower(contentType), "application/x-www-form-urlencoded") || !looksLikeJSON(raw) {
		data, err := formData(raw)
		switch {
		case data != "":
			raw = []byte(data)
		case looksLikeJSON(raw):
			// curl -d sends a raw document under the form content type.
		case err != nil:
			return submission.Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		default:
			return submission.Payload{}, fmt.Errorf("%w: missing data field", ErrInvalidPayload)
		}
	}

	var payload submission.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return submission.Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return payload, nil
}

func formData(raw []byte) (string, error) {
	form, err := url.ParseQuery(string(raw))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(form.Get("data")), nil
}

func looksLikeJSON(raw []byte) bool {
	return len(raw) > 0 && raw[0] == '{'
}

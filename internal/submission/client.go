package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/talmzip/awwwe-feedback-form/internal/observability/metrics"
	"github.com/talmzip/awwwe-feedback-form/internal/questionnaire"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

var submitTracer = otel.Tracer("awwwe.internal.submission.client")

// Encoding selects how the payload is carried in the request body.
type Encoding string

const (
	// EncodingForm sends the JSON payload as the urlencoded form field "data".
	EncodingForm Encoding = "form"
	// EncodingJSON sends the JSON payload as the raw request body.
	EncodingJSON Encoding = "json"
)

// ParseEncoding maps a config value to an Encoding, defaulting to form.
func ParseEncoding(raw string) Encoding {
	if strings.EqualFold(strings.TrimSpace(raw), string(EncodingJSON)) {
		return EncodingJSON
	}
	return EncodingForm
}

const maxResponseBytes = 1 << 20

// ClientConfig configures the submission client.
type ClientConfig struct {
	URL      string
	Encoding Encoding
	// Timeout bounds a single request. Zero leaves the request unbounded.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client posts completed answer sets to the logging endpoint. It makes
// exactly one request per call and never retries.
type Client struct {
	url      string
	encoding Encoding
	http     *http.Client
	catalog  *questionnaire.Catalog
	logger   *logging.Logger
	metrics  *metrics.FormMetrics
	now      func() time.Time
}

// NewClient creates a submission client for the catalog's pools.
func NewClient(cfg ClientConfig, catalog *questionnaire.Catalog, logger *logging.Logger, m *metrics.FormMetrics) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = EncodingForm
	}
	return &Client{
		url:      strings.TrimSpace(cfg.URL),
		encoding: encoding,
		http:     httpClient,
		catalog:  catalog,
		logger:   logger.Component("submission"),
		metrics:  m,
		now:      time.Now,
	}
}

// ValidateURL rejects empty, placeholder, and non-http(s) endpoint URLs.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrMissingURL
	}
	if strings.Contains(raw, PlaceholderURL) {
		return ErrPlaceholderURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidURL
	}
	return nil
}

// Submit builds the record for pool and sends it.
func (c *Client) Submit(ctx context.Context, pool questionnaire.Pool, answers questionnaire.Answers) error {
	rec := BuildRecord(c.catalog, pool, answers, c.now())
	_, err := c.Send(ctx, rec)
	return err
}

// Response is the structured body returned by the endpoint, when present.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Send posts rec to the endpoint. The configuration is checked before any
// network activity.
func (c *Client) Send(ctx context.Context, rec Record) (*Response, error) {
	if err := ValidateURL(c.url); err != nil {
		c.logger.Error("submission not configured", "error", err)
		c.metrics.ObserveSubmission(rec.Pool, string(KindConfiguration))
		return nil, configurationError(err)
	}

	ctx, span := submitTracer.Start(ctx, "submission.Send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("submission.pool", rec.Pool),
		attribute.String("submission.encoding", string(c.encoding)),
		attribute.Int("submission.answers", len(rec.Answers)),
	)

	start := time.Now()
	resp, err := c.send(ctx, rec)
	c.metrics.ObserveSubmitLatency(rec.Pool, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.ObserveSubmission(rec.Pool, string(KindOf(err)))
		c.logger.Error("submission failed", "pool", rec.Pool, "kind", KindOf(err), "error", err)
		return nil, err
	}
	c.metrics.ObserveSubmission(rec.Pool, "ok")
	c.logger.Info("submission sent", "pool", rec.Pool, "answers", len(rec.Answers))
	return resp, nil
}

func (c *Client) send(ctx context.Context, rec Record) (*Response, error) {
	req, err := c.newRequest(ctx, rec)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Status: res.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &Error{
			Kind:    KindTransport,
			Status:  res.StatusCode,
			Message: fmt.Sprintf("request failed with status %d: %s", res.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var parsed Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Warn("unable to parse response json", "error", err, "body", truncate(string(body), 200))
		return nil, nil
	}
	if parsed.Status != "" && parsed.Status != "ok" {
		msg := parsed.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return &parsed, &Error{Kind: KindLogical, Status: res.StatusCode, Message: msg}
	}
	return &parsed, nil
}

func (c *Client) newRequest(ctx context.Context, rec Record) (*http.Request, error) {
	data, err := json.Marshal(rec.Payload())
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var (
		body        io.Reader
		contentType string
	)
	switch c.encoding {
	case EncodingJSON:
		body = bytes.NewReader(data)
		contentType = "application/json"
	default:
		form := url.Values{}
		form.Set("data", string(data))
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return req, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

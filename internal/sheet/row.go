// Package sheet implements the logging endpoint: it accepts a submission
// payload and appends it as one row to the configured backend.
package sheet

import (
	"context"
	"time"
)

// Row is one appended submission. Values keep the column order of the
// payload, trimmed.
type Row struct {
	ID          string    `json:"id"`
	ReceivedAt  time.Time `json:"received_at"`
	SubmittedAt string    `json:"submitted_at,omitempty"`
	Columns     []string  `json:"columns"`
	Values      []string  `json:"values"`
}

// Cells returns the spreadsheet row: the receive time followed by the values.
func (r Row) Cells() []string {
	out := make([]string, 0, len(r.Values)+1)
	out = append(out, r.ReceivedAt.UTC().Format(time.RFC3339))
	return append(out, r.Values...)
}

// Appender stores rows. Implementations must append exactly once per call.
type Appender interface {
	Append(ctx context.Context, row Row) error
}

// Lister pages through stored rows, newest first.
type Lister interface {
	List(ctx context.Context, limit, offset int) ([]Row, error)
}

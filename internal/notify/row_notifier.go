package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/talmzip/awwwe-feedback-form/internal/sheet"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

// RowNotifier wraps an appender and emails a summary of each stored row.
// A failed email never fails the append.
type RowNotifier struct {
	next   sheet.Appender
	email  EmailSender
	to     string
	logger *logging.Logger
}

// NewRowNotifier wraps next. With no sender or recipient it only appends.
func NewRowNotifier(next sheet.Appender, email EmailSender, to string, logger *logging.Logger) *RowNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &RowNotifier{next: next, email: email, to: to, logger: logger.Component("notify")}
}

func (n *RowNotifier) Append(ctx context.Context, row sheet.Row) error {
	if err := n.next.Append(ctx, row); err != nil {
		return err
	}
	if n.email == nil || n.to == "" {
		return nil
	}
	if err := n.email.Send(ctx, rowMessage(n.to, row)); err != nil {
		n.logger.Warn("row notification failed", "row_id", row.ID, "error", err)
	}
	return nil
}

// List delegates to the wrapped appender.
func (n *RowNotifier) List(ctx context.Context, limit, offset int) ([]sheet.Row, error) {
	if l, ok := n.next.(sheet.Lister); ok {
		return l.List(ctx, limit, offset)
	}
	return nil, sheet.ErrListUnsupported
}

func rowMessage(to string, row sheet.Row) EmailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "New response received %s\n\n", row.ReceivedAt.UTC().Format(time.RFC1123))
	for i, v := range row.Values {
		col := fmt.Sprintf("column %d", i+1)
		if i < len(row.Columns) && row.Columns[i] != "" {
			col = row.Columns[i]
		}
		if v == "" {
			v = "(blank)"
		}
		fmt.Fprintf(&b, "%s: %s\n", col, v)
	}
	return EmailMessage{
		To:      to,
		Subject: "New feedback response",
		Body:    b.String(),
	}
}

package archive

import (
	"context"

	"github.com/talmzip/awwwe-feedback-form/internal/sheet"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

// Mirror appends to the primary backend and then copies the row to S3.
// The row counts as stored once the primary append succeeds.
type Mirror struct {
	next   sheet.Appender
	store  *Store
	logger *logging.Logger
}

// NewMirror wraps next with an S3 copy.
func NewMirror(next sheet.Appender, store *Store, logger *logging.Logger) *Mirror {
	if logger == nil {
		logger = logging.Default()
	}
	return &Mirror{next: next, store: store, logger: logger.Component("archive")}
}

func (m *Mirror) Append(ctx context.Context, row sheet.Row) error {
	if err := m.next.Append(ctx, row); err != nil {
		return err
	}
	if err := m.store.ArchiveRow(ctx, row); err != nil {
		m.logger.Warn("failed to archive row", "row_id", row.ID, "error", err)
	}
	return nil
}

// List delegates to the primary backend.
func (m *Mirror) List(ctx context.Context, limit, offset int) ([]sheet.Row, error) {
	if l, ok := m.next.(sheet.Lister); ok {
		return l.List(ctx, limit, offset)
	}
	return nil, sheet.ErrListUnsupported
}

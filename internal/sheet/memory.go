package sheet

import (
	"context"
	"sync"
)

// MemoryAppender keeps rows in process. Used in development and tests.
type MemoryAppender struct {
	mu   sync.RWMutex
	rows []Row
}

// NewMemoryAppender returns an empty MemoryAppender.
func NewMemoryAppender() *MemoryAppender {
	return &MemoryAppender{}
}

func (m *MemoryAppender) Append(_ context.Context, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	return nil
}

// List returns rows newest first.
func (m *MemoryAppender) List(_ context.Context, limit, offset int) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Row
	for i := len(m.rows) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.rows[i])
	}
	return out, nil
}

// Rows returns a copy of every row in append order.
func (m *MemoryAppender) Rows() []Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Row(nil), m.rows...)
}

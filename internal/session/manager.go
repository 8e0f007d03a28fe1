// Package session keeps wizard flows addressable by id across HTTP requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talmzip/awwwe-feedback-form/internal/flow"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

// Factory builds a fresh flow.
type Factory func() *flow.Flow

type liveEntry struct {
	flow     *flow.Flow
	lastSeen time.Time
}

// Manager holds live flows in memory and mirrors their snapshots to a Store
// so a session survives a process restart.
type Manager struct {
	mu      sync.RWMutex
	live    map[string]*liveEntry
	store   Store
	ttl     time.Duration
	newFlow Factory
	logger  *logging.Logger
	now     func() time.Time
}

// NewManager creates a manager. A nil store keeps sessions in memory only.
func NewManager(store Store, factory Factory, ttl time.Duration, logger *logging.Logger) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		live:    make(map[string]*liveEntry),
		store:   store,
		ttl:     ttl,
		newFlow: factory,
		logger:  logger.Component("session"),
		now:     time.Now,
	}
}

// Create starts a new session and returns its id.
func (m *Manager) Create(ctx context.Context) (string, *flow.Flow, error) {
	id := uuid.NewString()
	f := m.newFlow()
	if err := m.store.Save(ctx, id, f.Snapshot(), m.ttl); err != nil {
		return "", nil, fmt.Errorf("session: create: %w", err)
	}
	m.mu.Lock()
	m.live[id] = &liveEntry{flow: f, lastSeen: m.now()}
	m.mu.Unlock()
	m.logger.Info("session created", "session_id", id)
	return id, f, nil
}

// Get returns the live flow for id, rebuilding it from the store when this
// process has not seen it yet.
func (m *Manager) Get(ctx context.Context, id string) (*flow.Flow, error) {
	m.mu.Lock()
	if e, ok := m.live[id]; ok {
		e.lastSeen = m.now()
		m.mu.Unlock()
		return e.flow, nil
	}
	m.mu.Unlock()

	snap, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	f := m.newFlow()
	if err := f.Restore(snap); err != nil {
		return nil, fmt.Errorf("session: restore %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.live[id]; ok {
		e.lastSeen = m.now()
		return e.flow, nil
	}
	m.live[id] = &liveEntry{flow: f, lastSeen: m.now()}
	m.logger.Debug("session restored", "session_id", id)
	return f, nil
}

// Save persists the current snapshot of session id.
func (m *Manager) Save(ctx context.Context, id string) error {
	m.mu.RLock()
	e, ok := m.live[id]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := m.store.Save(ctx, id, e.flow.Snapshot(), m.ttl); err != nil {
		return fmt.Errorf("session: save %s: %w", id, err)
	}
	return nil
}

// Delete drops session id everywhere.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.live, id)
	m.mu.Unlock()
	return m.store.Delete(ctx, id)
}

// Sweep evicts live flows idle for longer than the TTL. Their snapshots stay
// in the store until it expires them.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, e := range m.live {
		if e.lastSeen.Before(cutoff) && !e.flow.State().IsSubmitting {
			delete(m.live, id)
			evicted++
		}
	}
	if evicted > 0 {
		m.logger.Debug("evicted idle sessions", "count", evicted)
	}
	return evicted
}

// Run sweeps on every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// IsNotFound reports whether err means the session does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

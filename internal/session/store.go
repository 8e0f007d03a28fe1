package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/talmzip/awwwe-feedback-form/internal/flow"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session: not found")

// Store persists flow snapshots between requests.
type Store interface {
	Save(ctx context.Context, id string, snap flow.Snapshot, ttl time.Duration) error
	Load(ctx context.Context, id string) (flow.Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps snapshots as JSON strings with a TTL.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a snapshot store backed by redisClient.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("wizard:session:%s", id)
}

// Save writes snap under id. A zero ttl keeps the key forever.
func (s *RedisStore) Save(ctx context.Context, id string, snap flow.Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("session: marshal snapshot: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("session: save snapshot: %w", err)
	}
	return nil
}

// Load returns the snapshot stored under id.
func (s *RedisStore) Load(ctx context.Context, id string) (flow.Snapshot, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return flow.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return flow.Snapshot{}, fmt.Errorf("session: load snapshot: %w", err)
	}
	var snap flow.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return flow.Snapshot{}, fmt.Errorf("session: unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// Delete removes the snapshot stored under id.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("session: delete snapshot: %w", err)
	}
	return nil
}

type memoryEntry struct {
	snap    flow.Snapshot
	expires time.Time
}

// MemoryStore is an in-process Store used in development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, id string, snap flow.Snapshot, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{snap: snap}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.entries[id] = e
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (flow.Snapshot, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return flow.Snapshot{}, ErrNotFound
	}
	if !e.expires.IsZero() && s.now().After(e.expires) {
		s.mu.Lock()
		delete(s.entries, id)
		s.mu.Unlock()
		return flow.Snapshot{}, ErrNotFound
	}
	return e.snap, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talmzip/awwwe-feedback-form/internal/flow"
	"github.com/talmzip/awwwe-feedback-form/internal/questionnaire"
	"github.com/talmzip/awwwe-feedback-form/internal/screen"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

type nopSubmitter struct{}

func (nopSubmitter) Submit(context.Context, questionnaire.Pool, questionnaire.Answers) error {
	return nil
}

func testFactory(t *testing.T) Factory {
	t.Helper()
	catalog, err := questionnaire.DefaultCatalog()
	require.NoError(t, err)
	logger := logging.New("error")
	return func() *flow.Flow {
		return flow.New(catalog, nopSubmitter{}, flow.Options{Logger: logger})
	}
}

func TestManagerCreateAndGet(t *testing.T) {
	m := NewManager(nil, testFactory(t), time.Hour, logging.New("error"))
	ctx := context.Background()

	id, f, err := m.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Same(t, f, got)

	_, err = m.Get(ctx, "nope")
	assert.True(t, IsNotFound(err))
}

func TestManagerRestoresFromStore(t *testing.T) {
	store := NewMemoryStore()
	factory := testFactory(t)
	ctx := context.Background()

	first := NewManager(store, factory, time.Hour, logging.New("error"))
	id, f, err := first.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, f.Start())
	require.NoError(t, f.Answer("memory", "salt"))
	require.NoError(t, first.Save(ctx, id))

	second := NewManager(store, factory, time.Hour, logging.New("error"))
	restored, err := second.Get(ctx, id)
	require.NoError(t, err)
	assert.NotSame(t, f, restored)
	assert.Equal(t, screen.Form, restored.View().Screen)
	assert.Equal(t, "salt", restored.View().Value)
}

func TestManagerSweepEvictsIdle(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, testFactory(t), time.Minute, logging.New("error"))
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	id, _, err := m.Create(ctx)
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	assert.Equal(t, 0, m.Sweep())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.ErrorIs(t, m.Save(ctx, id), ErrNotFound)
}

func TestManagerDelete(t *testing.T) {
	m := NewManager(nil, testFactory(t), time.Hour, logging.New("error"))
	ctx := context.Background()
	id, _, err := m.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, id))
	_, err = m.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

package sequencer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talmzip/awwwe-feedback-form/internal/questionnaire"
	"github.com/talmzip/awwwe-feedback-form/internal/submission"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

type fakeSubmitter struct {
	mu      sync.Mutex
	calls   int
	err     error
	last    questionnaire.Answers
	started chan struct{}
	release chan struct{}
}

func (f *fakeSubmitter) Submit(ctx context.Context, pool questionnaire.Pool, answers questionnaire.Answers) error {
	f.mu.Lock()
	f.calls++
	f.last = answers
	started, release := f.started, f.release
	f.mu.Unlock()
	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	return f.err
}

func (f *fakeSubmitter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) HandleEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recorder) Last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func abcPool() questionnaire.Pool {
	return questionnaire.Pool{Name: "base", Questions: []questionnaire.Question{
		{ID: "A", Kind: questionnaire.KindChoice, Options: []questionnaire.Option{{Value: "x"}, {Value: "y"}}},
		{ID: "B", Kind: questionnaire.KindText, When: &questionnaire.Condition{DependsOn: "A", Value: "x"}},
		{ID: "C", Kind: questionnaire.KindText},
	}}
}

func newSeq(t *testing.T, pool questionnaire.Pool, sub Submitter, opts ...Option) (*Sequencer, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]Option{WithLogger(logging.New("error")), WithListener(rec)}, opts...)
	return New(pool, sub, opts...), rec
}

func currentID(t *testing.T, s *Sequencer) string {
	t.Helper()
	q, ok := s.Current()
	require.True(t, ok)
	return q.ID
}

func assertCursorInRange(t *testing.T, s *Sequencer) {
	t.Helper()
	st := s.State()
	n := len(s.Visible())
	upper := n
	if upper < 1 {
		upper = 1
	}
	assert.GreaterOrEqual(t, st.Cursor, 0)
	assert.Less(t, st.Cursor, upper)
}

func TestSequencer_BranchingPrunesHiddenAnswer(t *testing.T) {
	s, _ := newSeq(t, abcPool(), &fakeSubmitter{})
	require.NoError(t, s.Start())

	require.NoError(t, s.Answer("A", "x"))
	assert.Len(t, s.Visible(), 3)
	require.NoError(t, s.Answer("B", "details"))

	require.NoError(t, s.Answer("A", "y"))
	assert.Len(t, s.Visible(), 2)
	_, ok := s.State().Answers["B"]
	assert.False(t, ok, "answer to hidden question must be removed")
	assertCursorInRange(t, s)
}

func TestSequencer_AnswerHiddenQuestionRejected(t *testing.T) {
	s, _ := newSeq(t, abcPool(), &fakeSubmitter{})
	require.NoError(t, s.Start())

	require.NoError(t, s.Answer("A", "y"))
	assert.ErrorIs(t, s.Answer("B", "details"), ErrQuestionHidden)
	assert.NotContains(t, s.State().Answers, "B")

	require.NoError(t, s.Answer("A", "x"))
	require.NoError(t, s.Answer("B", "details"))
	assert.Equal(t, "details", s.State().Answers["B"])
}

func TestSequencer_WalkAndSubmit(t *testing.T) {
	sub := &fakeSubmitter{}
	s, rec := newSeq(t, abcPool(), sub)
	require.NoError(t, s.Start())
	assert.Equal(t, "A", currentID(t, s))

	require.NoError(t, s.Answer("A", "x"))
	out, err := s.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeStepped, out)
	assert.Equal(t, "B", currentID(t, s))

	_, err = s.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "C", currentID(t, s))

	out, err = s.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, out)
	assert.Equal(t, 1, sub.Calls())
	assert.Equal(t, StatusCompleted, s.State().Status)
	assert.True(t, s.State().HasSubmitted)
	assert.Equal(t, EventSubmissionSucceeded, rec.Last().Type)

	_, err = s.Advance(context.Background())
	assert.ErrorIs(t, err, ErrNotInProgress)
}

func TestSequencer_CursorClampedWhenPathShrinks(t *testing.T) {
	s, _ := newSeq(t, abcPool(), &fakeSubmitter{})
	require.NoError(t, s.Start())
	require.NoError(t, s.Answer("A", "x"))
	_, _ = s.Advance(context.Background())
	_, _ = s.Advance(context.Background())
	require.Equal(t, 2, s.State().Cursor)

	require.NoError(t, s.Answer("A", "y"))
	assertCursorInRange(t, s)
	assert.Equal(t, "C", currentID(t, s))
}

func TestSequencer_ZeroVisibleSubmitsImmediately(t *testing.T) {
	pool := questionnaire.Pool{Name: "gated", Questions: []questionnaire.Question{
		{ID: "only", When: &questionnaire.Condition{DependsOn: "elsewhere", Value: "open"}},
	}}
	sub := &fakeSubmitter{}
	s, rec := newSeq(t, pool, sub)
	require.NoError(t, s.Start())

	_, ok := s.Current()
	assert.False(t, ok)
	assert.Equal(t, 0, s.State().Cursor)

	out, err := s.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, out)
	assert.Equal(t, 1, sub.Calls())
	assert.NotContains(t, rec.Types()[1:], EventStepChanged)
}

func TestSequencer_FailureReturnsToStepWithAnswers(t *testing.T) {
	sub := &fakeSubmitter{err: &submission.Error{Kind: submission.KindLogical, Message: "boom"}}
	s, rec := newSeq(t, abcPool(), sub)
	require.NoError(t, s.Start())
	require.NoError(t, s.Answer("A", "y"))
	_, _ = s.Advance(context.Background())
	require.NoError(t, s.Answer("C", "last words"))
	before := s.State()

	out, err := s.Advance(context.Background())
	assert.Equal(t, OutcomeFailed, out)
	assert.Equal(t, submission.KindLogical, submission.KindOf(err))

	after := s.State()
	assert.Equal(t, StatusInProgress, after.Status)
	assert.Equal(t, before.Cursor, after.Cursor)
	assert.Equal(t, before.Answers, after.Answers)
	assert.Equal(t, "boom", after.LastError)

	last := rec.Last()
	assert.Equal(t, EventSubmissionFailed, last.Type)
	assert.Equal(t, "boom", last.Message)

	sub.mu.Lock()
	sub.err = nil
	sub.mu.Unlock()
	out, err = s.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, out)
	assert.Equal(t, 2, sub.Calls())
	assert.Empty(t, s.State().LastError)
}

func TestSequencer_PlainErrorMessage(t *testing.T) {
	s, rec := newSeq(t, abcPool(), &fakeSubmitter{err: errors.New("dial tcp: refused")})
	require.NoError(t, s.Start())
	require.NoError(t, s.Answer("A", "y"))
	_, _ = s.Advance(context.Background())
	_, err := s.Advance(context.Background())
	require.Error(t, err)
	assert.Equal(t, "dial tcp: refused", rec.Last().Message)
}

func TestSequencer_SubmissionIsNotReentrant(t *testing.T) {
	pool := questionnaire.Pool{Name: "one", Questions: []questionnaire.Question{{ID: "q"}}}
	sub := &fakeSubmitter{started: make(chan struct{}), release: make(chan struct{})}
	s, _ := newSeq(t, pool, sub)
	require.NoError(t, s.Start())

	done := make(chan Outcome, 1)
	go func() {
		out, _ := s.Advance(context.Background())
		done <- out
	}()

	select {
	case <-sub.started:
	case <-time.After(2 * time.Second):
		t.Fatal("submission never started")
	}

	assert.True(t, s.State().IsSubmitting)
	_, err := s.Advance(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.ErrorIs(t, s.Answer("q", "late"), ErrSubmissionInFlight)
	assert.ErrorIs(t, s.Chain(pool), ErrSubmissionInFlight)
	assert.ErrorIs(t, s.Restart(pool), ErrSubmissionInFlight)

	close(sub.release)
	assert.Equal(t, OutcomeSubmitted, <-done)
	assert.Equal(t, 1, sub.Calls())
	assert.Empty(t, sub.last["q"])
}

func TestSequencer_RetreatFlag(t *testing.T) {
	s, _ := newSeq(t, abcPool(), &fakeSubmitter{})
	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Retreat(), ErrRetreatDisabled)
	assert.False(t, s.AllowsRetreat())

	r, _ := newSeq(t, abcPool(), &fakeSubmitter{}, WithRetreat(true))
	require.NoError(t, r.Start())
	assert.ErrorIs(t, r.Retreat(), ErrAtFirstStep)
	_, _ = r.Advance(context.Background())
	assert.Equal(t, "C", currentID(t, r))
	require.NoError(t, r.Retreat())
	assert.Equal(t, "A", currentID(t, r))
}

func TestSequencer_NotStarted(t *testing.T) {
	s, _ := newSeq(t, abcPool(), &fakeSubmitter{}, WithRetreat(true))
	_, err := s.Advance(context.Background())
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.ErrorIs(t, s.Answer("A", "x"), ErrNotStarted)
	assert.ErrorIs(t, s.Retreat(), ErrNotStarted)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "second start is a no-op")
	assert.ErrorIs(t, s.Answer("nope", "x"), ErrUnknownQuestion)
}

func TestSequencer_RenderIsIdempotent(t *testing.T) {
	s, _ := newSeq(t, abcPool(), &fakeSubmitter{})
	require.NoError(t, s.Start())
	require.NoError(t, s.Answer("A", "x"))

	q1, _ := s.Current()
	v1 := s.Value(q1.ID)
	q2, _ := s.Current()
	v2 := s.Value(q2.ID)
	assert.Equal(t, q1.ID, q2.ID)
	assert.Equal(t, "x", v1)
	assert.Equal(t, v1, v2)
}

func TestSequencer_ChainKeepsOtherPools(t *testing.T) {
	catalog, err := questionnaire.DefaultCatalog()
	require.NoError(t, err)
	follow, _ := catalog.FollowUp()

	s, _ := newSeq(t, catalog.Primary(), &fakeSubmitter{})
	require.NoError(t, s.Start())
	require.NoError(t, s.Answer("memory", "blue"))

	require.NoError(t, s.Chain(follow))
	st := s.State()
	assert.Equal(t, "follow_up", st.Pool)
	assert.Equal(t, StatusInProgress, st.Status)
	assert.Equal(t, "blue", st.Answers["memory"])
	assert.Equal(t, "wantMore", currentID(t, s))
}

func TestSequencer_RestoreAndRestart(t *testing.T) {
	pool := abcPool()
	s, _ := newSeq(t, pool, &fakeSubmitter{})
	s.Restore(pool, State{
		Pool:       "base",
		Cursor:     5,
		Status:     StatusSubmitting,
		HasStarted: true,
		Answers:    questionnaire.Answers{"A": "y", "B": "stale"},
	})
	st := s.State()
	assert.Equal(t, StatusInProgress, st.Status)
	assert.Equal(t, 1, st.Cursor)
	assert.NotContains(t, st.Answers, "B")

	require.NoError(t, s.Restart(pool))
	st = s.State()
	assert.Equal(t, StatusNotStarted, st.Status)
	assert.Empty(t, st.Answers)
	assert.False(t, st.HasStarted)
}

func TestSequencer_AnswerEmitsOnlyWhenPathChanges(t *testing.T) {
	s, rec := newSeq(t, abcPool(), &fakeSubmitter{})
	require.NoError(t, s.Start())
	n := len(rec.Types())

	require.NoError(t, s.Answer("C", "text"))
	assert.Len(t, rec.Types(), n)

	require.NoError(t, s.Answer("A", "x"))
	assert.Len(t, rec.Types(), n+1)
	assert.Equal(t, EventStepChanged, rec.Last().Type)
	assert.Equal(t, 3, rec.Last().Total)
}

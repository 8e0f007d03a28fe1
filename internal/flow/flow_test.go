package flow

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talmzip/awwwe-feedback-form/internal/questionnaire"
	"github.com/talmzip/awwwe-feedback-form/internal/screen"
	"github.com/talmzip/awwwe-feedback-form/internal/sequencer"
	"github.com/talmzip/awwwe-feedback-form/internal/submission"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

type stubSubmitter struct {
	mu    sync.Mutex
	err   error
	pools []string
	sent  []questionnaire.Answers
}

func (s *stubSubmitter) Submit(_ context.Context, pool questionnaire.Pool, answers questionnaire.Answers) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools = append(s.pools, pool.Name)
	s.sent = append(s.sent, answers)
	return s.err
}

func newTestFlow(t *testing.T, sub sequencer.Submitter, retreat bool) *Flow {
	t.Helper()
	catalog, err := questionnaire.DefaultCatalog()
	require.NoError(t, err)
	return New(catalog, sub, Options{AllowRetreat: retreat, Logger: logging.New("error")})
}

func walkToSubmit(t *testing.T, f *Flow) (sequencer.Outcome, error) {
	t.Helper()
	for i := 0; i < 10; i++ {
		v := f.View()
		if v.ButtonLabel == LabelSubmit {
			return f.Advance(context.Background())
		}
		_, err := f.Advance(context.Background())
		require.NoError(t, err)
	}
	t.Fatal("never reached the submit step")
	return "", nil
}

func TestFlow_FullJourneyWithFollowUp(t *testing.T) {
	sub := &stubSubmitter{}
	f := newTestFlow(t, sub, false)

	var events []Event
	f.Subscribe(func(ev Event) { events = append(events, ev) })

	assert.Equal(t, screen.Intro, f.View().Screen)
	require.NoError(t, f.Start())

	v := f.View()
	assert.Equal(t, screen.Form, v.Screen)
	require.NotNil(t, v.Question)
	assert.Equal(t, "memory", v.Question.ID)
	assert.Equal(t, 1, v.Step)
	assert.Equal(t, 4, v.Total)
	assert.Equal(t, LabelNext, v.ButtonLabel)

	require.NoError(t, f.Answer("memory", "  warm light "))
	out, err := walkToSubmit(t, f)
	require.NoError(t, err)
	assert.Equal(t, sequencer.OutcomeSubmitted, out)
	assert.Equal(t, screen.Ending, f.View().Screen)

	assert.ErrorIs(t, f.BeginFollowUp(), ErrWrongScreen)
	require.NoError(t, f.Continue())
	assert.Equal(t, screen.Final, f.View().Screen)

	require.NoError(t, f.BeginFollowUp())
	v = f.View()
	assert.Equal(t, screen.Form, v.Screen)
	assert.True(t, v.FollowUp)
	assert.Equal(t, "wantMore", v.Question.ID)
	assert.Equal(t, LabelSubmit, v.ButtonLabel)

	require.NoError(t, f.Answer("wantMore", "yes"))
	assert.Equal(t, LabelNext, f.View().ButtonLabel)
	_, err = f.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wantMoreDetail", f.View().Question.ID)

	out, err = f.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sequencer.OutcomeSubmitted, out)
	assert.Equal(t, screen.FinalComplete, f.View().Screen)

	assert.Equal(t, []string{"base", "follow_up"}, sub.pools)
	assert.Equal(t, "  warm light ", sub.sent[1]["memory"], "primary answers are kept across the chain")

	var types []string
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, EventScreenChanged)
	assert.Contains(t, types, string(sequencer.EventSubmissionStarted))
	assert.Contains(t, types, string(sequencer.EventSubmissionSucceeded))
}

func TestFlow_FailureReturnsToFormWithMessage(t *testing.T) {
	sub := &stubSubmitter{err: &submission.Error{Kind: submission.KindTransport, Status: 500}}
	f := newTestFlow(t, sub, false)
	require.NoError(t, f.Start())
	require.NoError(t, f.Answer("memory", "blue"))
	before := f.State()

	_, err := walkToSubmit(t, f)
	require.Error(t, err)

	v := f.View()
	assert.Equal(t, screen.Form, v.Screen)
	assert.Equal(t, submission.GenericFailureMessage, v.StatusMessage)
	assert.Equal(t, ToneError, v.StatusTone)
	assert.Equal(t, sequencer.StatusInProgress, v.Status)
	assert.Equal(t, LabelSubmit, v.ButtonLabel)
	assert.Equal(t, before.Answers, f.State().Answers)

	sub.mu.Lock()
	sub.err = nil
	sub.mu.Unlock()
	_, err = f.Advance(context.Background())
	require.NoError(t, err)
	v = f.View()
	assert.Equal(t, screen.Ending, v.Screen)
	assert.Empty(t, v.StatusMessage)
}

func TestFlow_AdvanceBeforeStartStarts(t *testing.T) {
	f := newTestFlow(t, &stubSubmitter{}, false)
	out, err := f.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sequencer.OutcomeStepped, out)
	assert.Equal(t, screen.Form, f.View().Screen)
	assert.Equal(t, 1, f.View().Step)
}

func TestFlow_RetreatAndCanRetreat(t *testing.T) {
	f := newTestFlow(t, &stubSubmitter{}, true)
	require.NoError(t, f.Start())
	assert.False(t, f.View().CanRetreat)
	_, err := f.Advance(context.Background())
	require.NoError(t, err)
	assert.True(t, f.View().CanRetreat)
	require.NoError(t, f.Retreat())
	assert.Equal(t, "memory", f.View().Question.ID)
}

func TestFlow_RestartClearsEverything(t *testing.T) {
	f := newTestFlow(t, &stubSubmitter{}, false)
	require.NoError(t, f.Start())
	require.NoError(t, f.Answer("memory", "x"))
	require.NoError(t, f.Restart())

	v := f.View()
	assert.Equal(t, screen.Intro, v.Screen)
	assert.Equal(t, sequencer.StatusNotStarted, v.Status)
	assert.Empty(t, f.State().Answers)
}

func TestFlow_ViewIsIdempotent(t *testing.T) {
	f := newTestFlow(t, &stubSubmitter{}, false)
	require.NoError(t, f.Start())
	require.NoError(t, f.Answer("memory", "x"))
	assert.Equal(t, f.View(), f.View())
}

func TestFlow_SnapshotRestore(t *testing.T) {
	f := newTestFlow(t, &stubSubmitter{}, false)
	require.NoError(t, f.Start())
	require.NoError(t, f.Answer("stayConnected", "yes"))
	snap := f.Snapshot()
	snap.Screen = screen.Loading
	snap.Sequencer.Status = sequencer.StatusSubmitting

	g := newTestFlow(t, &stubSubmitter{}, false)
	require.NoError(t, g.Restore(snap))
	v := g.View()
	assert.Equal(t, screen.Form, v.Screen)
	assert.Equal(t, sequencer.StatusInProgress, v.Status)
	assert.Equal(t, 5, v.Total)
	assert.Equal(t, "yes", g.State().Answers["stayConnected"])
}

func TestFlow_RestoreUnknownPool(t *testing.T) {
	f := newTestFlow(t, &stubSubmitter{}, false)
	err := f.Restore(Snapshot{Sequencer: sequencer.State{Pool: "gone"}})
	assert.ErrorIs(t, err, questionnaire.ErrUnknownPool)
}

func TestFlow_Unsubscribe(t *testing.T) {
	f := newTestFlow(t, &stubSubmitter{}, false)
	count := 0
	stop := f.Subscribe(func(Event) { count++ })
	require.NoError(t, f.Start())
	seen := count
	stop()
	require.NoError(t, f.Answer("stayConnected", "yes"))
	assert.Equal(t, seen, count)
	assert.Positive(t, seen)
}

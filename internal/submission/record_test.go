package submission

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talmzip/awwwe-feedback-form/internal/questionnaire"
)

func TestBuildRecord_MissingAnswersDefaultEmpty(t *testing.T) {
	pool := questionnaire.Pool{Name: "base", Questions: []questionnaire.Question{
		{ID: "A", Prompt: "a?"},
		{ID: "B", Prompt: "b?"},
	}}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := BuildRecord(nil, pool, questionnaire.Answers{"A": "1"}, now)

	assert.Equal(t, []Entry{
		{ID: "A", Prompt: "a?", Value: "1"},
		{ID: "B", Prompt: "b?", Value: ""},
	}, rec.Answers)
	assert.Equal(t, "base", rec.Pool)
	assert.Equal(t, now, rec.SubmittedAt)
}

func TestBuildRecord_TrimsValues(t *testing.T) {
	pool := questionnaire.Pool{Name: "base", Questions: []questionnaire.Question{{ID: "A"}}}
	rec := BuildRecord(nil, pool, questionnaire.Answers{"A": "  spaced out \n"}, time.Now())
	assert.Equal(t, "spaced out", rec.Answers[0].Value)
}

func TestBuildRecord_FollowUpUsesSentinel(t *testing.T) {
	catalog, err := questionnaire.DefaultCatalog()
	require.NoError(t, err)
	follow, ok := catalog.FollowUp()
	require.True(t, ok)

	answers := questionnaire.Answers{"memory": "blue", "wantMore": "no"}
	rec := BuildRecord(catalog, follow, answers, time.Now())

	ids := make([]string, 0, len(rec.Answers))
	for _, e := range rec.Answers {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"memory", "similarities", "additional", "stayConnected", "email", "wantMore", "wantMoreDetail"}, ids)
	for _, e := range rec.Answers[:5] {
		assert.Equal(t, Sentinel, e.Value, "base column %s", e.ID)
	}
	assert.Equal(t, "no", rec.Answers[5].Value)
	assert.Equal(t, Sentinel, rec.Answers[6].Value, "hidden follow-up question")
}

func TestBuildRecord_ColumnStableAcrossBranches(t *testing.T) {
	catalog, err := questionnaire.DefaultCatalog()
	require.NoError(t, err)
	base := catalog.Primary()

	yes := BuildRecord(catalog, base, questionnaire.Answers{"stayConnected": "yes", "email": "a@b.c"}, time.Now())
	no := BuildRecord(catalog, base, questionnaire.Answers{"stayConnected": "no"}, time.Now())

	require.Len(t, no.Answers, len(yes.Answers))
	for i := range yes.Answers {
		assert.Equal(t, yes.Answers[i].ID, no.Answers[i].ID)
	}
}

func TestRecordPayloadJSON(t *testing.T) {
	rec := Record{
		SubmittedAt: time.Date(2026, 10, 14, 9, 30, 0, 123_000_000, time.FixedZone("x", 3600)),
		Answers:     []Entry{{ID: "A", Prompt: "a?", Value: "1"}},
	}
	data, err := json.Marshal(rec.Payload())
	require.NoError(t, err)
	assert.JSONEq(t, `{"submittedAt":"2026-10-14T08:30:00.123Z","answers":[{"id":"A","prompt":"a?","value":"1"}]}`, string(data))

	empty, err := json.Marshal(Record{}.Payload())
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"answers":[]`)
}

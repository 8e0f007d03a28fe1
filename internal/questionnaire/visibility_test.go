package questionnaire

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

func branchingPool() Pool {
	return Pool{
		Name: "base",
		Questions: []Question{
			{ID: "A", Prompt: "a?", Kind: KindChoice, Options: []Option{{Value: "x"}, {Value: "y"}}},
			{ID: "B", Prompt: "b?", Kind: KindText, When: &Condition{DependsOn: "A", Value: "x"}},
			{ID: "C", Prompt: "c?", Kind: KindText},
		},
	}
}

func ids(qs []Question) []string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.ID)
	}
	return out
}

func TestVisible_BranchOnChoice(t *testing.T) {
	f := NewFilter(logging.New("error"))
	pool := branchingPool()

	answers := Answers{"A": "x"}
	assert.Equal(t, []string{"A", "B", "C"}, ids(f.Visible(pool, answers)))

	answers["B"] = "stale"
	answers["A"] = "y"
	assert.Equal(t, []string{"A", "C"}, ids(f.Visible(pool, answers)))

	removed := f.Prune(pool, answers)
	assert.Equal(t, []string{"B"}, removed)
	assert.False(t, answers.Has("B"))
	assert.Equal(t, "y", answers.Get("A"))
}

func TestVisible_DeterministicAndOrdered(t *testing.T) {
	f := NewFilter(logging.New("error"))
	pool := branchingPool()
	answers := Answers{"A": "x", "C": "c"}

	first := ids(f.Visible(pool, answers))
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ids(f.Visible(pool, answers)))
	}
	assert.Equal(t, pool.IDs(), first)
}

func TestVisible_MalformedConditionFailsClosed(t *testing.T) {
	var buf bytes.Buffer
	f := NewFilter(logging.NewWithWriter("warn", &buf))
	pool := Pool{Name: "p", Questions: []Question{
		{ID: "A", Kind: KindText},
		{ID: "B", Kind: KindText, When: &Condition{DependsOn: "A", Op: "matches", Value: "x"}},
		{ID: "C", Kind: KindText, When: &Condition{Op: OpAnswered}},
	}}

	visible := f.Visible(pool, Answers{"A": "x"})
	assert.Equal(t, []string{"A"}, ids(visible))
	assert.Contains(t, buf.String(), "visibility condition failed")
	assert.Contains(t, buf.String(), `"question_id":"B"`)
}

func TestPrune_Cascades(t *testing.T) {
	f := NewFilter(logging.New("error"))
	pool := Pool{Name: "p", Questions: []Question{
		{ID: "A", Kind: KindText},
		{ID: "B", Kind: KindText, When: &Condition{DependsOn: "A", Value: "x"}},
		{ID: "C", Kind: KindText, When: &Condition{DependsOn: "B", Op: OpAnswered}},
	}}
	answers := Answers{"A": "y", "B": "b", "C": "c", "other": "kept"}

	removed := f.Prune(pool, answers)
	assert.ElementsMatch(t, []string{"B", "C"}, removed)
	assert.Equal(t, Answers{"A": "y", "other": "kept"}, answers)
}

func TestPrune_InvariantNoHiddenKeys(t *testing.T) {
	f := NewFilter(logging.New("error"))
	pool := branchingPool()
	for _, a := range []string{"x", "y", "", "x"} {
		answers := Answers{"A": a, "B": "b", "C": "c"}
		f.Prune(pool, answers)
		visible := map[string]bool{}
		for _, q := range f.Visible(pool, answers) {
			visible[q.ID] = true
		}
		for id := range answers {
			assert.True(t, visible[id], "answer %q kept for hidden question (A=%q)", id, a)
		}
	}
}

func TestConditionOps(t *testing.T) {
	tests := []struct {
		name    string
		cond    Condition
		answers Answers
		want    bool
		wantErr bool
	}{
		{"equals match", Condition{DependsOn: "a", Value: "yes"}, Answers{"a": "yes"}, true, false},
		{"equals unanswered", Condition{DependsOn: "a", Value: ""}, Answers{}, false, false},
		{"not equals", Condition{DependsOn: "a", Op: OpNotEquals, Value: "no"}, Answers{"a": "yes"}, true, false},
		{"not equals unanswered", Condition{DependsOn: "a", Op: OpNotEquals, Value: "no"}, Answers{}, false, false},
		{"one of", Condition{DependsOn: "a", Op: OpOneOf, Values: []string{"x", "y"}}, Answers{"a": "y"}, true, false},
		{"one of empty values", Condition{DependsOn: "a", Op: OpOneOf}, Answers{"a": "y"}, false, true},
		{"answered blank", Condition{DependsOn: "a", Op: OpAnswered}, Answers{"a": "  "}, false, false},
		{"answered", Condition{DependsOn: "a", Op: OpAnswered}, Answers{"a": "hi"}, true, false},
		{"unknown op", Condition{DependsOn: "a", Op: "regex"}, Answers{"a": "hi"}, false, true},
		{"missing dependency", Condition{Value: "x"}, Answers{}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cond.Evaluate(tt.answers)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidCondition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnswersHelpers(t *testing.T) {
	a := Answers{"x": "  hi  "}
	b := a.Clone()
	b["x"] = "changed"
	assert.Equal(t, "  hi  ", a.Get("x"))
	assert.Equal(t, "hi", a.Trimmed("x"))
	assert.Equal(t, "", a.Get("missing"))
	assert.True(t, strings.HasPrefix(b.Get("x"), "changed"))
}

// Package questionnaire holds the declarative question catalog and the
// visibility rules that decide which questions a respondent is shown.
package questionnaire

import "strings"

// Kind identifies how a question collects its answer.
type Kind string

const (
	KindText   Kind = "text"
	KindChoice Kind = "choice"
)

// Option is one selectable value of a choice question.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Question is a single step of the questionnaire. Questions are immutable
// once the catalog is loaded.
type Question struct {
	ID          string     `json:"id" yaml:"id"`
	Prompt      string     `json:"prompt" yaml:"prompt"`
	Helper      string     `json:"helper,omitempty" yaml:"helper"`
	Kind        Kind       `json:"kind" yaml:"kind"`
	Options     []Option   `json:"options,omitempty" yaml:"options"`
	Multiline   bool       `json:"multiline,omitempty" yaml:"multiline"`
	Placeholder string     `json:"placeholder,omitempty" yaml:"placeholder"`
	When        *Condition `json:"when,omitempty" yaml:"when"`
}

// IsChoice reports whether the question is answered by picking an option.
func (q Question) IsChoice() bool {
	return q.Kind == KindChoice
}

// HasOption reports whether value is one of the question's option values.
func (q Question) HasOption(value string) bool {
	for _, opt := range q.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// Pool is a named ordered list of questions activated together.
type Pool struct {
	Name      string     `json:"name" yaml:"name"`
	FollowUp  bool       `json:"follow_up,omitempty" yaml:"follow_up"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Question returns the pool question with the given id.
func (p Pool) Question(id string) (Question, bool) {
	for _, q := range p.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// IDs returns the question ids in pool order.
func (p Pool) IDs() []string {
	ids := make([]string, 0, len(p.Questions))
	for _, q := range p.Questions {
		ids = append(ids, q.ID)
	}
	return ids
}

// Answers maps question ids to the collected value. A missing key means the
// question was never answered.
type Answers map[string]string

// Get returns the stored value, or "" when the question is unanswered.
func (a Answers) Get(id string) string {
	return a[id]
}

// Has reports whether the question has a stored answer.
func (a Answers) Has(id string) bool {
	_, ok := a[id]
	return ok
}

// Clone returns an independent copy.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Trimmed returns the stored value with surrounding whitespace removed.
func (a Answers) Trimmed(id string) string {
	return strings.TrimSpace(a[id])
}

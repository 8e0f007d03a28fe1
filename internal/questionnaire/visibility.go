package questionnaire

import "github.com/talmzip/awwwe-feedback-form/pkg/logging"

// Filter computes the visible subset of a pool for a given answer set.
type Filter struct {
	logger *logging.Logger
}

// NewFilter creates a visibility filter. Condition failures are logged to logger.
func NewFilter(logger *logging.Logger) *Filter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Filter{logger: logger}
}

// IsVisible evaluates a single question. A condition that fails to evaluate
// hides the question.
func (f *Filter) IsVisible(q Question, answers Answers) bool {
	if q.When == nil {
		return true
	}
	ok, err := q.When.Evaluate(answers)
	if err != nil {
		f.logger.Warn("visibility condition failed",
			"question_id", q.ID,
			"depends_on", q.When.DependsOn,
			"error", err,
		)
		return false
	}
	return ok
}

// Visible returns the pool questions that should be presented, in pool order.
func (f *Filter) Visible(pool Pool, answers Answers) []Question {
	visible := make([]Question, 0, len(pool.Questions))
	for _, q := range pool.Questions {
		if f.IsVisible(q, answers) {
			visible = append(visible, q)
		}
	}
	return visible
}

// Prune deletes answers to pool questions that are no longer visible and
// returns the removed ids. It repeats until nothing changes because removing
// one answer can hide questions that depend on it. Answers belonging to other
// pools are left alone.
func (f *Filter) Prune(pool Pool, answers Answers) []string {
	var removed []string
	for {
		changed := false
		for _, q := range pool.Questions {
			if _, ok := answers[q.ID]; !ok {
				continue
			}
			if !f.IsVisible(q, answers) {
				delete(answers, q.ID)
				removed = append(removed, q.ID)
				changed = true
			}
		}
		if !changed {
			return removed
		}
	}
}

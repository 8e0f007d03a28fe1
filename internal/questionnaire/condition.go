package questionnaire

import (
	"fmt"
	"strings"
)

// Op is the comparison a Condition applies to its dependency's answer.
type Op string

const (
	OpEquals    Op = "equals"
	OpNotEquals Op = "not_equals"
	OpOneOf     Op = "one_of"
	OpAnswered  Op = "answered"
)

// Condition gates a question on the answer to an earlier question.
// An empty Op means OpEquals.
type Condition struct {
	DependsOn string   `json:"depends_on" yaml:"depends_on"`
	Op        Op       `json:"op,omitempty" yaml:"op"`
	Value     string   `json:"value,omitempty" yaml:"value"`
	Values    []string `json:"values,omitempty" yaml:"values"`
}

// Evaluate reports whether the condition holds for answers. An error means
// the condition itself is malformed; callers treat the question as hidden.
func (c Condition) Evaluate(answers Answers) (bool, error) {
	if strings.TrimSpace(c.DependsOn) == "" {
		return false, fmt.Errorf("%w: missing depends_on", ErrInvalidCondition)
	}

	value, answered := answers[c.DependsOn]
	switch c.op() {
	case OpEquals:
		return answered && value == c.Value, nil
	case OpNotEquals:
		return answered && value != c.Value, nil
	case OpOneOf:
		if len(c.Values) == 0 {
			return false, fmt.Errorf("%w: one_of on %q has no values", ErrInvalidCondition, c.DependsOn)
		}
		if !answered {
			return false, nil
		}
		for _, v := range c.Values {
			if v == value {
				return true, nil
			}
		}
		return false, nil
	case OpAnswered:
		return answered && strings.TrimSpace(value) != "", nil
	default:
		return false, fmt.Errorf("%w: unsupported op %q", ErrInvalidCondition, c.Op)
	}
}

func (c Condition) op() Op {
	if c.Op == "" {
		return OpEquals
	}
	return c.Op
}

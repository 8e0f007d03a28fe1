package submission

import (
	"strings"
	"time"

	"github.com/talmzip/awwwe-feedback-form/internal/questionnaire"
)

// Sentinel fills columns that a follow-up submission never collected.
const Sentinel = "---"

// isoLayout matches the millisecond ISO-8601 timestamps the sheet expects.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Entry is one answered column.
type Entry struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
	Value  string `json:"value"`
}

// Record is one submission, shaped so every row has the same columns for a
// given pool regardless of the branch the respondent took.
type Record struct {
	SubmittedAt time.Time
	Pool        string
	Answers     []Entry
}

// Payload is the JSON body sent to the logging endpoint.
type Payload struct {
	SubmittedAt string  `json:"submittedAt"`
	Answers     []Entry `json:"answers"`
}

// Payload converts the record to its wire form.
func (r Record) Payload() Payload {
	answers := r.Answers
	if answers == nil {
		answers = []Entry{}
	}
	return Payload{
		SubmittedAt: r.SubmittedAt.UTC().Format(isoLayout),
		Answers:     answers,
	}
}

// BuildRecord maps every question of pool, visible or not, to an entry.
// Primary pools default missing answers to "". A follow-up pool is prefixed
// with the primary pools' columns set to Sentinel, and its own missing
// answers are Sentinel too, so follow-up rows line up after base rows.
func BuildRecord(catalog *questionnaire.Catalog, pool questionnaire.Pool, answers questionnaire.Answers, now time.Time) Record {
	rec := Record{SubmittedAt: now, Pool: pool.Name}

	missing := ""
	if pool.FollowUp {
		missing = Sentinel
		if catalog != nil {
			for _, p := range catalog.PrimaryPools() {
				for _, q := range p.Questions {
					rec.Answers = append(rec.Answers, Entry{ID: q.ID, Prompt: q.Prompt, Value: Sentinel})
				}
			}
		}
	}

	for _, q := range pool.Questions {
		value, ok := answers[q.ID]
		if !ok {
			value = missing
		}
		rec.Answers = append(rec.Answers, Entry{
			ID:     q.ID,
			Prompt: q.Prompt,
			Value:  strings.TrimSpace(value),
		})
	}
	return rec
}

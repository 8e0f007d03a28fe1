// Package sequencer drives a respondent through the visible questions of a
// pool and hands the answers to a Submitter once the last step is passed.
package sequencer

import (
	"context"
	"errors"
	"sync"

	"github.com/talmzip/awwwe-feedback-form/internal/questionnaire"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

// Status is the position of a run in its lifecycle.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusSubmitting Status = "submitting"
	StatusCompleted  Status = "completed"
)

// Outcome reports what Advance did.
type Outcome string

const (
	OutcomeStepped   Outcome = "stepped"
	OutcomeSubmitted Outcome = "submitted"
	OutcomeFailed    Outcome = "failed"
)

// Submitter sends a finished answer set. Implementations must not retry.
type Submitter interface {
	Submit(ctx context.Context, pool questionnaire.Pool, answers questionnaire.Answers) error
}

// State is a copy of the sequencer's mutable state.
type State struct {
	Pool         string                `json:"pool"`
	Cursor       int                   `json:"cursor"`
	Status       Status                `json:"status"`
	HasStarted   bool                  `json:"has_started"`
	IsSubmitting bool                  `json:"is_submitting"`
	HasSubmitted bool                  `json:"has_submitted"`
	LastError    string                `json:"last_error,omitempty"`
	Answers      questionnaire.Answers `json:"answers"`
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithRetreat enables going back one step.
func WithRetreat(allow bool) Option {
	return func(s *Sequencer) { s.allowRetreat = allow }
}

// WithListener registers a listener for sequencer events.
func WithListener(l Listener) Option {
	return func(s *Sequencer) {
		if l != nil {
			s.listeners = append(s.listeners, l)
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Sequencer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Sequencer is a cursor over the visible questions of the active pool.
// It is safe for concurrent use; at most one submission is in flight.
type Sequencer struct {
	mu           sync.Mutex
	pool         questionnaire.Pool
	submitter    Submitter
	filter       *questionnaire.Filter
	listeners    []Listener
	allowRetreat bool
	logger       *logging.Logger

	answers      questionnaire.Answers
	cursor       int
	status       Status
	hasStarted   bool
	hasSubmitted bool
	lastError    string
}

// New creates a sequencer over pool in the NotStarted state.
func New(pool questionnaire.Pool, submitter Submitter, opts ...Option) *Sequencer {
	s := &Sequencer{
		pool:      pool,
		submitter: submitter,
		answers:   questionnaire.Answers{},
		status:    StatusNotStarted,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Component("sequencer")
	s.filter = questionnaire.NewFilter(s.logger)
	return s
}

// AddListener registers l after construction.
func (s *Sequencer) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// AllowsRetreat reports whether Retreat is enabled.
func (s *Sequencer) AllowsRetreat() bool {
	return s.allowRetreat
}

// Start moves a fresh run to InProgress. Starting twice is a no-op.
func (s *Sequencer) Start() error {
	s.mu.Lock()
	if s.hasStarted {
		s.mu.Unlock()
		return nil
	}
	s.hasStarted = true
	s.status = StatusInProgress
	s.filter.Prune(s.pool, s.answers)
	s.clamp()
	ev := s.stepEvent()
	s.mu.Unlock()

	s.emit(ev)
	return nil
}

// Answer records value for question id, prunes answers that became hidden
// and keeps the cursor in range. Hidden questions cannot be answered.
func (s *Sequencer) Answer(id, value string) error {
	s.mu.Lock()
	if err := s.requireInProgress(); err != nil {
		s.mu.Unlock()
		return err
	}
	q, ok := s.pool.Question(id)
	if !ok {
		s.mu.Unlock()
		return ErrUnknownQuestion
	}
	if !s.filter.IsVisible(q, s.answers) {
		s.mu.Unlock()
		return ErrQuestionHidden
	}

	before := visibleIDs(s.filter.Visible(s.pool, s.answers))
	s.answers[id] = value
	if removed := s.filter.Prune(s.pool, s.answers); len(removed) > 0 {
		s.logger.Debug("pruned hidden answers", "pool", s.pool.Name, "question_ids", removed)
	}
	s.clamp()
	after := visibleIDs(s.filter.Visible(s.pool, s.answers))

	var events []Event
	if !equalIDs(before, after) {
		events = append(events, s.stepEvent())
	}
	s.mu.Unlock()

	s.emit(events...)
	return nil
}

// Advance moves to the next visible question, or submits when the cursor is
// on the last one. A pool with no visible questions submits immediately.
// On a failed submission the run returns to InProgress at the same step
// with every answer kept, and the submitter's error is returned.
func (s *Sequencer) Advance(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if err := s.requireInProgress(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.filter.Prune(s.pool, s.answers)
	s.clamp()

	visible := s.filter.Visible(s.pool, s.answers)
	if len(visible) > 0 && s.cursor < len(visible)-1 {
		s.cursor++
		ev := s.stepEvent()
		s.mu.Unlock()
		s.emit(ev)
		return OutcomeStepped, nil
	}

	s.status = StatusSubmitting
	s.lastError = ""
	pool := s.pool
	answers := s.answers.Clone()
	started := s.event(EventSubmissionStarted)
	s.mu.Unlock()

	s.emit(started)
	err := s.submitter.Submit(ctx, pool, answers)

	s.mu.Lock()
	if err != nil {
		s.status = StatusInProgress
		s.lastError = failureMessage(err)
		ev := s.event(EventSubmissionFailed)
		ev.Message = s.lastError
		ev.Err = err
		s.mu.Unlock()

		s.logger.Warn("submission failed", "pool", pool.Name, "error", err)
		s.emit(ev)
		return OutcomeFailed, err
	}
	s.status = StatusCompleted
	s.hasSubmitted = true
	ev := s.event(EventSubmissionSucceeded)
	s.mu.Unlock()

	s.emit(ev)
	return OutcomeSubmitted, nil
}

// Retreat moves back one visible question when retreat is enabled.
func (s *Sequencer) Retreat() error {
	if !s.allowRetreat {
		return ErrRetreatDisabled
	}
	s.mu.Lock()
	if err := s.requireInProgress(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.clamp()
	if s.cursor == 0 {
		s.mu.Unlock()
		return ErrAtFirstStep
	}
	s.cursor--
	ev := s.stepEvent()
	s.mu.Unlock()

	s.emit(ev)
	return nil
}

// Chain starts a new InProgress run over pool, clearing earlier answers to
// that pool while keeping answers collected for other pools.
func (s *Sequencer) Chain(pool questionnaire.Pool) error {
	s.mu.Lock()
	if s.status == StatusSubmitting {
		s.mu.Unlock()
		return ErrSubmissionInFlight
	}
	for _, id := range pool.IDs() {
		delete(s.answers, id)
	}
	s.pool = pool
	s.cursor = 0
	s.status = StatusInProgress
	s.hasStarted = true
	s.hasSubmitted = false
	s.lastError = ""
	s.filter.Prune(s.pool, s.answers)
	s.clamp()
	ev := s.stepEvent()
	s.mu.Unlock()

	s.emit(ev)
	return nil
}

// Restart discards everything and returns to NotStarted over pool.
func (s *Sequencer) Restart(pool questionnaire.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusSubmitting {
		return ErrSubmissionInFlight
	}
	s.pool = pool
	s.answers = questionnaire.Answers{}
	s.cursor = 0
	s.status = StatusNotStarted
	s.hasStarted = false
	s.hasSubmitted = false
	s.lastError = ""
	return nil
}

// Current returns the question under the cursor, or false when the pool has
// no visible questions.
func (s *Sequencer) Current() (questionnaire.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	visible := s.filter.Visible(s.pool, s.answers)
	if len(visible) == 0 || s.cursor >= len(visible) {
		return questionnaire.Question{}, false
	}
	return visible[s.cursor], true
}

// Visible returns the currently visible questions of the active pool.
func (s *Sequencer) Visible() []questionnaire.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Visible(s.pool, s.answers)
}

// Value returns the stored answer used to pre-fill question id.
func (s *Sequencer) Value(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.Get(id)
}

// Pool returns the active pool.
func (s *Sequencer) Pool() questionnaire.Pool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool
}

// State returns a copy of the current state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Pool:         s.pool.Name,
		Cursor:       s.cursor,
		Status:       s.status,
		HasStarted:   s.hasStarted,
		IsSubmitting: s.status == StatusSubmitting,
		HasSubmitted: s.hasSubmitted,
		LastError:    s.lastError,
		Answers:      s.answers.Clone(),
	}
}

// Restore replaces the state with st over pool. A persisted Submitting
// status comes back as InProgress since the request did not survive.
func (s *Sequencer) Restore(pool questionnaire.Pool, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool = pool
	s.answers = st.Answers.Clone()
	if s.answers == nil {
		s.answers = questionnaire.Answers{}
	}
	s.cursor = st.Cursor
	switch st.Status {
	case StatusSubmitting:
		s.status = StatusInProgress
	case "":
		s.status = StatusNotStarted
		if st.HasStarted {
			s.status = StatusInProgress
		}
	default:
		s.status = st.Status
	}
	s.hasStarted = st.HasStarted
	s.hasSubmitted = st.HasSubmitted
	s.lastError = st.LastError
	s.filter.Prune(s.pool, s.answers)
	s.clamp()
}

func (s *Sequencer) requireInProgress() error {
	switch s.status {
	case StatusInProgress:
		return nil
	case StatusNotStarted:
		return ErrNotStarted
	case StatusSubmitting:
		return ErrSubmissionInFlight
	default:
		return ErrNotInProgress
	}
}

// clamp keeps 0 <= cursor < max(1, visible).
func (s *Sequencer) clamp() {
	n := len(s.filter.Visible(s.pool, s.answers))
	if n == 0 || s.cursor < 0 {
		s.cursor = 0
		return
	}
	if s.cursor >= n {
		s.cursor = n - 1
	}
}

func (s *Sequencer) event(t EventType) Event {
	return Event{
		Type:   t,
		Pool:   s.pool.Name,
		Cursor: s.cursor,
		Total:  len(s.filter.Visible(s.pool, s.answers)),
	}
}

func (s *Sequencer) stepEvent() Event {
	ev := s.event(EventStepChanged)
	visible := s.filter.Visible(s.pool, s.answers)
	if s.cursor < len(visible) {
		ev.QuestionID = visible[s.cursor].ID
	}
	return ev
}

func (s *Sequencer) emit(events ...Event) {
	if len(events) == 0 {
		return
	}
	s.mu.Lock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()
	for _, ev := range events {
		for _, l := range listeners {
			l.HandleEvent(ev)
		}
	}
}

type userMessager interface {
	UserMessage() string
}

func failureMessage(err error) string {
	var um userMessager
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return err.Error()
}

func visibleIDs(qs []questionnaire.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Package flow ties a sequencer run to the screen controller and exposes a
// render-ready View of the wizard.
package flow

import (
	"context"
	"fmt"
	"sync"

	"github.com/talmzip/awwwe-feedback-form/internal/observability/metrics"
	"github.com/talmzip/awwwe-feedback-form/internal/questionnaire"
	"github.com/talmzip/awwwe-feedback-form/internal/screen"
	"github.com/talmzip/awwwe-feedback-form/internal/sequencer"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

const (
	LabelNext   = "Next question"
	LabelSubmit = "Submit responses"

	ToneError = "error"

	// EventScreenChanged is emitted alongside the sequencer event types.
	EventScreenChanged = "screen_changed"
)

// Event is what subscribers receive for every sequencer event and screen change.
type Event struct {
	Type       string        `json:"type"`
	Screen     screen.Screen `json:"screen"`
	Pool       string        `json:"pool,omitempty"`
	Cursor     int           `json:"cursor"`
	Total      int           `json:"total"`
	QuestionID string        `json:"question_id,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// Options configures a Flow.
type Options struct {
	AllowRetreat bool
	Logger       *logging.Logger
	Metrics      *metrics.FormMetrics
}

// Flow coordinates one respondent's pass through the catalog.
type Flow struct {
	catalog *questionnaire.Catalog
	seq     *sequencer.Sequencer
	screens *screen.Controller
	logger  *logging.Logger
	metrics *metrics.FormMetrics

	mu          sync.Mutex
	statusMsg   string
	statusTone  string
	subscribers map[int]func(Event)
	nextSub     int
}

// New builds a flow on the intro screen over the catalog's primary pool.
func New(catalog *questionnaire.Catalog, submitter sequencer.Submitter, opts Options) *Flow {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	f := &Flow{
		catalog:     catalog,
		screens:     screen.NewController(),
		logger:      logger.Component("flow"),
		metrics:     opts.Metrics,
		subscribers: make(map[int]func(Event)),
	}
	f.seq = sequencer.New(catalog.Primary(), submitter,
		sequencer.WithRetreat(opts.AllowRetreat),
		sequencer.WithLogger(logger),
		sequencer.WithListener(sequencer.ListenerFunc(f.handleSequencerEvent)),
	)
	f.screens.OnChange(f.handleScreenChange)
	return f
}

// Subscribe registers fn for flow events and returns a function that removes it.
func (f *Flow) Subscribe(fn func(Event)) (unsubscribe func()) {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subscribers[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.subscribers, id)
		f.mu.Unlock()
	}
}

// Start leaves the intro screen and begins the primary pool.
func (f *Flow) Start() error {
	if err := f.seq.Start(); err != nil {
		return err
	}
	if f.screens.Current() == screen.Intro {
		return f.screens.Show(screen.Form)
	}
	return nil
}

// Answer stores value for question id of the active pool.
func (f *Flow) Answer(id, value string) error {
	return f.seq.Answer(id, value)
}

// Advance steps forward or submits. Before Start it behaves like Start.
func (f *Flow) Advance(ctx context.Context) (sequencer.Outcome, error) {
	if st := f.seq.State(); st.Status == sequencer.StatusNotStarted {
		if err := f.Start(); err != nil {
			return "", err
		}
		return sequencer.OutcomeStepped, nil
	}
	return f.seq.Advance(ctx)
}

// Retreat moves back one step when enabled.
func (f *Flow) Retreat() error {
	return f.seq.Retreat()
}

// Continue moves from the ending screen to the follow-up invitation.
func (f *Flow) Continue() error {
	if f.screens.Current() != screen.Ending {
		return ErrWrongScreen
	}
	return f.screens.Show(screen.Final)
}

// BeginFollowUp starts the follow-up pool from the invitation screen. Answers
// to the primary pool are kept.
func (f *Flow) BeginFollowUp() error {
	if f.screens.Current() != screen.Final {
		return ErrWrongScreen
	}
	pool, ok := f.catalog.FollowUp()
	if !ok {
		return ErrNoFollowUp
	}
	if err := f.seq.Chain(pool); err != nil {
		return err
	}
	f.setStatus("", "")
	return f.screens.Show(screen.Form)
}

// Restart clears every answer and returns to the intro screen.
func (f *Flow) Restart() error {
	if err := f.seq.Restart(f.catalog.Primary()); err != nil {
		return err
	}
	f.setStatus("", "")
	if err := f.screens.Show(screen.Intro); err != nil {
		return err
	}
	f.screens.RememberAsFallback()
	return nil
}

// View is the render-ready state of the wizard.
type View struct {
	Screen        screen.Screen           `json:"screen"`
	Pool          string                  `json:"pool"`
	FollowUp      bool                    `json:"follow_up"`
	Status        sequencer.Status        `json:"status"`
	Question      *questionnaire.Question `json:"question,omitempty"`
	Value         string                  `json:"value"`
	ButtonLabel   string                  `json:"button_label"`
	Step          int                     `json:"step"`
	Total         int                     `json:"total"`
	IsSubmitting  bool                    `json:"is_submitting"`
	CanRetreat    bool                    `json:"can_retreat"`
	StatusMessage string                  `json:"status_message,omitempty"`
	StatusTone    string                  `json:"status_tone,omitempty"`
}

// View renders the current state. Calling it twice without a mutation in
// between yields the same View.
func (f *Flow) View() View {
	st := f.seq.State()
	pool := f.seq.Pool()
	visible := f.seq.Visible()

	v := View{
		Screen:       f.screens.Current(),
		Pool:         pool.Name,
		FollowUp:     pool.FollowUp,
		Status:       st.Status,
		Total:        len(visible),
		IsSubmitting: st.IsSubmitting,
		CanRetreat:   f.seq.AllowsRetreat() && st.Status == sequencer.StatusInProgress && st.Cursor > 0,
		ButtonLabel:  LabelNext,
	}
	if len(visible) == 0 || st.Cursor >= len(visible)-1 {
		v.ButtonLabel = LabelSubmit
	}
	if st.Cursor < len(visible) {
		q := visible[st.Cursor]
		v.Question = &q
		v.Value = st.Answers.Get(q.ID)
		v.Step = st.Cursor + 1
	}

	f.mu.Lock()
	v.StatusMessage = f.statusMsg
	v.StatusTone = f.statusTone
	f.mu.Unlock()
	return v
}

// Catalog returns the catalog the flow runs over.
func (f *Flow) Catalog() *questionnaire.Catalog {
	return f.catalog
}

// State returns the sequencer state.
func (f *Flow) State() sequencer.State {
	return f.seq.State()
}

// Snapshot is the persisted form of a flow.
type Snapshot struct {
	Sequencer     sequencer.State `json:"sequencer"`
	Screen        screen.Screen   `json:"screen"`
	Fallback      screen.Screen   `json:"fallback"`
	StatusMessage string          `json:"status_message,omitempty"`
	StatusTone    string          `json:"status_tone,omitempty"`
}

// Snapshot captures the flow for storage.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	msg, tone := f.statusMsg, f.statusTone
	f.mu.Unlock()
	return Snapshot{
		Sequencer:     f.seq.State(),
		Screen:        f.screens.Current(),
		Fallback:      f.screens.Fallback(),
		StatusMessage: msg,
		StatusTone:    tone,
	}
}

// Restore loads a snapshot. A snapshot taken mid-submission lands on the
// fallback screen since the request did not survive.
func (f *Flow) Restore(s Snapshot) error {
	name := s.Sequencer.Pool
	pool := f.catalog.Primary()
	if name != "" {
		p, err := f.catalog.Pool(name)
		if err != nil {
			return fmt.Errorf("flow: restore: %w", err)
		}
		pool = p
	}
	f.seq.Restore(pool, s.Sequencer)

	current := s.Screen
	if current == screen.Loading {
		current = s.Fallback
	}
	f.screens.Restore(current, s.Fallback)
	f.setStatus(s.StatusMessage, s.StatusTone)
	return nil
}

func (f *Flow) handleSequencerEvent(ev sequencer.Event) {
	switch ev.Type {
	case sequencer.EventSubmissionStarted:
		f.setStatus("", "")
		f.screens.RememberAsFallback()
		f.show(screen.Loading)
	case sequencer.EventSubmissionSucceeded:
		next := screen.Ending
		if pool, err := f.catalog.Pool(ev.Pool); err == nil && pool.FollowUp {
			next = screen.FinalComplete
		}
		f.show(next)
	case sequencer.EventSubmissionFailed:
		f.setStatus(ev.Message, ToneError)
		f.show(f.screens.Fallback())
	}

	f.publish(Event{
		Type:       string(ev.Type),
		Screen:     f.screens.Current(),
		Pool:       ev.Pool,
		Cursor:     ev.Cursor,
		Total:      ev.Total,
		QuestionID: ev.QuestionID,
		Message:    ev.Message,
	})
}

func (f *Flow) handleScreenChange(_, to screen.Screen) {
	f.publish(Event{Type: EventScreenChanged, Screen: to})
}

func (f *Flow) show(s screen.Screen) {
	if err := f.screens.Show(s); err != nil {
		f.logger.Error("failed to show screen", "screen", s, "error", err)
	}
}

func (f *Flow) setStatus(msg, tone string) {
	f.mu.Lock()
	f.statusMsg = msg
	f.statusTone = tone
	f.mu.Unlock()
}

func (f *Flow) publish(ev Event) {
	f.metrics.ObserveWizardEvent(ev.Type)
	f.mu.Lock()
	subs := make([]func(Event), 0, len(f.subscribers))
	for _, fn := range f.subscribers {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

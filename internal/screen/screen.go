// Package screen tracks which top-level screen of the wizard is showing.
package screen

import (
	"errors"
	"sync"
)

// Screen names a top-level view.
type Screen string

const (
	Intro         Screen = "intro"
	Form          Screen = "form"
	Loading       Screen = "loading"
	Ending        Screen = "ending"
	Final         Screen = "final"
	FinalComplete Screen = "final_complete"
)

// ErrUnknownScreen is returned by Show for names outside the known set.
var ErrUnknownScreen = errors.New("screen: unknown screen")

// Valid reports whether s is a known screen.
func (s Screen) Valid() bool {
	switch s {
	case Intro, Form, Loading, Ending, Final, FinalComplete:
		return true
	}
	return false
}

// ChangeFunc observes screen transitions.
type ChangeFunc func(from, to Screen)

// Controller holds the current screen, the last non-loading screen and the
// pinned fallback used when a submission fails.
type Controller struct {
	mu        sync.Mutex
	current   Screen
	lastShown Screen
	fallback  Screen
	onChange  []ChangeFunc
}

// NewController starts on the intro screen with Form as fallback.
func NewController() *Controller {
	return &Controller{current: Intro, lastShown: Intro, fallback: Form}
}

// OnChange registers fn to run after every transition.
func (c *Controller) OnChange(fn ChangeFunc) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Current returns the screen being shown.
func (c *Controller) Current() Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// LastShown returns the most recent non-loading screen.
func (c *Controller) LastShown() Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastShown
}

// Show makes s the only visible screen.
func (c *Controller) Show(s Screen) error {
	if !s.Valid() {
		return ErrUnknownScreen
	}
	c.mu.Lock()
	from := c.current
	c.current = s
	if s != Loading {
		c.lastShown = s
	}
	hooks := append([]ChangeFunc(nil), c.onChange...)
	c.mu.Unlock()

	if from != s {
		for _, fn := range hooks {
			fn(from, s)
		}
	}
	return nil
}

// RememberAsFallback pins the last shown screen as the place to return to
// after a failed submission. Intro is never pinned.
func (c *Controller) RememberAsFallback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastShown == Intro || c.lastShown == Loading || c.lastShown == "" {
		c.fallback = Form
		return
	}
	c.fallback = c.lastShown
}

// Fallback returns the pinned fallback screen.
func (c *Controller) Fallback() Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fallback
}

// Restore sets the controller to a persisted position without running hooks.
func (c *Controller) Restore(current, fallback Screen) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !current.Valid() {
		current = Intro
	}
	if !fallback.Valid() || fallback == Intro || fallback == Loading {
		fallback = Form
	}
	c.current = current
	c.lastShown = current
	if current == Loading {
		c.lastShown = fallback
	}
	c.fallback = fallback
}

package lock

import (
	"errors"
	"io"
	"log/slog"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func keys(s string) []Event {
	evs := make([]Event, 0, len(s))
	for _, r := range s {
		evs = append(evs, KeyEvent{Sym: SymChar, Rune: r})
	}
	return evs
}

var (
	enter     = KeyEvent{Sym: SymReturn}
	escape    = KeyEvent{Sym: SymEscape}
	backspace = KeyEvent{Sym: SymBackSpace}
	motion    = PointerEvent{}
)

// ---- Verifier

type fakeVerifier struct {
	want   string
	calls  int
	seen   []string
	closed bool
}

func (v *fakeVerifier) Verify(candidate []byte) bool {
	v.calls++
	v.seen = append(v.seen, string(candidate))
	return string(candidate) == v.want
}

func (v *fakeVerifier) Close() error {
	v.closed = true
	return nil
}

// ---- Blanker

type fakeBlanker struct {
	capable  bool
	blanks   int
	unblanks int
}

func (b *fakeBlanker) Capable() bool { return b.capable }
func (b *fakeBlanker) Blank() error  { b.blanks++; return nil }
func (b *fakeBlanker) Unblank() error {
	b.unblanks++
	return nil
}

// ---- Grabber

var errBusy = errors.New("already grabbed")

type fakeGrabber struct {
	pointerFailures  int // failures before success, -1 for always
	keyboardFailures int

	pointerCalls  int
	keyboardCalls int
	held          bool
	releases      int
	lose          bool
}

func (g *fakeGrabber) GrabPointer() error {
	g.pointerCalls++
	if g.pointerFailures < 0 || g.pointerCalls <= g.pointerFailures {
		return errBusy
	}
	return nil
}

func (g *fakeGrabber) GrabKeyboard() error {
	g.keyboardCalls++
	if g.keyboardFailures < 0 || g.keyboardCalls <= g.keyboardFailures {
		return errBusy
	}
	g.held = true
	return nil
}

func (g *fakeGrabber) KeyboardHeld() bool {
	if g.lose {
		g.lose = false
		g.held = false
	}
	return g.held
}

func (g *fakeGrabber) Release() error {
	g.releases++
	g.held = false
	return nil
}

// ---- Console guard and elevator

type fakeConsole struct {
	acquireErr error
	acquired   bool
	acquires   int
	releases   int
	elevator   *fakeElevator
	elevatedOK bool
}

func (c *fakeConsole) Acquire() error {
	c.acquires++
	if c.elevator != nil {
		c.elevatedOK = c.elevator.inside
	}
	if c.acquireErr != nil {
		return c.acquireErr
	}
	c.acquired = true
	return nil
}

func (c *fakeConsole) Release() error {
	c.releases++
	c.acquired = false
	return nil
}

type fakeElevator struct {
	inside  bool
	scopes  int
	dropped bool
}

func (e *fakeElevator) Do(fn func() error) error {
	e.scopes++
	e.inside = true
	defer func() { e.inside = false }()
	return fn()
}

func (e *fakeElevator) DropPermanently() error {
	e.dropped = true
	return nil
}

// ---- Hint

type fakeHint struct {
	history []bool
}

func (h *fakeHint) SetLocked(locked bool) error {
	h.history = append(h.history, locked)
	return nil
}

// ---- Event source and renderer

// scriptedEvents replays a fixed list of events. Once exhausted it reports
// nothing pending; hook, if set, runs before every Poll.
type scriptedEvents struct {
	events []Event
	polls  int
	hook   func(polls int)
}

func (e *scriptedEvents) Poll(time.Duration) (Event, bool) {
	e.polls++
	if e.hook != nil {
		e.hook(e.polls)
	}
	if len(e.events) == 0 {
		return nil, false
	}
	ev := e.events[0]
	e.events = e.events[1:]
	return ev, true
}

type recordingRenderer struct {
	views     []View
	refreshed bool
}

func (r *recordingRenderer) Render(v View) error {
	r.views = append(r.views, v)
	return nil
}

func (r *recordingRenderer) Refresh() bool {
	changed := r.refreshed
	r.refreshed = false
	return changed
}

func (r *recordingRenderer) last() View {
	if len(r.views) == 0 {
		return View{}
	}
	return r.views[len(r.views)-1]
}

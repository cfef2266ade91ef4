package lock

import (
	"errors"
	"log/slog"
	"time"
)

// DisplayState is what the renderer shows. Only the Machine changes it.
type DisplayState int

const (
	StateLocked DisplayState = iota
	StateWrongPassword
	StateDimmed
)

func (s DisplayState) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateWrongPassword:
		return "wrong-password"
	case StateDimmed:
		return "dimmed"
	}
	return "unknown"
}

// Outcome tells the loop whether to keep running.
type Outcome int

const (
	Continue Outcome = iota
	Unlock
)

// View is the renderer input.
type View struct {
	State  DisplayState
	Masked string
}

// Verifier checks a candidate password against the user's credential.
// A false result is the normal failure path, not an error.
type Verifier interface {
	Verify(candidate []byte) bool
}

// Blanker turns the screen off and on again.
type Blanker interface {
	Capable() bool
	Blank() error
	Unblank() error
}

// MachineOptions configures a Machine.
type MachineOptions struct {
	Mask     string
	Blanker  Blanker
	Throttle *Throttle
	Logger   *slog.Logger
	Now      func() time.Time
}

// Machine is the authentication state machine. It classifies key events,
// edits the password buffer, runs verification on commit and tracks the
// display state.
type Machine struct {
	state    DisplayState
	buf      *PasswordBuffer
	verifier Verifier
	blanker  Blanker
	throttle *Throttle
	mask     string
	log      *slog.Logger
	now      func() time.Time

	dirty   bool
	blanked bool
}

// NewMachine returns a Machine in the Locked state.
func NewMachine(buf *PasswordBuffer, v Verifier, opts MachineOptions) *Machine {
	m := &Machine{
		state:    StateLocked,
		buf:      buf,
		verifier: v,
		blanker:  opts.Blanker,
		throttle: opts.Throttle,
		mask:     opts.Mask,
		log:      opts.Logger,
		now:      opts.Now,
		dirty:    true,
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// State returns the current display state.
func (m *Machine) State() DisplayState {
	return m.state
}

// View returns the renderer input for the current state. The masked text is
// empty while dimmed.
func (m *Machine) View() View {
	v := View{State: m.state}
	if m.state != StateDimmed {
		v.Masked = m.buf.MaskedDisplay(m.mask)
	}
	return v
}

// MarkDirty forces a redraw on the next loop iteration.
func (m *Machine) MarkDirty() {
	m.dirty = true
}

// TakeDirty reports whether a redraw is needed and resets the flag.
func (m *Machine) TakeDirty() bool {
	d := m.dirty
	m.dirty = false
	return d
}

// Discard drops any partially typed password.
func (m *Machine) Discard() {
	if m.buf.Len() > 0 {
		m.buf.Clear()
		m.dirty = true
	}
}

// Handle processes one event.
func (m *Machine) Handle(ev Event) Outcome {
	switch ev := ev.(type) {
	case KeyEvent:
		return m.handleKey(ev)
	case PointerEvent:
		if m.state == StateDimmed {
			m.wake()
		}
	case ResizeEvent:
		m.dirty = true
	}
	return Continue
}

func (m *Machine) handleKey(k KeyEvent) Outcome {
	class := classify(k)

	if m.state == StateDimmed {
		if class == keyEscape {
			m.buf.Clear()
			return Continue
		}
		m.wake()
		return Continue
	}

	switch class {
	case keyPrintable:
		if err := m.buf.AppendRune(normalize(k).Rune); errors.Is(err, ErrOverflow) {
			m.log.Debug("password input dropped", "reason", err)
		}
		m.edit()
	case keyBackspace:
		m.buf.Backspace()
		m.edit()
	case keyCommit:
		return m.commit()
	case keyEscape:
		m.dim()
	}
	return Continue
}

// edit returns to Locked after a buffer change, which also reverts the
// wrong-password background.
func (m *Machine) edit() {
	m.state = StateLocked
	m.dirty = true
}

func (m *Machine) commit() Outcome {
	defer m.buf.Clear()
	m.dirty = true

	now := m.now()
	if !m.throttle.Allowed(now) {
		m.log.Info("verification throttled", "failures", m.throttle.Failures())
		m.state = StateWrongPassword
		return Continue
	}

	if m.verifier.Verify(m.buf.Bytes()) {
		m.throttle.Reset()
		return Unlock
	}

	m.throttle.OnFailure(now)
	m.log.Info("wrong password", "failures", m.throttle.Failures())
	m.state = StateWrongPassword
	return Continue
}

func (m *Machine) dim() {
	m.buf.Clear()
	m.state = StateDimmed
	m.dirty = true

	if m.blanked || m.blanker == nil || !m.blanker.Capable() {
		return
	}
	if err := m.blanker.Blank(); err != nil {
		m.log.Warn("could not blank screen", "error", err)
		return
	}
	m.blanked = true
}

func (m *Machine) wake() {
	if m.blanked {
		if err := m.blanker.Unblank(); err != nil {
			m.log.Warn("could not unblank screen", "error", err)
		}
		m.blanked = false
	}
	m.state = StateLocked
	m.dirty = true
}

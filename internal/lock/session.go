package lock

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// ConsoleGuard stops the kernel from switching away from the active VT.
type ConsoleGuard interface {
	Acquire() error

	// Release must be a no-op when nothing was acquired.
	Release() error
}

// Elevator runs actions with elevated privilege and finally drops it.
type Elevator interface {
	Do(fn func() error) error
	DropPermanently() error
}

// Renderer draws a View on the lock surface.
type Renderer interface {
	Render(v View) error

	// Refresh re-reads external content shown on screen (the name file) and
	// reports whether it changed since the last Render.
	Refresh() bool
}

// LockedHint publishes the lock state to the session manager.
type LockedHint interface {
	SetLocked(locked bool) error
}

// Options is the resolved configuration the session runs with.
type Options struct {
	Mask                       string
	Capacity                   int
	GrabAttempts               int
	GrabRetryInterval          time.Duration
	FatalOnConsoleGuardFailure bool
	PollQuantum                time.Duration
	GrabCheckInterval          time.Duration
	RefreshInterval            time.Duration
	Backoff                    BackoffSpeed
}

// Deps are the collaborators a session drives. Console, Blanker, Elevator and
// Hint are optional.
type Deps struct {
	Events   EventSource
	Renderer Renderer
	Grabber  Grabber
	Verifier Verifier
	Console  ConsoleGuard
	Blanker  Blanker
	Elevator Elevator
	Hint     LockedHint
	Logger   *slog.Logger

	Now   func() time.Time
	Sleep func(time.Duration)
}

const (
	defaultPollQuantum       = time.Millisecond
	defaultGrabCheckInterval = 250 * time.Millisecond
	defaultRefreshInterval   = time.Second
)

// ErrConsoleGuard is returned by Run when the console guard failed and the
// session is configured to treat that as fatal.
var ErrConsoleGuard = errors.New("could not lock console switching")

// Session owns everything held while the workstation is locked: the console
// guard, the input grabs, the credential and the password buffer.
//
// While active is true both the console guard (if acquired) and the keyboard
// grab are held. The session never accepts key input while inactive.
type Session struct {
	opts    Options
	deps    Deps
	log     *slog.Logger
	buf     *PasswordBuffer
	machine *Machine

	hinted bool
	active bool
	closed bool
}

// NewSession allocates the password buffer and state machine.
func NewSession(opts Options, deps Deps) *Session {
	if opts.PollQuantum <= 0 {
		opts.PollQuantum = defaultPollQuantum
	}
	if opts.GrabCheckInterval <= 0 {
		opts.GrabCheckInterval = defaultGrabCheckInterval
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = defaultRefreshInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	buf := NewPasswordBuffer(opts.Capacity)
	return &Session{
		opts: opts,
		deps: deps,
		log:  deps.Logger,
		buf:  buf,
		machine: NewMachine(buf, deps.Verifier, MachineOptions{
			Mask:     opts.Mask,
			Blanker:  deps.Blanker,
			Throttle: NewThrottle(opts.Backoff),
			Logger:   deps.Logger,
			Now:      deps.Now,
		}),
	}
}

// Active reports whether the session holds its grabs and accepts input.
func (s *Session) Active() bool {
	return s.active
}

// Run locks the workstation and returns once the password was verified.
// It returns an error only when the lock could not be established; in that
// case no key event has been processed. Teardown runs before Run returns.
func (s *Session) Run() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.log.Warn("teardown incomplete", "error", err)
		}
	}()

	if err := s.acquireConsole(); err != nil {
		return err
	}

	err := GrabInputs(s.deps.Grabber, GrabPolicy{
		Attempts: s.opts.GrabAttempts,
		Interval: s.opts.GrabRetryInterval,
		Sleep:    s.deps.Sleep,
	})
	if err != nil {
		return err
	}
	s.active = true
	s.log.Debug("input grabbed")

	if s.deps.Hint != nil {
		if err := s.deps.Hint.SetLocked(true); err != nil {
			s.log.Warn("could not set session locked hint", "error", err)
		} else {
			s.hinted = true
		}
	}

	s.loop()
	s.log.Info("unlocked")
	return nil
}

func (s *Session) acquireConsole() error {
	if s.deps.Console == nil {
		return nil
	}
	if err := s.elevated(s.deps.Console.Acquire); err != nil {
		if s.opts.FatalOnConsoleGuardFailure {
			return fmt.Errorf("%w: %w", ErrConsoleGuard, err)
		}
		s.log.Warn("could not lock console switching", "error", err)
	}
	return nil
}

// loop runs until the machine reports Unlock.
func (s *Session) loop() {
	lastCheck := s.deps.Now()
	lastRefresh := lastCheck
	s.machine.MarkDirty()

	for {
		now := s.deps.Now()
		if now.Sub(lastCheck) >= s.opts.GrabCheckInterval {
			lastCheck = now
			s.checkGrab()
		}
		if now.Sub(lastRefresh) >= s.opts.RefreshInterval {
			lastRefresh = now
			if s.deps.Renderer.Refresh() {
				s.machine.MarkDirty()
			}
		}

		if s.machine.TakeDirty() {
			if err := s.deps.Renderer.Render(s.machine.View()); err != nil {
				s.log.Warn("render failed", "error", err)
			}
		}

		ev, ok := s.deps.Events.Poll(s.opts.PollQuantum)
		if !ok {
			continue
		}
		if _, isKey := ev.(KeyEvent); isKey && !s.active {
			continue
		}
		if s.machine.Handle(ev) == Unlock {
			return
		}
	}
}

// checkGrab verifies the keyboard grab and tries once to regain it when lost.
func (s *Session) checkGrab() {
	if s.active {
		if s.deps.Grabber.KeyboardHeld() {
			return
		}
		s.active = false
		s.machine.Discard()
		s.log.Warn("keyboard grab lost, input disabled until regained")
	}

	if err := s.deps.Grabber.GrabKeyboard(); err != nil {
		s.log.Debug("keyboard grab retry failed", "error", err)
		return
	}
	s.active = true
	s.log.Info("keyboard grab regained")
}

func (s *Session) elevated(fn func() error) error {
	if s.deps.Elevator == nil {
		return fn()
	}
	return s.deps.Elevator.Do(fn)
}

// Close releases everything the session holds. It runs at most once; later
// calls return nil.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.active = false

	var err error
	if s.hinted {
		err = errors.Join(err, s.deps.Hint.SetLocked(false))
		s.hinted = false
	}
	if s.deps.Grabber != nil {
		err = errors.Join(err, s.deps.Grabber.Release())
	}
	if s.deps.Console != nil {
		err = errors.Join(err, s.elevated(s.deps.Console.Release))
	}
	if s.deps.Elevator != nil {
		err = errors.Join(err, s.deps.Elevator.DropPermanently())
	}
	s.buf.Destroy()
	if c, ok := s.deps.Verifier.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}

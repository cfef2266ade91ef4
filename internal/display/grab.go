package display

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sys/unix"
)

// ErrNotForeground means another process group owns the terminal.
var ErrNotForeground = errors.New("terminal is owned by another foreground process group")

// tty abstracts the terminal ioctls for tests.
type tty interface {
	ForegroundGroup() (int, error)
	ProcessGroup() int
	SetExclusive(on bool) error
	Exclusive() (bool, error)
}

type unixTTY struct {
	fd int
}

func (t unixTTY) ForegroundGroup() (int, error) { return unix.IoctlGetInt(t.fd, unix.TIOCGPGRP) }
func (t unixTTY) ProcessGroup() int             { return unix.Getpgrp() }

func (t unixTTY) SetExclusive(on bool) error {
	req := uint(unix.TIOCNXCL)
	if on {
		req = unix.TIOCEXCL
	}
	return unix.IoctlSetInt(t.fd, req, 0)
}

func (t unixTTY) Exclusive() (bool, error) {
	v, err := unix.IoctlGetInt(t.fd, unix.TIOCGEXCL)
	return v != 0, err
}

// TerminalGrabber takes the input of the controlling terminal. The keyboard
// is held while this process group is in the foreground and the terminal is
// in exclusive mode; the pointer is held by capturing mouse reporting.
type TerminalGrabber struct {
	mu       sync.Mutex
	screen   tcell.Screen
	tty      tty
	pointer  bool
	keyboard bool

	// exclusive stays set after the keyboard is lost so Release can undo it.
	exclusive bool
}

// NewTerminalGrabber returns a grabber for s using the terminal open on fd.
func NewTerminalGrabber(s *Screen, fd int) *TerminalGrabber {
	return &TerminalGrabber{screen: s.screen, tty: unixTTY{fd: fd}}
}

// GrabPointer captures mouse motion and buttons. A terminal without mouse
// support has no pointer to take, which counts as held.
func (g *TerminalGrabber) GrabPointer() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.screen.HasMouse() {
		g.screen.EnableMouse(tcell.MouseMotionEvents)
	}
	g.screen.HideCursor()
	g.pointer = true
	return nil
}

// GrabKeyboard fails while another process group is in the foreground.
func (g *TerminalGrabber) GrabKeyboard() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.foreground(); err != nil {
		return err
	}
	if err := g.tty.SetExclusive(true); err != nil {
		return fmt.Errorf("setting exclusive mode: %w", err)
	}
	g.exclusive = true
	g.keyboard = true
	return nil
}

func (g *TerminalGrabber) foreground() error {
	fg, err := g.tty.ForegroundGroup()
	if err != nil {
		return fmt.Errorf("reading foreground group: %w", err)
	}
	if fg != g.tty.ProcessGroup() {
		return ErrNotForeground
	}
	return nil
}

// KeyboardHeld re-checks the foreground group and the exclusive flag.
func (g *TerminalGrabber) KeyboardHeld() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.keyboard {
		return false
	}
	if g.foreground() != nil {
		g.keyboard = false
		return false
	}
	// Kernels before 3.8 cannot report the flag; trust the foreground check.
	if excl, err := g.tty.Exclusive(); err == nil && !excl {
		g.keyboard = false
		return false
	}
	return true
}

// Release leaves exclusive mode and stops mouse reporting.
func (g *TerminalGrabber) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var err error
	g.keyboard = false
	if g.exclusive {
		g.exclusive = false
		err = g.tty.SetExclusive(false)
	}
	if g.pointer {
		g.pointer = false
		g.screen.DisableMouse()
	}
	return err
}

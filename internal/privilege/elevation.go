// Package privilege implements scoped elevation for a set-uid root binary.
//
// The process starts with real uid = invoking user and effective uid = 0.
// After the privileged start-up work the effective uid is lowered to the real
// user while uid 0 is parked in the real id, so that Do can raise it again for
// the teardown actions. DropPermanently gives it up for good.
package privilege

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	// ErrNotElevated means the process does not run with effective uid 0.
	ErrNotElevated = errors.New("not running with elevated privilege (is the binary set-uid root?)")

	// ErrDropped means privilege was already dropped permanently.
	ErrDropped = errors.New("privilege dropped permanently")
)

// Error describes a failed privilege transition.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "privilege: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ids abstracts the set*id syscalls for tests.
type ids interface {
	Getuid() int
	Geteuid() int
	Setreuid(ruid, euid int) error
	Setuid(uid int) error
}

type sysIDs struct{}

func (sysIDs) Getuid() int                   { return unix.Getuid() }
func (sysIDs) Geteuid() int                  { return unix.Geteuid() }
func (sysIDs) Setreuid(ruid, euid int) error { return unix.Setreuid(ruid, euid) }
func (sysIDs) Setuid(uid int) error          { return unix.Setuid(uid) }

// Elevation tracks the privilege state of the process.
// Methods are safe for concurrent use, although the lock only runs one goroutine.
type Elevation struct {
	mu      sync.Mutex
	sys     ids
	user    int
	raised  bool
	dropped bool
}

// Acquire checks that the process holds elevated privilege and returns an
// Elevation in the raised state.
func Acquire() (*Elevation, error) {
	return acquire(sysIDs{})
}

func acquire(sys ids) (*Elevation, error) {
	if sys.Geteuid() != 0 {
		return nil, &Error{Op: "acquire", Err: ErrNotElevated}
	}
	return &Elevation{sys: sys, user: sys.Getuid(), raised: true}, nil
}

// User returns the real (invoking) uid.
func (e *Elevation) User() int {
	return e.user
}

// Do runs fn with effective uid 0 and restores the previous state afterwards,
// including when fn panics.
func (e *Elevation) Do(fn func() error) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dropped {
		return &Error{Op: "raise", Err: ErrDropped}
	}
	if e.raised {
		return fn()
	}

	if err := e.sys.Setreuid(e.user, 0); err != nil {
		return &Error{Op: "raise", Err: err}
	}
	e.raised = true
	defer func() {
		if lerr := e.lower(); lerr != nil {
			err = errors.Join(err, lerr)
		}
	}()
	return fn()
}

// Drop lowers the effective uid to the invoking user. Do can raise it again.
func (e *Elevation) Drop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dropped || !e.raised {
		return nil
	}
	return e.lower()
}

func (e *Elevation) lower() error {
	// Park uid 0 in the real id so the scope can be re-entered.
	if err := e.sys.Setreuid(0, e.user); err != nil {
		return &Error{Op: "lower", Err: err}
	}
	e.raised = false
	return nil
}

// DropPermanently sets every uid to the invoking user. It is idempotent.
func (e *Elevation) DropPermanently() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dropped {
		return nil
	}
	if !e.raised {
		// setuid only resets the saved id when the caller is privileged.
		if err := e.sys.Setreuid(e.user, 0); err != nil {
			return &Error{Op: "drop", Err: fmt.Errorf("raise before drop: %w", err)}
		}
		e.raised = true
	}
	if err := e.sys.Setuid(e.user); err != nil {
		return &Error{Op: "drop", Err: err}
	}
	e.raised = false
	e.dropped = true
	return nil
}

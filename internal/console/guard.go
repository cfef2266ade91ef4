// Package console locks virtual terminal switching and blanks the Linux
// console.
package console

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// VT ioctls from <linux/vt.h>.
const (
	vtLockSwitch   = 0x560B
	vtUnlockSwitch = 0x560C
)

// DefaultPath is the system console device.
const DefaultPath = "/dev/console"

// sys abstracts the device calls for tests.
type sys interface {
	Open(path string) (int, error)
	Ioctl(fd int, req uint) error
	Close(fd int) error
}

type unixSys struct{}

func (unixSys) Open(path string) (int, error) {
	return unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
}

func (unixSys) Ioctl(fd int, req uint) error { return unix.IoctlSetInt(fd, req, 0) }
func (unixSys) Close(fd int) error           { return unix.Close(fd) }

// Guard prevents the kernel from switching away from the active VT while
// held. Acquire needs CAP_SYS_TTY_CONFIG; callers run it elevated.
type Guard struct {
	mu   sync.Mutex
	path string
	sys  sys
	fd   int
	held bool
}

// NewGuard returns a guard for the console device at path.
func NewGuard(path string) *Guard {
	if path == "" {
		path = DefaultPath
	}
	return &Guard{path: path, sys: unixSys{}, fd: -1}
}

// Acquire opens the console and locks VT switching. Acquiring a held guard
// is a no-op.
func (g *Guard) Acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held {
		return nil
	}
	fd, err := g.sys.Open(g.path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", g.path, err)
	}
	if err := g.sys.Ioctl(fd, vtLockSwitch); err != nil {
		_ = g.sys.Close(fd)
		return fmt.Errorf("VT_LOCKSWITCH on %s: %w", g.path, err)
	}
	g.fd = fd
	g.held = true
	return nil
}

// Held reports whether VT switching is currently locked by this guard.
func (g *Guard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// Release unlocks VT switching and closes the console. It returns nil when
// nothing is held.
func (g *Guard) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.held {
		return nil
	}
	g.held = false
	err := g.sys.Ioctl(g.fd, vtUnlockSwitch)
	if err != nil {
		err = fmt.Errorf("VT_UNLOCKSWITCH on %s: %w", g.path, err)
	}
	err = errors.Join(err, g.sys.Close(g.fd))
	g.fd = -1
	return err
}

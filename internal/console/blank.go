package console

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// TIOCLINUX subcodes from <linux/tiocl.h>.
const (
	tioclUnblankScreen = 4
	tioclBlankScreen   = 14
	tioclBlankedScreen = 15
)

type tiocl func(fd int, sub byte) (int, error)

func tioclinux(fd int, sub byte) (int, error) {
	arg := sub
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), unix.TIOCLINUX, uintptr(unsafe.Pointer(&arg)))
	if errno != 0 {
		return 0, errno
	}
	return int(r), nil
}

// Blanker powers the Linux VT display down and up again through TIOCLINUX.
// On anything other than a Linux VT it is not capable and does nothing.
type Blanker struct {
	once    sync.Once
	fd      int
	call    tiocl
	capable bool
}

// NewBlanker returns a blanker for the terminal open on fd.
func NewBlanker(fd int) *Blanker {
	return &Blanker{fd: fd, call: tioclinux}
}

// Capable reports whether the terminal answers the blank-state query.
func (b *Blanker) Capable() bool {
	b.once.Do(func() {
		_, err := b.call(b.fd, tioclBlankedScreen)
		b.capable = err == nil
	})
	return b.capable
}

// Blank turns the display off.
func (b *Blanker) Blank() error {
	if !b.Capable() {
		return nil
	}
	_, err := b.call(b.fd, tioclBlankScreen)
	return err
}

// Unblank turns the display back on.
func (b *Blanker) Unblank() error {
	if !b.Capable() {
		return nil
	}
	_, err := b.call(b.fd, tioclUnblankScreen)
	return err
}

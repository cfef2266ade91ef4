package privilege

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// DisableCoreDumps sets the core size limit to zero so a crash cannot write
// the password buffer or the credential to disk.
func DisableCoreDumps() error {
	if err := unix.Setrlimit(unix.RLIMIT_CORE, &unix.Rlimit{Cur: 0, Max: 0}); err != nil {
		return fmt.Errorf("failed to disable core dumps: %w", err)
	}
	return nil
}

// DropSetuid gives up set-uid root for good. It does nothing when the
// process is not elevated.
func DropSetuid() error {
	e, err := Acquire()
	if errors.Is(err, ErrNotElevated) {
		return nil
	}
	if err != nil {
		return err
	}
	return e.DropPermanently()
}

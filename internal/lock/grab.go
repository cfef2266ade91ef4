package lock

import (
	"errors"
	"fmt"
	"time"
)

// ErrGrabFailed is returned when the pointer or keyboard could not be taken
// within the configured number of attempts.
var ErrGrabFailed = errors.New("could not grab input")

// Grabber takes exclusive ownership of the input devices.
type Grabber interface {
	GrabPointer() error
	GrabKeyboard() error

	// KeyboardHeld reports whether the keyboard grab is still in place.
	KeyboardHeld() bool

	// Release gives up both grabs. Safe to call when nothing is held.
	Release() error
}

// GrabPolicy bounds the grab retries.
type GrabPolicy struct {
	Attempts int
	Interval time.Duration

	// Sleep defaults to time.Sleep.
	Sleep func(time.Duration)
}

// GrabInputs grabs the pointer and then, only if that worked, the keyboard.
// The error wraps ErrGrabFailed when either grab ran out of attempts.
func GrabInputs(g Grabber, p GrabPolicy) error {
	if err := retry(p, g.GrabPointer); err != nil {
		return fmt.Errorf("%w: pointer: %w", ErrGrabFailed, err)
	}
	if err := retry(p, g.GrabKeyboard); err != nil {
		return fmt.Errorf("%w: keyboard: %w", ErrGrabFailed, err)
	}
	return nil
}

// retry calls try at most p.Attempts times, sleeping p.Interval between
// failures. It returns the last error.
func retry(p GrabPolicy, try func() error) error {
	attempts := max(p.Attempts, 1)
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			sleep(p.Interval)
		}
		if err = try(); err == nil {
			return nil
		}
	}
	return err
}

package lock

import "time"

// ---- Backoff Presets

// BackoffSpeed names a failed-attempt throttling preset.
type BackoffSpeed string

const (
	BackoffOff     BackoffSpeed = "off"
	BackoffFast    BackoffSpeed = "fast"
	BackoffMedium  BackoffSpeed = "medium"
	BackoffSlow    BackoffSpeed = "slow"
	DefaultBackoff BackoffSpeed = BackoffOff
)

// BackoffPreset defines throttling parameters.
type BackoffPreset struct {
	Free int           // Failures allowed before throttling starts
	Base time.Duration // First delay, doubled on each further failure
	Max  time.Duration // Delay ceiling
}

// BackoffPresets maps preset names to their parameters.
var BackoffPresets = map[BackoffSpeed]BackoffPreset{
	BackoffFast:   {Free: 5, Base: 500 * time.Millisecond, Max: 5 * time.Second},
	BackoffMedium: {Free: 3, Base: time.Second, Max: 30 * time.Second},
	BackoffSlow:   {Free: 3, Base: 2 * time.Second, Max: 5 * time.Minute},
}

// Throttle tracks consecutive failed verifications and the time before which
// the next commit is refused. A nil *Throttle never throttles.
//
// Throttling never blocks the event loop: a refused commit is handled like a
// failed one without calling the verifier.
type Throttle struct {
	preset   BackoffPreset
	failures int
	until    time.Time
}

// NewThrottle returns a throttle for the given preset, or nil for "off" and
// unknown names.
func NewThrottle(speed BackoffSpeed) *Throttle {
	p, ok := BackoffPresets[speed]
	if !ok {
		return nil
	}
	return &Throttle{preset: p}
}

// Allowed reports whether a verification may run at now.
func (t *Throttle) Allowed(now time.Time) bool {
	if t == nil {
		return true
	}
	return !now.Before(t.until)
}

// OnFailure records a failed verification at now.
func (t *Throttle) OnFailure(now time.Time) {
	if t == nil {
		return
	}
	t.failures++
	over := t.failures - t.preset.Free
	if over <= 0 {
		return
	}
	delay := t.preset.Base
	for i := 1; i < over && delay < t.preset.Max; i++ {
		delay *= 2
	}
	if delay > t.preset.Max {
		delay = t.preset.Max
	}
	t.until = now.Add(delay)
}

// Failures returns the number of consecutive failures recorded.
func (t *Throttle) Failures() int {
	if t == nil {
		return 0
	}
	return t.failures
}

// Reset clears the failure count.
func (t *Throttle) Reset() {
	if t == nil {
		return
	}
	t.failures = 0
	t.until = time.Time{}
}

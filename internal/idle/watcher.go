// Package idle starts the locker when the session has been idle long enough
// or when the session manager asks for a lock.
package idle

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultTimeout  = 300 * time.Second
	DefaultInterval = 5 * time.Second
)

// Source reports how long the user has been inactive.
type Source interface {
	IdleFor(now time.Time) (time.Duration, error)
}

// Locker runs the lock and returns once it was unlocked.
type Locker interface {
	Lock(ctx context.Context) error
}

// Watcher polls a Source and runs the Locker.
type Watcher struct {
	Timeout  time.Duration
	Interval time.Duration
	Source   Source
	Locker   Locker

	// Signals, when set, requests an immediate lock.
	Signals <-chan struct{}

	Logger *slog.Logger
	Now    func() time.Time
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	log := w.Logger
	if log == nil {
		log = slog.Default()
	}
	now := w.Now
	if now == nil {
		now = time.Now
	}
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	log.Info("idle watcher started", "timeout", w.Timeout, "poll", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// After a lock the idle time only resets once the user does something,
	// so wait for activity before allowing another trigger.
	waitingForActivity := false

	for {
		select {
		case <-ctx.Done():
			log.Info("idle watcher stopped")
			return nil
		case <-w.Signals:
			log.Info("lock requested by the session manager")
			w.lock(ctx, log)
			waitingForActivity = true
		case <-ticker.C:
			idle, err := w.Source.IdleFor(now())
			if err != nil {
				log.Debug("could not read idle time", "error", err)
				continue
			}
			var trigger bool
			trigger, waitingForActivity = decide(idle, w.Timeout, waitingForActivity)
			if trigger {
				log.Info("session idle, locking", "idle", idle)
				w.lock(ctx, log)
			}
		}
	}
}

func (w *Watcher) lock(ctx context.Context, log *slog.Logger) {
	if err := w.Locker.Lock(ctx); err != nil {
		log.Error("locker exited with error", "error", err)
	}
}

// decide reports whether to lock now and whether to keep waiting for
// activity afterwards.
func decide(idle, timeout time.Duration, waiting bool) (trigger, stillWaiting bool) {
	if waiting {
		return false, idle >= timeout
	}
	if idle >= timeout {
		return true, true
	}
	return false, false
}

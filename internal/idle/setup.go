package idle

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"vtlock/internal/logind"
)

// Options selects how the watcher runs the locker.
type Options struct {
	Timeout  time.Duration
	Interval time.Duration

	// LockerPath and LockerArgs start the lock.
	LockerPath string
	LockerArgs []string

	// NoLogind skips the logind idle hint and Lock signal.
	NoLogind bool

	Logger *slog.Logger
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a watcher for the current environment. Inside tmux the client
// activity is the idle source and the lock opens in a popup. Otherwise logind
// provides the idle hint. In both cases logind's Lock signal locks at once.
// The returned closer releases the logind connection.
func New(opts Options) (*Watcher, io.Closer, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	w := &Watcher{
		Timeout:  opts.Timeout,
		Interval: opts.Interval,
		Logger:   log,
	}

	var session *logind.Session
	if !opts.NoLogind {
		s, err := logind.Connect(os.Getenv("XDG_SESSION_ID"))
		if err != nil {
			log.Warn("logind unavailable", "error", err)
		} else {
			session = s
		}
	}

	switch {
	case InTmux():
		w.Source = TmuxSource{}
		w.Locker = TmuxLocker{Path: opts.LockerPath, Args: opts.LockerArgs}
	case session != nil:
		w.Source = session
		w.Locker = ExecLocker{Path: opts.LockerPath, Args: opts.LockerArgs}
	default:
		return nil, nil, errors.New("no idle source: not inside tmux and logind is unavailable")
	}

	if session == nil {
		return w, nopCloser{}, nil
	}
	signals, err := session.LockSignals()
	if err != nil {
		session.Close()
		return nil, nil, fmt.Errorf("subscribing to lock requests: %w", err)
	}
	w.Signals = signals
	return w, session, nil
}

// LockNow runs the locker once the way New would.
func LockNow(opts Options) Locker {
	if InTmux() {
		return TmuxLocker{Path: opts.LockerPath, Args: opts.LockerArgs}
	}
	return ExecLocker{Path: opts.LockerPath, Args: opts.LockerArgs}
}

// Package logind talks to systemd-logind about the current session: the
// locked hint, the idle hint and the Lock signal.
package logind

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	dest         = "org.freedesktop.login1"
	managerPath  = "/org/freedesktop/login1"
	managerIface = "org.freedesktop.login1.Manager"
	sessionIface = "org.freedesktop.login1.Session"
)

// Session is the logind session vtlock runs in.
type Session struct {
	conn *dbus.Conn
	obj  dbus.BusObject

	mu        sync.Mutex
	lockMatch bool
	closed    bool
	signals   chan *dbus.Signal
	done      chan struct{}
}

// Connect finds the session by id (usually $XDG_SESSION_ID) or, when id is
// empty, by the pid of this process.
func Connect(id string) (*Session, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}

	path, err := findSession(conn, id)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Session{
		conn: conn,
		obj:  conn.Object(dest, path),
		done: make(chan struct{}),
	}, nil
}

func findSession(conn *dbus.Conn, id string) (dbus.ObjectPath, error) {
	manager := conn.Object(dest, managerPath)
	if id == "" {
		var path dbus.ObjectPath
		err := manager.Call(managerIface+".GetSessionByPID", 0, uint32(os.Getpid())).Store(&path)
		if err != nil {
			return "", fmt.Errorf("looking up session of pid %d: %w", os.Getpid(), err)
		}
		return path, nil
	}

	var sessions []interface{}
	if err := manager.Call(managerIface+".ListSessions", 0).Store(&sessions); err != nil {
		return "", fmt.Errorf("listing sessions: %w", err)
	}
	return matchSession(sessions, id)
}

// matchSession picks the object path of id out of a ListSessions reply
// (id, uid, user, seat, path).
func matchSession(sessions []interface{}, id string) (dbus.ObjectPath, error) {
	for i, entry := range sessions {
		fields, ok := entry.([]interface{})
		if !ok || len(fields) < 5 {
			return "", fmt.Errorf("session %d has an unexpected shape: %+v", i, entry)
		}
		if sid, _ := fields[0].(string); sid != id {
			continue
		}
		path, ok := fields[4].(dbus.ObjectPath)
		if !ok {
			return "", fmt.Errorf("session %d[4] is not an ObjectPath: %+v", i, fields[4])
		}
		return path, nil
	}
	return "", fmt.Errorf("session %q not found", id)
}

// SetLocked sets the LockedHint of the session.
func (s *Session) SetLocked(locked bool) error {
	if err := s.obj.Call(sessionIface+".SetLockedHint", 0, locked).Err; err != nil {
		return fmt.Errorf("could not set locked hint: %w", err)
	}
	return nil
}

// IdleFor returns how long the session has been idle according to logind,
// or zero when it is not idle.
func (s *Session) IdleFor(now time.Time) (time.Duration, error) {
	hint, err := s.obj.GetProperty(sessionIface + ".IdleHint")
	if err != nil {
		return 0, fmt.Errorf("could not get idle hint: %w", err)
	}
	since, err := s.obj.GetProperty(sessionIface + ".IdleSinceHint")
	if err != nil {
		return 0, fmt.Errorf("could not get idle since hint: %w", err)
	}
	idle, _ := hint.Value().(bool)
	usec, _ := since.Value().(uint64)
	return idleDuration(idle, usec, now), nil
}

func idleDuration(idle bool, sinceUsec uint64, now time.Time) time.Duration {
	if !idle || sinceUsec == 0 {
		return 0
	}
	return max(now.Sub(time.UnixMicro(int64(sinceUsec))), 0)
}

// LockSignals delivers the session's Lock signal (loginctl lock-session).
// Delivery never blocks; a signal arriving while the previous one is still
// pending is dropped.
func (s *Session) LockSignals() (<-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lockMatch {
		return nil, errors.New("lock signals already subscribed")
	}
	if err := s.conn.AddMatchSignal(s.lockMatchOptions()...); err != nil {
		return nil, fmt.Errorf("failed to register Dbus Lock signal: %w", err)
	}
	s.lockMatch = true

	out := make(chan struct{}, 1)
	s.signals = make(chan *dbus.Signal, 4)
	s.conn.Signal(s.signals)
	go func() {
		for {
			select {
			case <-s.done:
				return
			case sig := <-s.signals:
				if sig == nil || sig.Path != s.obj.Path() || sig.Name != sessionIface+".Lock" {
					continue
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (s *Session) lockMatchOptions() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchObjectPath(s.obj.Path()),
		dbus.WithMatchInterface(sessionIface),
		dbus.WithMatchSender(dest),
		dbus.WithMatchMember("Lock"),
	}
}

// Close removes the signal match and closes the bus connection. Later calls
// return nil.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.lockMatch {
		err = errors.Join(err, s.conn.RemoveMatchSignal(s.lockMatchOptions()...))
		s.conn.RemoveSignal(s.signals)
		s.lockMatch = false
	}
	close(s.done)
	return errors.Join(err, s.conn.Close())
}

package idle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	const timeout = 10 * time.Second

	tests := []struct {
		name        string
		idle        time.Duration
		waiting     bool
		wantTrigger bool
		wantWaiting bool
	}{
		{"active", time.Second, false, false, false},
		{"reaches timeout", timeout, false, true, true},
		{"still idle after the lock", time.Minute, true, false, true},
		{"activity ends waiting", time.Second, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, waiting := decide(tt.idle, timeout, tt.waiting)
			assert.Equal(t, tt.wantTrigger, trigger)
			assert.Equal(t, tt.wantWaiting, waiting)
		})
	}
}

type scriptedSource struct {
	mu    sync.Mutex
	idles []time.Duration
}

func (s *scriptedSource) IdleFor(time.Time) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.idles) == 0 {
		return 0, errors.New("exhausted")
	}
	d := s.idles[0]
	s.idles = s.idles[1:]
	return d, nil
}

type countingLocker struct {
	mu    sync.Mutex
	locks int
}

func (l *countingLocker) Lock(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locks++
	return nil
}

func (l *countingLocker) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locks
}

func TestWatcher_Run(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("locks once per idle period", func(t *testing.T) {
		src := &scriptedSource{idles: []time.Duration{
			time.Second, time.Minute, time.Minute, 0, time.Minute,
		}}
		locker := &countingLocker{}
		w := &Watcher{Timeout: 30 * time.Second, Interval: time.Millisecond, Source: src, Locker: locker, Logger: quiet}

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		require.NoError(t, w.Run(ctx))

		assert.Equal(t, 2, locker.count())
	})

	t.Run("lock signal", func(t *testing.T) {
		signals := make(chan struct{}, 1)
		signals <- struct{}{}
		locker := &countingLocker{}
		w := &Watcher{Timeout: time.Hour, Interval: time.Hour, Source: &scriptedSource{}, Locker: locker, Signals: signals, Logger: quiet}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error)
		go func() { done <- w.Run(ctx) }()

		require.Eventually(t, func() bool { return locker.count() == 1 }, time.Second, time.Millisecond)
		cancel()
		require.NoError(t, <-done)
	})
}

func TestParseActivity(t *testing.T) {
	now := time.Unix(1000, 0)

	d, err := parseActivity("940\n", now)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	d, err = parseActivity("2000", now)
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = parseActivity("", now)
	assert.Error(t, err)
	_, err = parseActivity("soon", now)
	assert.Error(t, err)
}

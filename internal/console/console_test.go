package console

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSys struct {
	openErr  error
	ioctlErr map[uint]error
	ioctls   []uint
	opened   int
	closed   int
}

func (f *fakeSys) Open(string) (int, error) {
	if f.openErr != nil {
		return -1, f.openErr
	}
	f.opened++
	return 7, nil
}

func (f *fakeSys) Ioctl(fd int, req uint) error {
	f.ioctls = append(f.ioctls, req)
	return f.ioctlErr[req]
}

func (f *fakeSys) Close(int) error {
	f.closed++
	return nil
}

func newTestGuard(s *fakeSys) *Guard {
	g := NewGuard("")
	g.sys = s
	return g
}

func TestGuard(t *testing.T) {
	t.Run("acquire and release", func(t *testing.T) {
		s := &fakeSys{}
		g := newTestGuard(s)

		require.NoError(t, g.Acquire())
		assert.True(t, g.Held())
		require.NoError(t, g.Acquire(), "second acquire is a no-op")
		assert.Equal(t, 1, s.opened)

		require.NoError(t, g.Release())
		assert.False(t, g.Held())
		assert.Equal(t, []uint{vtLockSwitch, vtUnlockSwitch}, s.ioctls)
		assert.Equal(t, 1, s.closed)
	})

	t.Run("release without acquire", func(t *testing.T) {
		s := &fakeSys{}
		g := newTestGuard(s)

		require.NoError(t, g.Release())
		require.NoError(t, g.Release())
		assert.Empty(t, s.ioctls)
		assert.Zero(t, s.closed)
	})

	t.Run("open failure", func(t *testing.T) {
		s := &fakeSys{openErr: errors.New("EACCES")}
		g := newTestGuard(s)

		assert.Error(t, g.Acquire())
		assert.False(t, g.Held())
		require.NoError(t, g.Release())
	})

	t.Run("lock failure closes the device", func(t *testing.T) {
		s := &fakeSys{ioctlErr: map[uint]error{vtLockSwitch: errors.New("EPERM")}}
		g := newTestGuard(s)

		assert.Error(t, g.Acquire())
		assert.False(t, g.Held())
		assert.Equal(t, 1, s.closed)
		require.NoError(t, g.Release())
	})
}

func TestBlanker(t *testing.T) {
	t.Run("linux vt", func(t *testing.T) {
		var subs []byte
		b := NewBlanker(3)
		b.call = func(fd int, sub byte) (int, error) {
			subs = append(subs, sub)
			return 0, nil
		}

		assert.True(t, b.Capable())
		require.NoError(t, b.Blank())
		require.NoError(t, b.Unblank())
		assert.Equal(t, []byte{tioclBlankedScreen, tioclBlankScreen, tioclUnblankScreen}, subs)
	})

	t.Run("not a vt", func(t *testing.T) {
		calls := 0
		b := NewBlanker(3)
		b.call = func(int, byte) (int, error) {
			calls++
			return 0, errors.New("ENOTTY")
		}

		assert.False(t, b.Capable())
		require.NoError(t, b.Blank())
		require.NoError(t, b.Unblank())
		assert.Equal(t, 1, calls, "capability probed once")
	})
}

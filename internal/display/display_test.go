package display

import (
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vtlock/internal/lock"
	"vtlock/internal/render"
)

func newSimScreen(t *testing.T) (*Screen, tcell.SimulationScreen) {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	font, err := ParseFont("bold")
	require.NoError(t, err)
	s, err := newScreen(sim, font)
	require.NoError(t, err)
	sim.SetSize(20, 6)
	t.Cleanup(s.Close)
	return s, sim
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		ev   tcell.Event
		want lock.Event
	}{
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), lock.KeyEvent{Sym: lock.SymReturn}},
		{"backspace", tcell.NewEventKey(tcell.KeyBackspace, 0, tcell.ModNone), lock.KeyEvent{Sym: lock.SymBackSpace}},
		{"backspace2", tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone), lock.KeyEvent{Sym: lock.SymBackSpace}},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), lock.KeyEvent{Sym: lock.SymEscape}},
		{"rune", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), lock.KeyEvent{Sym: lock.SymChar, Rune: 'q'}},
		{"shifted rune", tcell.NewEventKey(tcell.KeyRune, 'Q', tcell.ModShift), lock.KeyEvent{Sym: lock.SymChar, Rune: 'Q'}},
		{"alt rune", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModAlt), lock.KeyEvent{Sym: lock.SymFunction}},
		{"f1", tcell.NewEventKey(tcell.KeyF1, 0, tcell.ModNone), lock.KeyEvent{Sym: lock.SymFunction}},
		{"arrow", tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), lock.KeyEvent{Sym: lock.SymFunction}},
		{"mouse", tcell.NewEventMouse(1, 1, tcell.ButtonNone, tcell.ModNone), lock.PointerEvent{}},
		{"resize", tcell.NewEventResize(10, 10), lock.ResizeEvent{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := translate(tt.ev)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("interrupt is dropped", func(t *testing.T) {
		_, ok := translate(tcell.NewEventInterrupt(nil))
		assert.False(t, ok)
	})
}

func TestParseFont(t *testing.T) {
	tests := []struct {
		desc    string
		wantErr bool
		check   func(t *testing.T, s tcell.Style)
	}{
		{desc: "", check: func(t *testing.T, s tcell.Style) {
			_, _, attr := s.Decompose()
			assert.NotZero(t, attr&tcell.AttrBold)
		}},
		{desc: "plain,fg=yellow", check: func(t *testing.T, s tcell.Style) {
			fg, _, attr := s.Decompose()
			assert.Equal(t, tcell.ColorYellow, fg)
			assert.Equal(t, tcell.AttrNone, attr)
		}},
		{desc: "bold, underline", check: func(t *testing.T, s tcell.Style) {
			_, _, attr := s.Decompose()
			assert.NotZero(t, attr&tcell.AttrBold)
			assert.NotZero(t, attr&tcell.AttrUnderline)
		}},
		{desc: "fg=#ff8800", check: func(t *testing.T, s tcell.Style) {
			fg, _, _ := s.Decompose()
			assert.Equal(t, tcell.NewRGBColor(0xff, 0x88, 0x00), fg)
		}},
		{desc: "-misc-fixed-*", wantErr: true},
		{desc: "fg=notacolor", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			s, err := ParseFont(tt.desc)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrFont)
				return
			}
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestScreen_Poll(t *testing.T) {
	s, sim := newSimScreen(t)

	_, ok := s.Poll(time.Millisecond)
	assert.False(t, ok, "nothing queued")

	sim.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	var got lock.Event
	require.Eventually(t, func() bool {
		ev, ok := s.Poll(5 * time.Millisecond)
		if ok {
			got = ev
		}
		return ok && got != (lock.ResizeEvent{})
	}, time.Second, time.Millisecond)
	assert.Equal(t, lock.KeyEvent{Sym: lock.SymChar, Rune: 'x'}, got)
}

func TestScreen_Surface(t *testing.T) {
	s, sim := newSimScreen(t)

	t.Run("solid fill and text", func(t *testing.T) {
		s.Fill(render.Background{Color: render.OrangeRed})
		s.DrawText(2, 1, "hi")
		s.DrawLine(0, 2, 3)
		s.DrawText(18, 0, "long")
		s.DrawText(0, 9, "off")
		require.NoError(t, s.Flush())

		r, _, style, _ := sim.GetContent(2, 1)
		assert.Equal(t, 'h', r)
		fg, bg, attr := style.Decompose()
		assert.Equal(t, tcell.ColorWhite, fg)
		assert.Equal(t, tcell.NewRGBColor(0xff, 0x45, 0x00), bg, "text keeps the background")
		assert.NotZero(t, attr&tcell.AttrBold)

		r, _, _, _ = sim.GetContent(2, 2)
		assert.Equal(t, '─', r)
		r, _, _, _ = sim.GetContent(3, 2)
		assert.Equal(t, ' ', r)

		r, _, _, _ = sim.GetContent(19, 0)
		assert.Equal(t, 'o', r, "clipped at the right edge")
	})

	t.Run("image is tiled in half blocks", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 1, 2))
		img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})
		img.Set(0, 1, color.RGBA{B: 0xff, A: 0xff})

		s.Fill(render.Background{Image: img})
		require.NoError(t, s.Flush())

		for _, pos := range [][2]int{{0, 0}, {7, 3}} {
			r, _, style, _ := sim.GetContent(pos[0], pos[1])
			assert.Equal(t, '▀', r)
			fg, bg, _ := style.Decompose()
			assert.Equal(t, tcell.NewRGBColor(0xff, 0, 0), fg)
			assert.Equal(t, tcell.NewRGBColor(0, 0, 0xff), bg)
		}
	})
}

type fakeTTY struct {
	fg, pgrp  int
	excl      bool
	exclErr   error
	setCalls  []bool
	noExclGet bool
}

func (f *fakeTTY) ForegroundGroup() (int, error) { return f.fg, nil }
func (f *fakeTTY) ProcessGroup() int             { return f.pgrp }

func (f *fakeTTY) SetExclusive(on bool) error {
	f.setCalls = append(f.setCalls, on)
	if f.exclErr != nil {
		return f.exclErr
	}
	f.excl = on
	return nil
}

func (f *fakeTTY) Exclusive() (bool, error) {
	if f.noExclGet {
		return false, errors.New("ENOTTY")
	}
	return f.excl, nil
}

func TestTerminalGrabber(t *testing.T) {
	newGrabber := func(t *testing.T, tty *fakeTTY) *TerminalGrabber {
		s, _ := newSimScreen(t)
		return &TerminalGrabber{screen: s.screen, tty: tty}
	}

	t.Run("grab and release", func(t *testing.T) {
		tty := &fakeTTY{fg: 42, pgrp: 42}
		g := newGrabber(t, tty)

		require.NoError(t, g.GrabPointer())
		require.NoError(t, g.GrabKeyboard())
		assert.True(t, g.KeyboardHeld())
		assert.True(t, tty.excl)

		require.NoError(t, g.Release())
		assert.False(t, tty.excl)
		assert.False(t, g.KeyboardHeld())
		require.NoError(t, g.Release(), "release twice")
		assert.Equal(t, []bool{true, false}, tty.setCalls)
	})

	t.Run("foreign foreground group", func(t *testing.T) {
		tty := &fakeTTY{fg: 7, pgrp: 42}
		g := newGrabber(t, tty)

		assert.ErrorIs(t, g.GrabKeyboard(), ErrNotForeground)
		assert.False(t, g.KeyboardHeld())
		assert.Empty(t, tty.setCalls)
	})

	t.Run("lost when another group takes the terminal", func(t *testing.T) {
		tty := &fakeTTY{fg: 42, pgrp: 42}
		g := newGrabber(t, tty)
		require.NoError(t, g.GrabKeyboard())

		tty.fg = 7
		assert.False(t, g.KeyboardHeld())

		require.NoError(t, g.Release())
		assert.False(t, tty.excl, "exclusive mode undone after a loss")
	})

	t.Run("lost when exclusive mode is cleared", func(t *testing.T) {
		tty := &fakeTTY{fg: 42, pgrp: 42}
		g := newGrabber(t, tty)
		require.NoError(t, g.GrabKeyboard())

		tty.excl = false
		assert.False(t, g.KeyboardHeld())
	})

	t.Run("old kernels", func(t *testing.T) {
		tty := &fakeTTY{fg: 42, pgrp: 42, noExclGet: true}
		g := newGrabber(t, tty)
		require.NoError(t, g.GrabKeyboard())
		assert.True(t, g.KeyboardHeld())
	})
}

// Package display puts the lock on the controlling terminal through tcell.
// The Screen is both the drawable and the event source of the lock session.
package display

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"vtlock/internal/lock"
	"vtlock/internal/render"
)

// ErrFont is returned when the font descriptor cannot be resolved.
var ErrFont = errors.New("could not resolve font")

// Options configures the screen.
type Options struct {
	// Font is a comma separated style descriptor, e.g. "bold,fg=white".
	Font string
}

// Screen is a full-screen tcell surface.
type Screen struct {
	screen tcell.Screen
	font   tcell.Style
	events chan tcell.Event
}

// Open initializes the terminal. Nothing is touched when the font descriptor
// is invalid.
func Open(opts Options) (*Screen, error) {
	font, err := ParseFont(opts.Font)
	if err != nil {
		return nil, err
	}
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("creating screen: %w", err)
	}
	return newScreen(screen, font)
}

func newScreen(screen tcell.Screen, font tcell.Style) (*Screen, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("initializing screen: %w", err)
	}
	screen.HideCursor()
	screen.Clear()

	s := &Screen{
		screen: screen,
		font:   font,
		events: make(chan tcell.Event, 10),
	}
	go s.pollEvents()
	return s, nil
}

// Close restores the terminal. The event reader exits with it.
func (s *Screen) Close() {
	s.screen.Fini()
}

func (s *Screen) pollEvents() {
	for {
		ev := s.screen.PollEvent()
		if ev == nil {
			close(s.events)
			return
		}
		s.events <- ev
	}
}

// Poll waits at most timeout for an event the lock understands.
func (s *Screen) Poll(timeout time.Duration) (lock.Event, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				return nil, false
			}
			if _, resized := ev.(*tcell.EventResize); resized {
				s.screen.Sync()
			}
			if le, ok := translate(ev); ok {
				return le, true
			}
		case <-timer.C:
			return nil, false
		}
	}
}

// ---- Surface

// Size returns the terminal size in cells.
func (s *Screen) Size() (int, int) {
	return s.screen.Size()
}

// Fill paints the background. Images are drawn with upper half blocks, two
// pixels per cell, and tiled when smaller than the terminal.
func (s *Screen) Fill(bg render.Background) {
	w, h := s.screen.Size()
	if bg.Image == nil {
		c := bg.Color
		if c == nil {
			c = render.Black
		}
		s.screen.Fill(' ', tcell.StyleDefault.Background(toColor(c)))
		return
	}

	b := bg.Image.Bounds()
	if b.Empty() {
		s.screen.Fill(' ', tcell.StyleDefault.Background(tcell.ColorBlack))
		return
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			top := pixel(bg.Image, b, x, 2*y)
			bottom := pixel(bg.Image, b, x, 2*y+1)
			style := tcell.StyleDefault.Foreground(top).Background(bottom)
			s.screen.SetContent(x, y, '▀', nil, style)
		}
	}
}

func pixel(img image.Image, b image.Rectangle, x, y int) tcell.Color {
	return toColor(img.At(b.Min.X+x%b.Dx(), b.Min.Y+y%b.Dy()))
}

func toColor(c color.Color) tcell.Color {
	r, g, b, _ := c.RGBA()
	return tcell.NewRGBColor(int32(r>>8), int32(g>>8), int32(b>>8))
}

// DrawText writes text at (x, y) in the font style, keeping the background
// of each cell. Cells outside the surface are skipped.
func (s *Screen) DrawText(x, y int, text string) {
	w, h := s.screen.Size()
	if y < 0 || y >= h {
		return
	}
	for _, r := range text {
		if x >= w {
			return
		}
		if x >= 0 {
			s.screen.SetContent(x, y, r, nil, s.cellStyle(x, y))
		}
		x++
	}
}

// DrawLine draws a horizontal line of length cells starting at (x, y).
func (s *Screen) DrawLine(x, y, length int) {
	s.DrawText(x, y, strings.Repeat("─", max(length, 0)))
}

func (s *Screen) cellStyle(x, y int) tcell.Style {
	_, _, style, _ := s.screen.GetContent(x, y)
	_, bg, _ := style.Decompose()
	return s.font.Background(bg)
}

// Flush shows the pending changes.
func (s *Screen) Flush() error {
	s.screen.Show()
	return nil
}

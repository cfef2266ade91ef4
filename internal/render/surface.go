// Package render draws the lock view: the user name, a separator line and the
// masked password over a background that reflects the lock state.
package render

import (
	"image"
	"image/color"
)

// Colors of the built-in backgrounds.
var (
	Black     = color.RGBA{A: 0xff}
	OrangeRed = color.RGBA{R: 0xff, G: 0x45, A: 0xff}
)

// Background is a solid color, or an image tiled over the surface when Image
// is set.
type Background struct {
	Color color.Color
	Image image.Image
}

// Surface is the drawable the lock is shown on. Coordinates are cells.
type Surface interface {
	Size() (width, height int)
	Fill(bg Background)
	DrawText(x, y int, text string)
	DrawLine(x, y, length int)
	Flush() error
}

package render

import "unicode/utf8"

// Coord is an optional coordinate. The zero value means "use the default".
type Coord struct {
	Value int
	Set   bool
}

// At returns a coordinate fixed at v.
func At(v int) Coord { return Coord{Value: v, Set: true} }

// or resolves c against the global override and the computed default.
func (c Coord) or(global Coord, def int) int {
	switch {
	case c.Set:
		return c.Value
	case global.Set:
		return global.Value
	}
	return def
}

// Point is an optional position of one field.
type Point struct {
	X, Y Coord
}

// Layout places the fields. Per-field positions win over X and Y, which win
// over the centred defaults. The shifts apply to every field.
type Layout struct {
	X, Y Coord

	Name     Point
	Line     Point
	Password Point

	XShift int
	YShift int

	// LineLength of zero means a quarter of the width.
	LineLength int

	HideName     bool
	HideLine     bool
	HidePassword bool
}

type placement struct {
	x, y, n int
}

// place computes where the name, line and password go on a width x height
// surface. n is the text width (or the line length) in cells.
func (l Layout) place(width, height int, name, masked string) (nameAt, lineAt, passAt placement) {
	mid := height / 2

	nw := utf8.RuneCountInString(name)
	nameAt = placement{
		x: l.Name.X.or(l.X, (width-nw)/2) + l.XShift,
		y: l.Name.Y.or(l.Y, mid-2) + l.YShift,
		n: nw,
	}

	length := l.LineLength
	if length <= 0 {
		length = width * 2 / 8
	}
	lineAt = placement{
		x: l.Line.X.or(l.X, width*3/8) + l.XShift,
		y: l.Line.Y.or(l.Y, mid-1) + l.YShift,
		n: length,
	}

	pw := utf8.RuneCountInString(masked)
	passAt = placement{
		x: l.Password.X.or(l.X, (width-pw)/2) + l.XShift,
		y: l.Password.Y.or(l.Y, mid) + l.YShift,
		n: pw,
	}
	return nameAt, lineAt, passAt
}

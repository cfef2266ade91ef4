package display

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// DefaultFont is used when no descriptor is given.
const DefaultFont = "bold"

// ParseFont resolves a style descriptor such as "bold,underline,fg=white".
// Attributes: bold, dim, italic, underline, reverse, blink, plain.
// The foreground defaults to white.
func ParseFont(desc string) (tcell.Style, error) {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	if strings.TrimSpace(desc) == "" {
		desc = DefaultFont
	}

	for _, part := range strings.Split(desc, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "":
		case "plain":
			style = style.Attributes(tcell.AttrNone)
		case "bold":
			style = style.Bold(true)
		case "dim":
			style = style.Dim(true)
		case "italic":
			style = style.Italic(true)
		case "underline":
			style = style.Underline(true)
		case "reverse":
			style = style.Reverse(true)
		case "blink":
			style = style.Blink(true)
		default:
			name, ok := strings.CutPrefix(part, "fg=")
			if !ok {
				return style, fmt.Errorf("%w: unknown attribute %q", ErrFont, part)
			}
			c, err := parseColor(name)
			if err != nil {
				return style, err
			}
			style = style.Foreground(c)
		}
	}
	return style, nil
}

func parseColor(name string) (tcell.Color, error) {
	if strings.HasPrefix(name, "#") {
		if c := tcell.GetColor(name); c != tcell.ColorDefault {
			return c, nil
		}
	} else if c, ok := tcell.ColorNames[name]; ok {
		return c, nil
	}
	return tcell.ColorDefault, fmt.Errorf("%w: unknown color %q", ErrFont, name)
}

package render

import (
	"bytes"
	"io"
	"log/slog"
	"os"

	"vtlock/internal/lock"
)

// maxNameFile bounds how much of the name file is shown.
const maxNameFile = 1000

// Options configures a Renderer.
type Options struct {
	Layout   Layout
	Username string

	// NameFile, when set, is shown instead of Username and re-read on Refresh.
	NameFile string

	BackgroundImage string
	ErrorImage      string

	Logger *slog.Logger
}

// Renderer draws lock views on a Surface. It implements lock.Renderer.
type Renderer struct {
	surf   Surface
	layout Layout
	log    *slog.Logger

	username string
	nameFile string
	nameText string

	normal Background
	failed Background
}

// New prepares the backgrounds and the label. Images that cannot be loaded
// are reported and replaced by the solid colors.
func New(surf Surface, opts Options) *Renderer {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	r := &Renderer{
		surf:     surf,
		layout:   opts.Layout,
		log:      log,
		username: opts.Username,
		nameFile: opts.NameFile,
		normal:   Background{Color: Black},
		failed:   Background{Color: OrangeRed},
	}

	if opts.BackgroundImage != "" {
		if img, err := LoadImage(opts.BackgroundImage); err != nil {
			log.Warn("could not read background image", "path", opts.BackgroundImage, "error", err)
		} else {
			r.normal.Image = img
		}
	}
	if opts.ErrorImage != "" {
		if img, err := LoadImage(opts.ErrorImage); err != nil {
			log.Warn("could not read error image, using the solid indicator", "path", opts.ErrorImage, "error", err)
		} else {
			r.failed.Image = img
		}
	}
	r.Refresh()
	return r
}

// Render draws v. It depends on nothing but v and the label.
func (r *Renderer) Render(v lock.View) error {
	switch v.State {
	case lock.StateDimmed:
		r.surf.Fill(Background{Color: Black})
		return r.surf.Flush()
	case lock.StateWrongPassword:
		r.surf.Fill(r.failed)
	default:
		r.surf.Fill(r.normal)
	}

	w, h := r.surf.Size()
	label := r.label()
	nameAt, lineAt, passAt := r.layout.place(w, h, label, v.Masked)

	if !r.layout.HideName {
		r.surf.DrawText(nameAt.x, nameAt.y, label)
	}
	if !r.layout.HideLine {
		r.surf.DrawLine(lineAt.x, lineAt.y, lineAt.n)
	}
	if !r.layout.HidePassword {
		r.surf.DrawText(passAt.x, passAt.y, v.Masked)
	}
	return r.surf.Flush()
}

func (r *Renderer) label() string {
	if r.nameFile != "" {
		return r.nameText
	}
	return r.username
}

// Refresh re-reads the name file and reports whether its text changed.
// A file that cannot be read keeps the previous text.
func (r *Renderer) Refresh() bool {
	if r.nameFile == "" {
		return false
	}
	data, err := readPrefix(r.nameFile, maxNameFile)
	if err != nil {
		r.log.Debug("could not read name file", "path", r.nameFile, "error", err)
		return false
	}
	text := string(bytes.ReplaceAll(data, []byte("\n"), nil))
	if text == r.nameText {
		return false
	}
	r.nameText = text
	return true
}

func readPrefix(path string, n int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, n))
}

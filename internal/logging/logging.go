// Package logging sets up the slog logger used across vtlock.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Options selects the level and destination.
type Options struct {
	Debug bool

	// File receives the log instead of stderr when set.
	File string
}

// Output is where log records go. While held, records written to the
// terminal are buffered so they do not scribble over the lock screen.
type Output struct {
	mu   sync.Mutex
	w    io.Writer
	file *os.File
	held bool
	buf  bytes.Buffer
}

// New returns a text logger at warn level, or debug level with opts.Debug.
func New(opts Options) (*slog.Logger, *Output, error) {
	out := &Output{w: os.Stderr}
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out.w, out.file = f, f
	}
	return newLogger(out, opts.Debug), out, nil
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *Output) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.held {
		return o.buf.Write(p)
	}
	return o.w.Write(p)
}

// Hold starts buffering. Records going to a file are never held.
func (o *Output) Hold() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.held = o.file == nil
}

// Release writes out what was buffered and stops buffering.
func (o *Output) Release() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.held = false
	_, err := o.buf.WriteTo(o.w)
	return err
}

// Close releases held records and closes the log file, if any.
func (o *Output) Close() error {
	err := o.Release()
	if o.file != nil {
		if cerr := o.file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Package config holds the resolved vtlock configuration and its flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"time"

	"vtlock/internal/lock"
	"vtlock/internal/render"
)

// Authentication backends.
const (
	AuthShadow = "shadow"
	AuthPAM    = "pam"
)

// Config is everything the lock needs to know before it starts.
type Config struct {
	Mask                       string
	Capacity                   int
	GrabAttempts               int
	GrabRetryInterval          time.Duration
	FatalOnConsoleGuardFailure bool
	PollQuantum                time.Duration
	GrabCheckInterval          time.Duration
	Backoff                    string

	Auth       string
	PAMService string
	Console    string
	NoLogind   bool

	Font            string
	NameFile        string
	BackgroundImage string
	ErrorImage      string

	X, Y                 OptionalInt
	NameX, NameY         OptionalInt
	LineX, LineY         OptionalInt
	PasswordX, PasswordY OptionalInt
	XShift, YShift       int
	LineLength           int

	HideName     bool
	HideLine     bool
	HidePassword bool
	PasswordOnly bool

	Debug   bool
	LogFile string
}

// Defaults returns the configuration used when no flag is given.
func Defaults() Config {
	return Config{
		Mask:              "*",
		Capacity:          256,
		GrabAttempts:      1000,
		GrabRetryInterval: time.Millisecond,
		PollQuantum:       time.Millisecond,
		GrabCheckInterval: 250 * time.Millisecond,
		Backoff:           string(lock.DefaultBackoff),
		Auth:              AuthShadow,
		PAMService:        "login",
		Console:           "/dev/console",
		Font:              "bold",
	}
}

// RegisterFlags binds every option to fs. Short names follow the classic
// sflock letters.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	stringVar(fs, &c.Mask, "c", "password-char", c.Mask, "characters repeated to mask the typed password")
	stringVar(fs, &c.Font, "f", "font", c.Font, "text style: bold, dim, italic, underline, reverse, blink, plain, fg=<color> (comma separated)")
	boolVar(fs, &c.HideName, "n", "hide-name", "do not show the user name")
	boolVar(fs, &c.HideLine, "l", "hide-line", "do not show the line under the name")
	boolVar(fs, &c.HidePassword, "p", "hide-password", "do not show the masked password")
	boolVar(fs, &c.PasswordOnly, "o", "password-only", "show only the masked password")
	intVar(fs, &c.LineLength, "L", "line-length", c.LineLength, "line length in cells (0: a quarter of the width)")

	optVar(fs, &c.X, "x", "x-coord", "x of every field")
	optVar(fs, &c.Y, "y", "y-coord", "y of every field")
	intVar(fs, &c.XShift, "X", "x-shift", c.XShift, "shift every field right")
	intVar(fs, &c.YShift, "Y", "y-shift", c.YShift, "shift every field down")
	optVar(fs, &c.NameX, "A", "name-x", "x of the name")
	optVar(fs, &c.LineX, "B", "line-x", "x of the line")
	optVar(fs, &c.PasswordX, "C", "password-x", "x of the password")
	optVar(fs, &c.NameY, "D", "name-y", "y of the name")
	optVar(fs, &c.LineY, "E", "line-y", "y of the line")
	optVar(fs, &c.PasswordY, "F", "password-y", "y of the password")

	stringVar(fs, &c.NameFile, "N", "name-file", c.NameFile, "show this file's contents instead of the user name")
	stringVar(fs, &c.BackgroundImage, "i", "background-image", c.BackgroundImage, "PNG, JPEG or GIF shown behind the prompt")
	stringVar(fs, &c.ErrorImage, "e", "error-image", c.ErrorImage, "image shown after a wrong password")

	fs.IntVar(&c.Capacity, "capacity", c.Capacity, "password buffer size in bytes")
	fs.IntVar(&c.GrabAttempts, "grab-attempts", c.GrabAttempts, "attempts to grab the pointer and the keyboard")
	fs.DurationVar(&c.GrabRetryInterval, "grab-retry-interval", c.GrabRetryInterval, "pause between grab attempts")
	fs.DurationVar(&c.GrabCheckInterval, "grab-check-interval", c.GrabCheckInterval, "how often the keyboard grab is verified")
	fs.DurationVar(&c.PollQuantum, "poll-quantum", c.PollQuantum, "longest wait for input per loop iteration")
	fs.BoolVar(&c.FatalOnConsoleGuardFailure, "fatal-console-guard", c.FatalOnConsoleGuardFailure, "abort when VT switching cannot be locked")
	fs.StringVar(&c.Backoff, "backoff", c.Backoff, "delay after failed attempts: off, fast, medium, slow")
	fs.StringVar(&c.Auth, "auth", c.Auth, "password check: shadow or pam")
	fs.StringVar(&c.PAMService, "pam-service", c.PAMService, "PAM service used with --auth pam")
	fs.StringVar(&c.Console, "console", c.Console, "console device for VT switch locking")
	fs.BoolVar(&c.NoLogind, "no-logind", c.NoLogind, "do not report the lock to logind")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "log debug messages")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "write logs to this file instead of stderr")
}

func stringVar(fs *flag.FlagSet, p *string, short, long, value, usage string) {
	fs.StringVar(p, long, value, usage)
	fs.StringVar(p, short, value, "short for --"+long)
}

func intVar(fs *flag.FlagSet, p *int, short, long string, value int, usage string) {
	fs.IntVar(p, long, value, usage)
	fs.IntVar(p, short, value, "short for --"+long)
}

func boolVar(fs *flag.FlagSet, p *bool, short, long, usage string) {
	fs.BoolVar(p, long, *p, usage)
	fs.BoolVar(p, short, *p, "short for --"+long)
}

func optVar(fs *flag.FlagSet, p *OptionalInt, short, long, usage string) {
	fs.Var(p, long, usage)
	fs.Var(p, short, "short for --"+long)
}

// Validate rejects configurations the lock cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Capacity < 2 {
		errs = append(errs, fmt.Errorf("capacity must be at least 2, got %d", c.Capacity))
	}
	if c.Mask == "" {
		errs = append(errs, errors.New("password-char must not be empty"))
	}
	if c.GrabAttempts < 1 {
		errs = append(errs, fmt.Errorf("grab-attempts must be at least 1, got %d", c.GrabAttempts))
	}
	for name, d := range map[string]time.Duration{
		"grab-retry-interval": c.GrabRetryInterval,
		"grab-check-interval": c.GrabCheckInterval,
		"poll-quantum":        c.PollQuantum,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", name, d))
		}
	}
	if _, ok := lock.BackoffPresets[lock.BackoffSpeed(c.Backoff)]; !ok && lock.BackoffSpeed(c.Backoff) != lock.BackoffOff {
		errs = append(errs, fmt.Errorf("unknown backoff %q", c.Backoff))
	}
	if c.Auth != AuthShadow && c.Auth != AuthPAM {
		errs = append(errs, fmt.Errorf("unknown auth %q (want %s or %s)", c.Auth, AuthShadow, AuthPAM))
	}
	if c.Auth == AuthPAM && c.PAMService == "" {
		errs = append(errs, errors.New("pam-service must not be empty"))
	}
	return errors.Join(errs...)
}

// SessionOptions returns the options of the lock session.
func (c Config) SessionOptions() lock.Options {
	return lock.Options{
		Mask:                       c.Mask,
		Capacity:                   c.Capacity,
		GrabAttempts:               c.GrabAttempts,
		GrabRetryInterval:          c.GrabRetryInterval,
		FatalOnConsoleGuardFailure: c.FatalOnConsoleGuardFailure,
		PollQuantum:                c.PollQuantum,
		GrabCheckInterval:          c.GrabCheckInterval,
		Backoff:                    lock.BackoffSpeed(c.Backoff),
	}
}

// Layout returns the placement of the on-screen fields.
func (c Config) Layout() render.Layout {
	return render.Layout{
		X:            c.X.coord(),
		Y:            c.Y.coord(),
		Name:         render.Point{X: c.NameX.coord(), Y: c.NameY.coord()},
		Line:         render.Point{X: c.LineX.coord(), Y: c.LineY.coord()},
		Password:     render.Point{X: c.PasswordX.coord(), Y: c.PasswordY.coord()},
		XShift:       c.XShift,
		YShift:       c.YShift,
		LineLength:   c.LineLength,
		HideName:     c.HideName || c.PasswordOnly,
		HideLine:     c.HideLine || c.PasswordOnly,
		HidePassword: c.HidePassword,
	}
}

// OptionalInt is an int flag that remembers whether it was given.
type OptionalInt struct {
	Value int
	Valid bool
}

func (o *OptionalInt) String() string {
	if o == nil || !o.Valid {
		return ""
	}
	return strconv.Itoa(o.Value)
}

func (o *OptionalInt) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	o.Value, o.Valid = v, true
	return nil
}

func (o OptionalInt) coord() render.Coord {
	return render.Coord{Value: o.Value, Set: o.Valid}
}

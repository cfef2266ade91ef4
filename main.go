package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awnumar/memguard"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"vtlock/internal/auth"
	"vtlock/internal/config"
	"vtlock/internal/console"
	"vtlock/internal/display"
	"vtlock/internal/idle"
	"vtlock/internal/lock"
	"vtlock/internal/logging"
	"vtlock/internal/logind"
	"vtlock/internal/privilege"
	"vtlock/internal/render"
)

var version = "dev"

func main() {
	if err := buildCLI().ParseAndRun(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func buildCLI() *ffcli.Command {
	cfg := config.Defaults()
	rootFlagSet := flag.NewFlagSet("vtlock", flag.ExitOnError)
	cfg.RegisterFlags(rootFlagSet)
	showVersion := rootFlagSet.Bool("version", false, "print the version and exit")
	rootFlagSet.BoolVar(showVersion, "v", false, "short for --version")

	idleFlagSet := flag.NewFlagSet("vtlock idle", flag.ExitOnError)
	idleTimeout := idleFlagSet.Int("timeout", int(idle.DefaultTimeout/time.Second), "idle timeout in seconds before locking")
	idlePoll := idleFlagSet.Duration("poll", idle.DefaultInterval, "how often the idle time is checked")
	idleOnce := idleFlagSet.Bool("once", false, "lock immediately and exit")
	idleNoLogind := idleFlagSet.Bool("no-logind", false, "ignore logind idle hints and lock requests")
	idleDebug := idleFlagSet.Bool("debug", false, "log debug messages")

	idleCmd := &ffcli.Command{
		Name:       "idle",
		ShortUsage: "vtlock idle [flags] [-- vtlock flags]",
		ShortHelp:  "Lock when the session goes idle or logind asks for a lock",
		FlagSet:    idleFlagSet,
		Options:    []ff.Option{ff.WithEnvVarPrefix("VTLOCK_IDLE")},
		Exec: func(ctx context.Context, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("finding executable path: %w", err)
			}
			return execIdle(ctx, idle.Options{
				Timeout:    time.Duration(*idleTimeout) * time.Second,
				Interval:   *idlePoll,
				LockerPath: exe,
				LockerArgs: args,
				NoLogind:   *idleNoLogind,
			}, *idleOnce, *idleDebug)
		},
	}

	return &ffcli.Command{
		ShortUsage:  "vtlock [flags] <subcommand>",
		ShortHelp:   "Lock the terminal until the user's password is typed",
		LongHelp:    "Controls:\n  Enter       check the password\n  Backspace   delete the last character\n  Escape      clear the input and blank the screen\n  any input   wake the screen",
		FlagSet:     rootFlagSet,
		Options:     []ff.Option{ff.WithEnvVarPrefix("VTLOCK")},
		Subcommands: []*ffcli.Command{idleCmd},
		Exec: func(ctx context.Context, args []string) error {
			if *showVersion {
				fmt.Println("vtlock " + version)
				return nil
			}
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			return execLock(cfg)
		},
	}
}

// ============================================================================
// Lock (root) command
// ============================================================================

func execLock(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, logOut, err := logging.New(logging.Options{Debug: cfg.Debug, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer logOut.Close()

	// The lock has no way out but the password.
	signal.Ignore(syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTSTP, syscall.SIGHUP)
	defer memguard.Purge()
	if err := privilege.DisableCoreDumps(); err != nil {
		log.Warn("core dumps stay enabled", "error", err)
	}

	id, err := auth.CurrentIdentity()
	if err != nil {
		return err
	}

	elev, err := privilege.Acquire()
	if err != nil && (cfg.Auth == config.AuthShadow || !errors.Is(err, privilege.ErrNotElevated)) {
		return err
	}
	if err != nil {
		log.Warn("not set-uid root, console switching stays unlocked", "error", err)
		elev = nil
	}

	verifier, err := newVerifier(cfg, id, elev, log)
	if err != nil {
		abort(elev, nil)
		return err
	}

	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		abort(elev, verifier)
		return fmt.Errorf("opening terminal: %w", err)
	}
	defer tty.Close()

	screen, err := display.Open(display.Options{Font: cfg.Font})
	if err != nil {
		abort(elev, verifier)
		return err
	}
	defer screen.Close()
	logOut.Hold()

	deps := lock.Deps{
		Events: screen,
		Renderer: render.New(screen, render.Options{
			Layout:          cfg.Layout(),
			Username:        id.Name,
			NameFile:        cfg.NameFile,
			BackgroundImage: cfg.BackgroundImage,
			ErrorImage:      cfg.ErrorImage,
			Logger:          log,
		}),
		Grabber:  display.NewTerminalGrabber(screen, int(tty.Fd())),
		Verifier: verifier,
		Blanker:  console.NewBlanker(int(tty.Fd())),
		Logger:   log,
	}
	if elev != nil {
		deps.Elevator = elev
		deps.Console = console.NewGuard(cfg.Console)
	}
	if !cfg.NoLogind {
		if session, err := logind.Connect(os.Getenv("XDG_SESSION_ID")); err != nil {
			log.Warn("logind unavailable, locked hint not set", "error", err)
		} else {
			defer session.Close()
			deps.Hint = session
		}
	}

	log.Debug("locking", "user", id.Name, "auth", cfg.Auth)
	return lock.NewSession(cfg.SessionOptions(), deps).Run()
}

func newVerifier(cfg config.Config, id auth.Identity, elev *privilege.Elevation, log *slog.Logger) (lock.Verifier, error) {
	if cfg.Auth == config.AuthPAM {
		if elev != nil {
			if err := elev.Drop(); err != nil {
				return nil, err
			}
		}
		tty, _ := os.Readlink("/proc/self/fd/0")
		v, err := auth.NewPAMVerifier(cfg.PAMService, id, tty, log)
		if err != nil {
			return nil, err
		}
		return v, nil
	}

	cred, err := auth.NewShadowStore(elev).Fetch(id)
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// abort gives up privilege and the credential when the lock cannot start.
func abort(elev *privilege.Elevation, verifier lock.Verifier) {
	if elev != nil {
		_ = elev.DropPermanently()
	}
	if c, ok := verifier.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}

// ============================================================================
// Idle watcher command
// ============================================================================

func execIdle(ctx context.Context, opts idle.Options, once, debug bool) error {
	if err := privilege.DropSetuid(); err != nil {
		return err
	}

	log, logOut, err := logging.New(logging.Options{Debug: debug})
	if err != nil {
		return err
	}
	defer logOut.Close()
	opts.Logger = log

	if once {
		return idle.LockNow(opts).Lock(ctx)
	}

	w, closer, err := idle.New(opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return w.Run(ctx)
}

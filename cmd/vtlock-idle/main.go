package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"

	"vtlock/internal/idle"
	"vtlock/internal/logging"
)

func main() {
	fs := flag.NewFlagSet("vtlock-idle", flag.ExitOnError)
	timeout := fs.Int("timeout", int(idle.DefaultTimeout/time.Second), "Idle timeout in seconds before locking")
	poll := fs.Duration("poll", idle.DefaultInterval, "How often the idle time is checked")
	once := fs.Bool("once", false, "Lock immediately and exit (for manual trigger)")
	noLogind := fs.Bool("no-logind", false, "Ignore logind idle hints and lock requests")
	debug := fs.Bool("debug", false, "Log debug messages")
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("VTLOCK_IDLE")); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log, logOut, err := logging.New(logging.Options{Debug: *debug})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer logOut.Close()

	opts := idle.Options{
		Timeout:    time.Duration(*timeout) * time.Second,
		Interval:   *poll,
		LockerPath: findLocker(),
		LockerArgs: fs.Args(),
		NoLogind:   *noLogind,
		Logger:     log,
	}

	if *once {
		if err := idle.LockNow(opts).Lock(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "locker exited with error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	w, closer, err := idle.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// findLocker looks for vtlock next to this executable, then under ./bin,
// then falls back to $PATH.
func findLocker() string {
	if exePath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exePath), "vtlock")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if wd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(wd, "bin", "vtlock")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "vtlock"
}

package idle

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ExecLocker runs the locker binary on the current terminal.
type ExecLocker struct {
	Path string
	Args []string
}

// Lock runs the locker and waits for it. The command is not tied to ctx: an
// interrupted watcher must not kill a running lock.
func (l ExecLocker) Lock(context.Context) error {
	cmd := exec.Command(l.Path, l.Args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// TmuxLocker runs the locker in a full-screen tmux popup.
type TmuxLocker struct {
	Path string
	Args []string
}

// Lock opens the popup and waits until it closes.
func (l TmuxLocker) Lock(context.Context) error {
	cmdStr := strings.Join(append([]string{strconv.Quote(l.Path)}, quoteAll(l.Args)...), " ")
	popupArgs := []string{
		"display-popup",
		"-E",
		"-w", "100%",
		"-h", "100%",
		cmdStr,
	}

	cmd := exec.Command("tmux", popupArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}

func quoteAll(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = strconv.Quote(a)
	}
	return out
}

// TmuxSource reads the idle time of the attached tmux client.
type TmuxSource struct{}

// InTmux reports whether the process runs inside tmux.
func InTmux() bool {
	return os.Getenv("TMUX") != ""
}

// IdleFor asks tmux for the last client activity.
func (TmuxSource) IdleFor(now time.Time) (time.Duration, error) {
	cmd := exec.Command("tmux", "display-message", "-p", "#{client_activity}")
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("get client activity: %w", err)
	}
	return parseActivity(string(out), now)
}

func parseActivity(out string, now time.Time) (time.Duration, error) {
	activityStr := strings.TrimSpace(out)
	if activityStr == "" {
		return 0, fmt.Errorf("empty activity timestamp")
	}

	activity, err := strconv.ParseInt(activityStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse activity timestamp: %w", err)
	}
	return max(now.Sub(time.Unix(activity, 0)), 0), nil
}

package multiplexer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yubing744/cli-agent-orchestrator/src/lib"
)

// TmuxClient drives a real tmux server via its CLI, grounded on the
// exec.Command("tmux", ...) idiom used throughout
// mkober-muxcode/tools/muxcode-agent-bus/bus (spawn.go, config.go) for
// window lifecycle and keystroke delivery.
//
// Each window's pane output is additionally piped to <logRoot>/<terminalID>.log
// via `tmux pipe-pane` at window-creation time, so every terminal this client
// creates is schedulable by the Inbox Scheduler (§9 Open Question 2).
type TmuxClient struct {
	binary  string
	logRoot string
}

// NewTmuxClient returns a client driving the tmux binary on PATH (or at
// binaryPath if non-empty), piping window output under logRoot.
func NewTmuxClient(binaryPath, logRoot string) *TmuxClient {
	binary := binaryPath
	if binary == "" {
		binary = "tmux"
	}
	return &TmuxClient{binary: binary, logRoot: logRoot}
}

func (c *TmuxClient) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: tmux %s: %v: %s", lib.ErrMultiplexerUnavailable, strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}

func target(session, window string) string {
	return session + ":" + window
}

// CreateWindow creates session if needed, then a named window within it, and
// starts piping that window's pane output to its log file, named after
// terminalID so the Scheduler's filename-derived lookup key matches the
// Metadata Store / Provider Manager key.
func (c *TmuxClient) CreateWindow(ctx context.Context, session, window, terminalID string) error {
	hasSession, err := c.hasSession(ctx, session)
	if err != nil {
		return err
	}

	if !hasSession {
		if _, err := c.run(ctx, "new-session", "-d", "-s", session, "-n", window); err != nil {
			return err
		}
	} else {
		if _, err := c.run(ctx, "new-window", "-t", session, "-n", window); err != nil {
			return err
		}
	}

	logPath := filepath.Join(c.logRoot, terminalID+".log")
	if _, err := c.run(ctx, "pipe-pane", "-t", target(session, window), "-o", "cat >> "+shellQuote(logPath)); err != nil {
		return err
	}
	return nil
}

// DestroyWindow kills the window. If it was the session's last window, tmux
// tears down the session implicitly.
func (c *TmuxClient) DestroyWindow(ctx context.Context, session, window string) error {
	_, err := c.run(ctx, "kill-window", "-t", target(session, window))
	return err
}

// SendKeys sends text followed by Enter; no acknowledgment is awaited.
func (c *TmuxClient) SendKeys(ctx context.Context, session, window, text string) error {
	_, err := c.run(ctx, "send-keys", "-t", target(session, window), text, "Enter")
	return err
}

// GetHistory captures the visible scrollback. tailLines <= 0 captures the
// full pane history.
func (c *TmuxClient) GetHistory(ctx context.Context, session, window string, tailLines int) (string, error) {
	args := []string{"capture-pane", "-p", "-t", target(session, window)}
	if tailLines > 0 {
		args = append(args, "-S", "-"+strconv.Itoa(tailLines))
	} else {
		args = append(args, "-S", "-")
	}
	return c.run(ctx, args...)
}

// HasWindow reports whether the named window currently exists.
func (c *TmuxClient) HasWindow(ctx context.Context, session, window string) (bool, error) {
	out, err := c.run(ctx, "list-windows", "-t", session, "-F", "#{window_name}")
	if err != nil {
		if strings.Contains(err.Error(), "can't find session") {
			return false, nil
		}
		return false, err
	}
	for _, name := range strings.Split(strings.TrimSpace(out), "\n") {
		if name == window {
			return true, nil
		}
	}
	return false, nil
}

func (c *TmuxClient) hasSession(ctx context.Context, session string) (bool, error) {
	cmd := exec.CommandContext(ctx, c.binary, "has-session", "-t", session)
	if err := cmd.Run(); err != nil {
		return false, nil
	}
	return true, nil
}

// shellQuote wraps a path in single quotes for use inside a tmux pipe-pane
// shell command, escaping any embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

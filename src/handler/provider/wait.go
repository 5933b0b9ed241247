package provider

import (
	"context"
	"regexp"
	"time"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/constants"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/multiplexer"
)

// shellReadyPattern is a generic shell-prompt heuristic used to detect that
// a freshly created window has a usable shell before a launch command is
// sent into it.
var shellReadyPattern = regexp.MustCompile(`[$#%>]\s*$`)

// waitForShell polls GetHistory until a shell prompt is visible at the end
// of the pane, up to timeout, at a fixed 200ms interval (finer-grained than
// the 1Hz status poll since a shell tends to be ready almost immediately).
func waitForShell(ctx context.Context, mux multiplexer.Multiplexer, session, window string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		out, err := mux.GetHistory(ctx, session, window, 5)
		if err == nil && shellReadyPattern.MatchString(stripANSI(out)) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// waitUntilStatus polls statusFn at 1Hz until it returns target or timeout
// elapses, matching §4.D's "poll get_status() at 1 Hz until it reaches IDLE".
func waitUntilStatus(ctx context.Context, statusFn func(context.Context, int) (Status, error), target Status, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		status, err := statusFn(ctx, constants.DefaultStatusTailLines)
		if err == nil && status == target {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

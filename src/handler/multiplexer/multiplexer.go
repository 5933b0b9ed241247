// Package multiplexer implements the Multiplexer Client (§4.A): a thin
// capability surface over an external terminal multiplexer (tmux). It is
// deliberately narrow — create/destroy a window, send keystrokes, fetch
// scrollback — so the rest of the core never has to know it is tmux and
// not something else.
package multiplexer

import "context"

// Multiplexer is the capability surface every backend implements.
// SendKeys is fire-and-forget: no acknowledgment is returned or awaited.
// GetHistory returns raw scrollback bytes, escape sequences included —
// callers (Providers) are responsible for normalizing it.
//
// CreateWindow takes terminalID so the backend can name the window's piped
// log file after the terminal-id rather than the (session, window) pair —
// the Inbox Scheduler derives the terminal-id it looks up from that log
// file's name (§6 "<log_root>/<id>.log"), so the two must agree.
type Multiplexer interface {
	CreateWindow(ctx context.Context, session, window, terminalID string) error
	DestroyWindow(ctx context.Context, session, window string) error
	SendKeys(ctx context.Context, session, window, text string) error
	GetHistory(ctx context.Context, session, window string, tailLines int) (string, error)
	HasWindow(ctx context.Context, session, window string) (bool, error)
}

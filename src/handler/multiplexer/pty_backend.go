package multiplexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yubing744/cli-agent-orchestrator/src/lib"
)

const (
	// maxBufferSize bounds the in-memory scrollback ring buffer kept per
	// window, mirroring the teacher's terminal viewer buffer.
	maxBufferSize = 100 * 1024

	subscriberChanSize = 64
	ansiReset          = "\x1b[0m"

	// idleReapInterval matches the teacher's sessionCleanupInterval: how
	// often dead windows are pruned from the registry.
	idleReapInterval = 30 * time.Second
)

// Subscriber receives a managedWindow's output as it is produced, used by
// the live terminal-viewer WebSocket endpoint (§6 ambient stack).
type Subscriber struct {
	Ch   chan []byte
	done chan struct{}
}

// managedWindow pairs a ptySession with an output ring buffer, subscriber
// fan-out, and a log-file writer, adapted from the teacher's ManagedSession
// so the PTY dev backend remains schedulable by the Inbox Scheduler exactly
// like the tmux backend (both append to <logRoot>/<terminalID>.log).
type managedWindow struct {
	session string
	window  string
	pty     *ptySession
	logFile *os.File

	bufMu  sync.Mutex
	buffer []byte
	dead   bool

	subMu       sync.RWMutex
	subscribers map[*Subscriber]struct{}

	doneCh    chan struct{}
	closeOnce sync.Once
}

func newManagedWindow(session, window string, pty *ptySession, logFile *os.File) *managedWindow {
	mw := &managedWindow{
		session:     session,
		window:      window,
		pty:         pty,
		logFile:     logFile,
		buffer:      make([]byte, 0, 4096),
		subscribers: make(map[*Subscriber]struct{}),
		doneCh:      make(chan struct{}),
	}
	go mw.readLoop()
	return mw
}

func (mw *managedWindow) readLoop() {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("readLoop panic in window %s:%s: %v", mw.session, mw.window, r)
		}
		mw.markDead()
	}()

	buf := make([]byte, 4096)
	for {
		n, err := mw.pty.Read(buf)
		if err != nil {
			return
		}
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			mw.appendBuffer(data)
			mw.broadcast(data)
			if mw.logFile != nil {
				_, _ = mw.logFile.Write(data)
			}
		}
	}
}

func (mw *managedWindow) markDead() {
	mw.closeOnce.Do(func() {
		mw.bufMu.Lock()
		mw.dead = true
		mw.bufMu.Unlock()
		close(mw.doneCh)
	})
}

func (mw *managedWindow) appendBuffer(data []byte) {
	mw.bufMu.Lock()
	defer mw.bufMu.Unlock()
	if mw.dead {
		return
	}
	mw.buffer = append(mw.buffer, data...)
	if overflow := len(mw.buffer) - maxBufferSize; overflow > 0 {
		cutPoint := overflow
		limit := overflow + 256
		if limit > len(mw.buffer) {
			limit = len(mw.buffer)
		}
		for i := overflow; i < limit; i++ {
			if mw.buffer[i] == '\n' {
				cutPoint = i + 1
				break
			}
		}
		mw.buffer = mw.buffer[cutPoint:]
	}
}

func (mw *managedWindow) getBuffer() []byte {
	mw.bufMu.Lock()
	defer mw.bufMu.Unlock()
	if len(mw.buffer) == 0 {
		return nil
	}
	reset := []byte(ansiReset)
	out := make([]byte, len(reset)+len(mw.buffer))
	copy(out, reset)
	copy(out[len(reset):], mw.buffer)
	return out
}

func (mw *managedWindow) tailLines(n int) string {
	content := string(mw.getBuffer())
	if n <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) <= n {
		return content
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

func (mw *managedWindow) broadcast(data []byte) {
	mw.subMu.RLock()
	defer mw.subMu.RUnlock()
	for sub := range mw.subscribers {
		select {
		case sub.Ch <- data:
		case <-sub.done:
		case <-mw.doneCh:
			return
		default:
		}
	}
}

// Subscribe registers a new subscriber for this window's output.
func (mw *managedWindow) Subscribe() *Subscriber {
	sub := &Subscriber{Ch: make(chan []byte, subscriberChanSize), done: make(chan struct{})}
	mw.subMu.Lock()
	mw.subscribers[sub] = struct{}{}
	mw.subMu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber and signals its goroutine to stop.
func (mw *managedWindow) Unsubscribe(sub *Subscriber) {
	mw.subMu.Lock()
	delete(mw.subscribers, sub)
	mw.subMu.Unlock()
	select {
	case <-sub.done:
	default:
		close(sub.done)
	}
}

func (mw *managedWindow) isDead() bool {
	mw.bufMu.Lock()
	defer mw.bufMu.Unlock()
	return mw.dead
}

func (mw *managedWindow) close() {
	mw.pty.Close()
	mw.markDead()
	if mw.logFile != nil {
		_ = mw.logFile.Close()
	}
}

// PTYBackend implements Multiplexer using locally-spawned PTY shells instead
// of a real tmux server, for development and tests where tmux is not
// installed. Each (session, window) pair owns one managedWindow.
type PTYBackend struct {
	shell   string
	logRoot string

	mu      sync.RWMutex
	windows map[string]*managedWindow
}

// NewPTYBackend returns a PTY-backed Multiplexer spawning shell for each new
// window, appending output under logRoot the same way the tmux backend does.
func NewPTYBackend(shell, logRoot string) *PTYBackend {
	b := &PTYBackend{
		shell:   shell,
		logRoot: logRoot,
		windows: make(map[string]*managedWindow),
	}
	go b.reapLoop()
	return b
}

// reapLoop drops dead windows from the registry periodically, mirroring the
// teacher's SessionManager.cleanupLoop so a crashed shell doesn't linger as
// a phantom HasWindow() == true entry.
func (b *PTYBackend) reapLoop() {
	ticker := time.NewTicker(idleReapInterval)
	defer ticker.Stop()
	for range ticker.C {
		b.mu.Lock()
		for k, mw := range b.windows {
			if mw.isDead() {
				delete(b.windows, k)
			}
		}
		b.mu.Unlock()
	}
}

func key(session, window string) string { return session + ":" + window }

func (b *PTYBackend) CreateWindow(ctx context.Context, session, window, terminalID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key(session, window)
	if existing, ok := b.windows[k]; ok && !existing.isDead() {
		return nil
	}

	ps, err := newPTYSession(b.shell, "", 80, 24)
	if err != nil {
		return fmt.Errorf("%w: create pty window %s: %v", lib.ErrMultiplexerUnavailable, k, err)
	}

	var logFile *os.File
	if b.logRoot != "" {
		if err := os.MkdirAll(b.logRoot, 0o755); err == nil {
			logFile, _ = os.OpenFile(filepath.Join(b.logRoot, terminalID+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		}
	}

	b.windows[k] = newManagedWindow(session, window, ps, logFile)
	return nil
}

func (b *PTYBackend) DestroyWindow(ctx context.Context, session, window string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key(session, window)
	mw, ok := b.windows[k]
	if !ok {
		return nil
	}
	mw.close()
	delete(b.windows, k)
	return nil
}

func (b *PTYBackend) SendKeys(ctx context.Context, session, window, text string) error {
	mw, err := b.get(session, window)
	if err != nil {
		return err
	}
	_, err = mw.pty.Write([]byte(text + "\n"))
	return err
}

func (b *PTYBackend) GetHistory(ctx context.Context, session, window string, tailLines int) (string, error) {
	mw, err := b.get(session, window)
	if err != nil {
		return "", err
	}
	return mw.tailLines(tailLines), nil
}

func (b *PTYBackend) HasWindow(ctx context.Context, session, window string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	mw, ok := b.windows[key(session, window)]
	return ok && !mw.isDead(), nil
}

// Subscribe exposes a window's live output stream for the terminal-viewer
// WebSocket handler. Only meaningful for the PTY backend — the tmux backend
// has no in-process stream to subscribe to.
func (b *PTYBackend) Subscribe(session, window string) (*Subscriber, error) {
	mw, err := b.get(session, window)
	if err != nil {
		return nil, err
	}
	return mw.Subscribe(), nil
}

// Unsubscribe releases a Subscriber obtained from Subscribe.
func (b *PTYBackend) Unsubscribe(session, window string, sub *Subscriber) {
	mw, err := b.get(session, window)
	if err != nil {
		return
	}
	mw.Unsubscribe(sub)
}

func (b *PTYBackend) get(session, window string) (*managedWindow, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	mw, ok := b.windows[key(session, window)]
	if !ok {
		return nil, fmt.Errorf("%w: window %s", lib.ErrMultiplexerUnavailable, key(session, window))
	}
	return mw, nil
}

// Resize resizes a window's pty, used by the live terminal viewer on reconnect.
func (b *PTYBackend) Resize(session, window string, cols, rows uint16) error {
	mw, err := b.get(session, window)
	if err != nil {
		return err
	}
	return mw.pty.Resize(cols, rows)
}

// ReplayBuffer returns the window's full buffered output (with a leading
// ANSI reset), used to repaint a freshly (re)connected viewer.
func (b *PTYBackend) ReplayBuffer(session, window string) ([]byte, error) {
	mw, err := b.get(session, window)
	if err != nil {
		return nil, err
	}
	return mw.getBuffer(), nil
}

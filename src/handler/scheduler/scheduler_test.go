package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/constants"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/logreader"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/multiplexer"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/provider"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/store"
)

// fakeMux is a minimal in-memory multiplexer.Multiplexer, mirroring
// terminalsvc's own test fake since both packages need the same narrow
// capability surface.
type fakeMux struct {
	history  string
	sentKeys []string
}

func (f *fakeMux) CreateWindow(ctx context.Context, session, window, terminalID string) error {
	return nil
}
func (f *fakeMux) DestroyWindow(ctx context.Context, session, window string) error { return nil }

func (f *fakeMux) SendKeys(ctx context.Context, session, window, text string) error {
	f.sentKeys = append(f.sentKeys, text)
	return nil
}

func (f *fakeMux) GetHistory(ctx context.Context, session, window string, tailLines int) (string, error) {
	return f.history, nil
}

func (f *fakeMux) HasWindow(ctx context.Context, session, window string) (bool, error) {
	return true, nil
}

var _ multiplexer.Multiplexer = (*fakeMux)(nil)

func newTestScheduler(t *testing.T, mux *fakeMux) (*Scheduler, *store.Store, *provider.Manager, string) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "cao.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	// logDir is shared between the log reader and the scheduler's watcher,
	// exactly like orchestrator.New wires them — the scheduler derives a
	// terminal-id from the watched file's name and passes it straight to
	// the log reader, so the two must agree on the directory.
	logDir := t.TempDir()
	providers := provider.NewManager(mux, st)
	logs := logreader.New(logDir, 100)
	return New(logDir, logs, st, providers, mux), st, providers, logDir
}

func seedTerminal(t *testing.T, st *store.Store, providers *provider.Manager) *store.Terminal {
	t.Helper()
	term := &store.Terminal{
		ID:           uuid.New().String(),
		Session:      "sess-1",
		Window:       "win-1",
		ProviderKind: constants.ProviderClaudeCode,
		CreatedAt:    time.Now(),
	}
	if err := st.CreateTerminal(term); err != nil {
		t.Fatalf("CreateTerminal() error = %v", err)
	}
	if _, err := providers.CreateProvider(term.ProviderKind, term.ID, term.Session, term.Window, ""); err != nil {
		t.Fatalf("CreateProvider() error = %v", err)
	}
	return term
}

func TestCheckAndSendPendingMessagesDeliversWhenIdle(t *testing.T) {
	mux := &fakeMux{history: "> "}
	sched, st, providers, _ := newTestScheduler(t, mux)
	term := seedTerminal(t, st, providers)

	msg := &store.InboxMessage{ID: uuid.New().String(), ReceiverID: term.ID, SenderID: "other", Body: "hello", CreatedAt: time.Now()}
	if err := st.EnqueueMessage(msg); err != nil {
		t.Fatalf("EnqueueMessage() error = %v", err)
	}

	delivered, err := sched.CheckAndSendPendingMessages(context.Background(), term.ID)
	if err != nil {
		t.Fatalf("CheckAndSendPendingMessages() error = %v", err)
	}
	if !delivered {
		t.Fatalf("CheckAndSendPendingMessages() = false, want true when terminal is idle")
	}
	if len(mux.sentKeys) != 1 || mux.sentKeys[0] != "hello" {
		t.Fatalf("sentKeys = %v, want [\"hello\"]", mux.sentKeys)
	}

	msgs, err := st.ListMessages(term.ID, "", 0)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].Status != constants.MessageStatusDelivered {
		t.Fatalf("ListMessages() = %+v, want single DELIVERED message", msgs)
	}
}

func TestCheckAndSendPendingMessagesSkipsWhenProcessing(t *testing.T) {
	mux := &fakeMux{history: "thinking...\n"}
	sched, st, providers, _ := newTestScheduler(t, mux)
	term := seedTerminal(t, st, providers)

	msg := &store.InboxMessage{ID: uuid.New().String(), ReceiverID: term.ID, SenderID: "other", Body: "hello", CreatedAt: time.Now()}
	if err := st.EnqueueMessage(msg); err != nil {
		t.Fatalf("EnqueueMessage() error = %v", err)
	}

	delivered, err := sched.CheckAndSendPendingMessages(context.Background(), term.ID)
	if err != nil {
		t.Fatalf("CheckAndSendPendingMessages() error = %v", err)
	}
	if delivered {
		t.Fatalf("CheckAndSendPendingMessages() = true, want false while PROCESSING")
	}
	if len(mux.sentKeys) != 0 {
		t.Fatalf("sentKeys = %v, want none while PROCESSING", mux.sentKeys)
	}

	msgs, err := st.ListMessages(term.ID, "", 0)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].Status != constants.MessageStatusPending {
		t.Fatalf("ListMessages() = %+v, want message still PENDING", msgs)
	}
}

func TestCheckAndSendPendingMessagesNoneWithoutPending(t *testing.T) {
	mux := &fakeMux{history: "> "}
	sched, st, providers, _ := newTestScheduler(t, mux)
	term := seedTerminal(t, st, providers)

	delivered, err := sched.CheckAndSendPendingMessages(context.Background(), term.ID)
	if err != nil {
		t.Fatalf("CheckAndSendPendingMessages() error = %v", err)
	}
	if delivered {
		t.Fatalf("CheckAndSendPendingMessages() = true, want false with no pending message")
	}
}

// TestHandleEventDeliversUsingTerminalIDLogName drives delivery the way the
// real watcher does: through handleEvent, with the log file named the way
// the multiplexer actually names it (<terminalID>.log, per §6's
// "<log_root>/<id>.log"); the tests above call CheckAndSendPendingMessages
// directly and never go through a log file name. A regression back to naming the file
// after (session, window) makes this fail, because handleEvent's
// terminalID := strings.TrimSuffix(filepath.Base(event.Name), ".log")
// would then derive a string that matches no terminal in the store.
func TestHandleEventDeliversUsingTerminalIDLogName(t *testing.T) {
	mux := &fakeMux{history: "> "}
	sched, st, providers, logDir := newTestScheduler(t, mux)
	term := seedTerminal(t, st, providers)

	msg := &store.InboxMessage{ID: uuid.New().String(), ReceiverID: term.ID, SenderID: "other", Body: "hello", CreatedAt: time.Now()}
	if err := st.EnqueueMessage(msg); err != nil {
		t.Fatalf("EnqueueMessage() error = %v", err)
	}

	logPath := filepath.Join(logDir, term.ID+".log")
	if err := os.WriteFile(logPath, []byte("> \n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	sched.handleEvent(context.Background(), fsnotify.Event{Name: logPath, Op: fsnotify.Write})

	if len(mux.sentKeys) != 1 || mux.sentKeys[0] != "hello" {
		t.Fatalf("sentKeys = %v, want [\"hello\"] after a write event on the terminal-id-named log file", mux.sentKeys)
	}

	msgs, err := st.ListMessages(term.ID, "", 0)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].Status != constants.MessageStatusDelivered {
		t.Fatalf("ListMessages() = %+v, want single DELIVERED message", msgs)
	}
}

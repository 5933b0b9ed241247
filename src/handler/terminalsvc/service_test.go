package terminalsvc

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/constants"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/logreader"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/provider"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/store"
	"github.com/yubing744/cli-agent-orchestrator/src/lib"
)

// fakeMux is an in-memory multiplexer.Multiplexer used to exercise the
// Service without shelling out to tmux, mirroring store's own
// in-process-sqlite test style.
type fakeMux struct {
	history        string
	createWindowErr error
	windows        map[string]bool
}

func newFakeMux() *fakeMux { return &fakeMux{windows: make(map[string]bool), history: "$ "} }

func (f *fakeMux) CreateWindow(ctx context.Context, session, window, terminalID string) error {
	if f.createWindowErr != nil {
		return f.createWindowErr
	}
	f.windows[session+"/"+window] = true
	return nil
}

func (f *fakeMux) DestroyWindow(ctx context.Context, session, window string) error {
	delete(f.windows, session+"/"+window)
	return nil
}

func (f *fakeMux) SendKeys(ctx context.Context, session, window, text string) error { return nil }

func (f *fakeMux) GetHistory(ctx context.Context, session, window string, tailLines int) (string, error) {
	return f.history, nil
}

func (f *fakeMux) HasWindow(ctx context.Context, session, window string) (bool, error) {
	return f.windows[session+"/"+window], nil
}

func newTestService(t *testing.T, mux *fakeMux) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "cao.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	providers := provider.NewManager(mux, st)
	logs := logreader.New(t.TempDir(), 100)
	return New(st, mux, providers, logs)
}

func TestCreateTerminalSucceeds(t *testing.T) {
	mux := newFakeMux()
	mux.history = "> "
	svc := newTestService(t, mux)

	term, err := svc.CreateTerminal(context.Background(), constants.ProviderClaudeCode, "", "")
	if err != nil {
		t.Fatalf("CreateTerminal() error = %v", err)
	}
	if term.Session == "" || term.Window == "" {
		t.Fatalf("CreateTerminal() = %+v, want populated session/window", term)
	}
	if !mux.windows[term.Session+"/"+term.Window] {
		t.Fatalf("CreateTerminal() did not create the multiplexer window")
	}
}

func TestCreateTerminalRollsBackOnWindowFailure(t *testing.T) {
	mux := newFakeMux()
	mux.createWindowErr = errors.New("tmux unavailable")
	svc := newTestService(t, mux)

	_, err := svc.CreateTerminal(context.Background(), constants.ProviderClaudeCode, "", "")
	if !errors.Is(err, lib.ErrMultiplexerUnavailable) {
		t.Fatalf("CreateTerminal() error = %v, want wrapping ErrMultiplexerUnavailable", err)
	}

	terms, err := svc.ListTerminals(context.Background())
	if err != nil {
		t.Fatalf("ListTerminals() error = %v", err)
	}
	if len(terms) != 0 {
		t.Fatalf("ListTerminals() = %d, want 0 after rollback", len(terms))
	}
}

func TestSendInputUnknownTerminal(t *testing.T) {
	svc := newTestService(t, newFakeMux())

	err := svc.SendInput(context.Background(), "missing", "hello")
	if !errors.Is(err, lib.ErrUnknownTerminal) {
		t.Fatalf("SendInput() error = %v, want wrapping ErrUnknownTerminal", err)
	}
}

func TestGetOutputModes(t *testing.T) {
	mux := newFakeMux()
	mux.history = "> "
	svc := newTestService(t, mux)

	term, err := svc.CreateTerminal(context.Background(), constants.ProviderClaudeCode, "", "")
	if err != nil {
		t.Fatalf("CreateTerminal() error = %v", err)
	}
	mux.history = "You: hi\nClaude: hello\n> "

	full, err := svc.GetOutput(context.Background(), term.ID, constants.OutputModeFull)
	if err != nil {
		t.Fatalf("GetOutput(full) error = %v", err)
	}
	if full != mux.history {
		t.Fatalf("GetOutput(full) = %q, want %q", full, mux.history)
	}

	last, err := svc.GetOutput(context.Background(), term.ID, constants.OutputModeLast)
	if err != nil {
		t.Fatalf("GetOutput(last) error = %v", err)
	}
	if last != "hello" {
		t.Fatalf("GetOutput(last) = %q, want %q", last, "hello")
	}
}

func TestDestroyTerminalRemovesMetadataAndWindow(t *testing.T) {
	mux := newFakeMux()
	mux.history = "> "
	svc := newTestService(t, mux)

	term, err := svc.CreateTerminal(context.Background(), constants.ProviderClaudeCode, "", "")
	if err != nil {
		t.Fatalf("CreateTerminal() error = %v", err)
	}

	if err := svc.DestroyTerminal(context.Background(), term.ID); err != nil {
		t.Fatalf("DestroyTerminal() error = %v", err)
	}

	if _, err := svc.GetTerminal(context.Background(), term.ID); !errors.Is(err, lib.ErrUnknownTerminal) {
		t.Fatalf("GetTerminal() after destroy error = %v, want wrapping ErrUnknownTerminal", err)
	}
	if mux.windows[term.Session+"/"+term.Window] {
		t.Fatalf("DestroyTerminal() left the multiplexer window registered")
	}
}

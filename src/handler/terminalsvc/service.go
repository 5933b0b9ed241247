// Package terminalsvc implements the Terminal Service (§4.F): the
// component the HTTP handlers and CLI call to create, inspect, feed, and
// tear down terminals, coordinating the Metadata Store, Multiplexer
// Client, and Provider Manager.
package terminalsvc

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/constants"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/logreader"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/multiplexer"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/provider"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/store"
	"github.com/yubing744/cli-agent-orchestrator/src/lib"
)

// Service wires the Metadata Store, Multiplexer Client, Provider Manager,
// and Log Reader together behind the operations §4.F names.
type Service struct {
	store     *store.Store
	mux       multiplexer.Multiplexer
	providers *provider.Manager
	logs      *logreader.Reader
}

// New constructs a Service from its collaborators.
func New(s *store.Store, mux multiplexer.Multiplexer, providers *provider.Manager, logs *logreader.Reader) *Service {
	return &Service{store: s, mux: mux, providers: providers, logs: logs}
}

const sessionNameCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// generateSessionName mirrors the teacher's GenerateRandomName idiom
// (src/handler/process/process.go), applied here to multiplexer session
// names instead of process identifiers.
func generateSessionName() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = sessionNameCharset[rand.Intn(len(sessionNameCharset))]
	}
	return "session-" + string(b)
}

// CreateTerminal allocates an id, a (possibly generated) session, a window,
// persists metadata, and creates+initializes a Provider. On any failure the
// window and metadata are best-effort torn down so no partial terminal is
// left registered (§4.F "either fully registered and initialized, or no
// trace remains").
func (s *Service) CreateTerminal(ctx context.Context, kind constants.ProviderKind, agentProfile, sessionName string) (*store.Terminal, error) {
	id := uuid.New().String()
	session := sessionName
	if session == "" {
		session = generateSessionName()
	}
	window := "win-" + id[:8]

	err := s.mux.CreateWindow(ctx, session, window, id)
	if err != nil {
		err = s.mux.CreateWindow(ctx, session, window, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lib.ErrMultiplexerUnavailable, err)
	}

	t := &store.Terminal{
		ID:           id,
		Session:      session,
		Window:       window,
		ProviderKind: kind,
		AgentProfile: agentProfile,
		CreatedAt:    time.Now(),
	}

	if err := s.store.CreateTerminal(t); err != nil {
		_ = s.mux.DestroyWindow(ctx, session, window)
		return nil, err
	}

	p, err := s.providers.CreateProvider(kind, id, session, window, agentProfile)
	if err != nil {
		_ = s.store.DeleteTerminal(id)
		_ = s.mux.DestroyWindow(ctx, session, window)
		return nil, err
	}

	if err := p.Initialize(ctx); err != nil {
		s.providers.CleanupProvider(id)
		_ = s.store.DeleteTerminal(id)
		_ = s.mux.DestroyWindow(ctx, session, window)
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"terminal_id": id,
		"session":     session,
		"window":      window,
		"kind":        kind,
	}).Info("terminal created")

	return t, nil
}

// SendInput looks up the terminal's stored metadata (failing with
// ErrUnknownTerminal if it does not exist) and forwards text as keystrokes. No status-machine gating is done
// here; gating is the Scheduler's job (§4.F).
func (s *Service) SendInput(ctx context.Context, id, text string) error {
	t, err := s.store.GetTerminal(id)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("%w: %s", lib.ErrUnknownTerminal, id)
	}
	return s.mux.SendKeys(ctx, t.Session, t.Window, text)
}

// GetOutput returns scrollback for a terminal according to mode: full scans
// the whole pane history, recent bounds it to constants.RecentTailLines,
// last extracts the most recent agent reply via the provider's
// ExtractLastMessage.
func (s *Service) GetOutput(ctx context.Context, id string, mode constants.OutputMode) (string, error) {
	t, err := s.store.GetTerminal(id)
	if err != nil {
		return "", err
	}
	if t == nil {
		return "", fmt.Errorf("%w: %s", lib.ErrUnknownTerminal, id)
	}

	switch mode {
	case constants.OutputModeLast:
		p, err := s.providers.GetProvider(ctx, id)
		if err != nil {
			return "", err
		}
		full, err := s.mux.GetHistory(ctx, t.Session, t.Window, 0)
		if err != nil {
			return "", err
		}
		return p.ExtractLastMessage(full)
	case constants.OutputModeRecent:
		return s.mux.GetHistory(ctx, t.Session, t.Window, constants.RecentTailLines)
	default:
		return s.mux.GetHistory(ctx, t.Session, t.Window, 0)
	}
}

// DestroyTerminal tears a terminal down in order: (1) best-effort ExitCLI
// via the multiplexer (Open Question 3 — give the agent a chance to exit
// cleanly), (2) provider cleanup, (3) multiplexer window destroy, (4)
// metadata removal, (5) log reader reset. Inbox messages remain as
// historical records (§4.F).
func (s *Service) DestroyTerminal(ctx context.Context, id string) error {
	t, err := s.store.GetTerminal(id)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("%w: %s", lib.ErrUnknownTerminal, id)
	}

	if p, err := s.providers.GetProvider(ctx, id); err == nil {
		if sendErr := s.mux.SendKeys(ctx, t.Session, t.Window, p.ExitCLI()); sendErr != nil {
			logrus.WithError(sendErr).WithField("terminal_id", id).Warn("failed to send exit command before teardown")
		}
	}

	s.providers.CleanupProvider(id)

	if err := s.mux.DestroyWindow(ctx, t.Session, t.Window); err != nil {
		logrus.WithError(err).WithField("terminal_id", id).Warn("failed to destroy multiplexer window")
	}

	if err := s.store.DeleteTerminal(id); err != nil {
		return err
	}

	s.logs.ResetTerminal(id)

	logrus.WithField("terminal_id", id).Info("terminal destroyed")
	return nil
}

// ListTerminals returns every terminal in the Metadata Store.
func (s *Service) ListTerminals(ctx context.Context) ([]*store.Terminal, error) {
	return s.store.ListTerminals()
}

// ListSessions returns the distinct session names currently in use.
func (s *Service) ListSessions(ctx context.Context) ([]string, error) {
	return s.store.ListSessions()
}

// ListSessionTerminals returns the terminals belonging to session.
func (s *Service) ListSessionTerminals(ctx context.Context, session string) ([]*store.Terminal, error) {
	return s.store.ListSessionTerminals(session)
}

// GetTerminal returns one terminal by id, or ErrUnknownTerminal if absent.
func (s *Service) GetTerminal(ctx context.Context, id string) (*store.Terminal, error) {
	t, err := s.store.GetTerminal(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrUnknownTerminal, id)
	}
	return t, nil
}

package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/constants"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/multiplexer"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/store"
	"github.com/yubing744/cli-agent-orchestrator/src/lib"
)

// TerminalLookup is the subset of the Metadata Store the Manager needs to
// rehydrate a Provider on-demand, keeping this package independent of the
// store package's sqlite-specific surface.
type TerminalLookup interface {
	GetTerminal(id string) (*store.Terminal, error)
}

// Manager is a registry of live Provider instances keyed by terminal-id,
// grounded on original_source/providers/manager.py's direct
// terminal_id -> provider mapping, reworked from a module singleton into
// an explicit struct per §9's composition-root decision.
type Manager struct {
	mux       multiplexer.Multiplexer
	store     TerminalLookup
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewManager constructs a Manager bound to mux (for constructing new
// Provider instances) and store (for on-demand rehydration).
func NewManager(mux multiplexer.Multiplexer, store TerminalLookup) *Manager {
	return &Manager{
		mux:       mux,
		store:     store,
		providers: make(map[string]Provider),
	}
}

// CreateProvider is the explicit insertion path used during terminal
// creation (§4.E). It fails validation the same way the variant's own
// factory would (Q_CLI/KIRO_CLI require a non-empty agent_profile).
func (m *Manager) CreateProvider(kind constants.ProviderKind, terminalID, session, window, agentProfile string) (Provider, error) {
	p, err := New(kind, m.mux, terminalID, session, window, agentProfile)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"terminal_id": terminalID,
			"kind":        kind,
		}).Error("failed to create provider")
		return nil, err
	}

	m.mu.Lock()
	m.providers[terminalID] = p
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{"terminal_id": terminalID, "kind": kind}).Info("created provider")
	return p, nil
}

// GetProvider returns the cached Provider for id, or lazily rehydrates one
// from the Metadata Store on a cache miss. Double-checked locking ensures
// concurrent GetProvider calls for the same id produce exactly one
// instance (§4.E).
func (m *Manager) GetProvider(ctx context.Context, id string) (Provider, error) {
	m.mu.RLock()
	p, ok := m.providers[id]
	m.mu.RUnlock()
	if ok {
		return p, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.providers[id]; ok {
		return p, nil
	}

	t, err := m.store.GetTerminal(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: terminal %s", lib.ErrUnknownTerminal, id)
	}

	p, err = New(t.ProviderKind, m.mux, t.ID, t.Session, t.Window, t.AgentProfile)
	if err != nil {
		return nil, err
	}

	m.providers[id] = p
	logrus.WithField("terminal_id", id).Info("created provider on-demand")
	return p, nil
}

// CleanupProvider removes and cleans up the provider for id, if any.
func (m *Manager) CleanupProvider(id string) {
	m.mu.Lock()
	p, ok := m.providers[id]
	if ok {
		delete(m.providers, id)
	}
	m.mu.Unlock()

	if ok {
		p.Cleanup()
		logrus.WithField("terminal_id", id).Info("cleaned up provider")
	}
}

// ListProviders returns a terminal-id -> provider-kind-name map of active
// providers, for debugging, mirroring the original's list_providers.
func (m *Manager) ListProviders() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.providers))
	for id, p := range m.providers {
		out[id] = fmt.Sprintf("%T", p)
	}
	return out
}

package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/constants"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/multiplexer"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/store"
	"github.com/yubing744/cli-agent-orchestrator/src/lib"
)

type fakeLookup struct {
	terminals map[string]*store.Terminal
}

func (f *fakeLookup) GetTerminal(id string) (*store.Terminal, error) {
	t, ok := f.terminals[id]
	if !ok {
		return nil, nil
	}
	return t, nil
}

func TestManagerCreateAndGetProvider(t *testing.T) {
	m := NewManager(&fakeMux{history: "$ "}, &fakeLookup{})

	p, err := m.CreateProvider(constants.ProviderClaudeCode, "t1", "sess", "win", "")
	if err != nil {
		t.Fatalf("CreateProvider() error = %v", err)
	}

	got, err := m.GetProvider(context.Background(), "t1")
	if err != nil {
		t.Fatalf("GetProvider() error = %v", err)
	}
	if got != p {
		t.Fatalf("GetProvider() returned a different instance than CreateProvider")
	}
}

func TestManagerGetProviderRehydratesFromStore(t *testing.T) {
	lookup := &fakeLookup{terminals: map[string]*store.Terminal{
		"t2": {ID: "t2", Session: "sess", Window: "win", ProviderKind: constants.ProviderClaudeCode},
	}}
	m := NewManager(&fakeMux{}, lookup)

	p, err := m.GetProvider(context.Background(), "t2")
	if err != nil {
		t.Fatalf("GetProvider() error = %v", err)
	}
	if p == nil {
		t.Fatalf("GetProvider() = nil, want rehydrated provider")
	}

	again, err := m.GetProvider(context.Background(), "t2")
	if err != nil {
		t.Fatalf("GetProvider() second call error = %v", err)
	}
	if again != p {
		t.Fatalf("GetProvider() did not cache the rehydrated instance")
	}
}

func TestManagerGetProviderUnknownTerminal(t *testing.T) {
	m := NewManager(&fakeMux{}, &fakeLookup{})

	_, err := m.GetProvider(context.Background(), "missing")
	if !errors.Is(err, lib.ErrUnknownTerminal) {
		t.Fatalf("GetProvider() error = %v, want wrapping ErrUnknownTerminal", err)
	}
}

func TestManagerCleanupProviderRemovesEntry(t *testing.T) {
	m := NewManager(&fakeMux{history: "$ "}, &fakeLookup{})
	if _, err := m.CreateProvider(constants.ProviderClaudeCode, "t1", "sess", "win", ""); err != nil {
		t.Fatalf("CreateProvider() error = %v", err)
	}

	m.CleanupProvider("t1")

	if _, ok := m.providers["t1"]; ok {
		t.Fatalf("providers still contains t1 after CleanupProvider")
	}
}

func TestManagerRegisterProviderExtendsRegistry(t *testing.T) {
	const customKind constants.ProviderKind = "custom_test_kind"
	called := false
	RegisterProvider(customKind, func(mux multiplexer.Multiplexer, terminalID, session, window, agentProfile string) (Provider, error) {
		called = true
		return nil, errors.New("unused")
	})
	defer delete(registry, customKind)

	if _, err := New(customKind, &fakeMux{}, "t1", "sess", "win", ""); err == nil {
		t.Fatalf("New() error = nil, want the factory's own error")
	}
	if !called {
		t.Fatalf("RegisterProvider() factory was not invoked by New()")
	}
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New("not_a_real_kind", &fakeMux{}, "t1", "sess", "win", "")
	var unknownErr *UnknownKindError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("New() error = %v, want *UnknownKindError", err)
	}
}

// Package provider implements the Provider state machine (§4.D): one
// variant per agent kind, each turning raw tmux scrollback into a Status
// and extracting the agent's last reply from free-form text.
package provider

import (
	"context"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/constants"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/multiplexer"
)

// Status is the computed, never-stored state of a terminal's agent process.
type Status string

const (
	StatusIdle               Status = "IDLE"
	StatusProcessing         Status = "PROCESSING"
	StatusWaitingUserAnswer  Status = "WAITING_USER_ANSWER"
	StatusCompleted          Status = "COMPLETED"
	StatusError              Status = "ERROR"
)

// Provider is the shared capability interface every agent-kind variant
// implements (§4.D). Initialize is called once; GetStatus and
// ExtractLastMessage are pure over a snapshot of scrollback and safe to
// call concurrently.
type Provider interface {
	Initialize(ctx context.Context) error
	GetStatus(ctx context.Context, tailLines int) (Status, error)
	ExtractLastMessage(scriptOutput string) (string, error)
	ExitCLI() string
	IdlePatternForLog() string
	Cleanup()
}

// Factory constructs a Provider bound to one terminal's multiplexer
// coordinates. agentProfile may be empty for variants that treat it as
// optional.
type Factory func(mux multiplexer.Multiplexer, terminalID, session, window, agentProfile string) (Provider, error)

// registry is the kind -> Factory map backing CreateProvider, initially
// seeded with the six built-in variants and extendable via RegisterProvider
// (§6 "Extension is by registering a new variant implementing the provider
// contract").
var registry = map[constants.ProviderKind]Factory{
	constants.ProviderQCli:        newQCliProvider,
	constants.ProviderKiroCli:     newKiroCliProvider,
	constants.ProviderClaudeCode:  newClaudeCodeProvider,
	constants.ProviderCodex:       newCodexProvider,
	constants.ProviderDroid:       newDroidProvider,
	constants.ProviderOpenAutoGLM: newOpenAutoGLMProvider,
}

// RegisterProvider adds or overrides the factory for kind, the escape hatch
// for a seventh provider kind without modifying this package.
func RegisterProvider(kind constants.ProviderKind, factory Factory) {
	registry[kind] = factory
}

// New constructs a Provider of kind, failing if kind is unregistered or the
// variant rejects its arguments (e.g. q_cli/kiro_cli requiring agentProfile).
func New(kind constants.ProviderKind, mux multiplexer.Multiplexer, terminalID, session, window, agentProfile string) (Provider, error) {
	factory, ok := registry[kind]
	if !ok {
		return nil, &UnknownKindError{Kind: kind}
	}
	return factory(mux, terminalID, session, window, agentProfile)
}

// UnknownKindError is returned by New for an unregistered provider kind.
type UnknownKindError struct {
	Kind constants.ProviderKind
}

func (e *UnknownKindError) Error() string {
	return "unknown provider kind: " + string(e.Kind)
}

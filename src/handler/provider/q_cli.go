package provider

import (
	"fmt"
	"regexp"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/multiplexer"
)

// No authoritative original-source file survived distillation for q_cli;
// it follows the shared generic contract documented in generic.go.
var qCliAssistantPrefixPattern = regexp.MustCompile(`(?im)^(?:q|assistant)\s*:`)

func newQCliProvider(mux multiplexer.Multiplexer, terminalID, session, window, agentProfile string) (Provider, error) {
	if agentProfile == "" {
		return nil, fmt.Errorf("q_cli provider requires a non-empty agent_profile")
	}
	return &genericCLIProvider{
		mux:          mux,
		terminalID:   terminalID,
		session:      session,
		window:       window,
		agentProfile: agentProfile,
		launchCommand: func(profile string) string {
			return "q chat --agent " + shellQuote(profile)
		},
		assistantPrefix: qCliAssistantPrefixPattern,
		exitCommand:     "/quit",
	}, nil
}

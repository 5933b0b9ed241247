package provider

import (
	"fmt"
	"regexp"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/multiplexer"
)

// No authoritative original-source file survived distillation for
// kiro_cli; it follows the same generic contract basis as q_cli.
var kiroCliAssistantPrefixPattern = regexp.MustCompile(`(?im)^(?:kiro|assistant)\s*:`)

func newKiroCliProvider(mux multiplexer.Multiplexer, terminalID, session, window, agentProfile string) (Provider, error) {
	if agentProfile == "" {
		return nil, fmt.Errorf("kiro_cli provider requires a non-empty agent_profile")
	}
	return &genericCLIProvider{
		mux:          mux,
		terminalID:   terminalID,
		session:      session,
		window:       window,
		agentProfile: agentProfile,
		launchCommand: func(profile string) string {
			return "kiro chat --profile " + shellQuote(profile)
		},
		assistantPrefix: kiroCliAssistantPrefixPattern,
		exitCommand:     "/quit",
	}, nil
}

package provider

import (
	"regexp"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/multiplexer"
)

// No authoritative original-source file survived distillation for
// claude_code; it follows the same generic contract basis as q_cli and
// kiro_cli. agent_profile is optional here, unlike q_cli/kiro_cli.
var claudeCodeAssistantPrefixPattern = regexp.MustCompile(`(?im)^(?:Claude|assistant)\s*:`)

func newClaudeCodeProvider(mux multiplexer.Multiplexer, terminalID, session, window, agentProfile string) (Provider, error) {
	return &genericCLIProvider{
		mux:          mux,
		terminalID:   terminalID,
		session:      session,
		window:       window,
		agentProfile: agentProfile,
		launchCommand: func(profile string) string {
			if profile == "" {
				return "claude"
			}
			return "claude --append-system-prompt " + shellQuote(profile)
		},
		assistantPrefix: claudeCodeAssistantPrefixPattern,
		exitCommand:     "/exit",
	}, nil
}

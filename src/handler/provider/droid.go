package provider

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/multiplexer"
	"github.com/yubing744/cli-agent-orchestrator/src/lib"
)

// Grounded verbatim on original_source/providers/droid.py — the
// indistinguishable-from-a-bare-">"-prompt "multi-prompt" heuristic
// referenced in §4.D: >=2 prompts means the agent both acknowledged and
// responded, exactly 1 means freshly idle, 0 means still processing.
var (
	droidPromptPattern     = regexp.MustCompile(`(?m)^\s*>\s*$`)
	droidIdlePatternForLog = `>\s*[\x{2500}-\x{257F}\s]*$`
)

type droidProvider struct {
	mux          multiplexer.Multiplexer
	terminalID   string
	session      string
	window       string
	agentProfile string
	initialized  bool
}

func newDroidProvider(mux multiplexer.Multiplexer, terminalID, session, window, agentProfile string) (Provider, error) {
	return &droidProvider{mux: mux, terminalID: terminalID, session: session, window: window, agentProfile: agentProfile}, nil
}

func (p *droidProvider) Initialize(ctx context.Context) error {
	if p.initialized {
		return nil
	}
	if !waitForShell(ctx, p.mux, p.session, p.window, 10*time.Second) {
		return fmt.Errorf("%w: shell initialization timed out after 10 seconds", lib.ErrTimeout)
	}

	command := "droid"
	if p.agentProfile != "" {
		command = command + " " + shellQuote(p.agentProfile)
	}

	if err := p.mux.SendKeys(ctx, p.session, p.window, command); err != nil {
		return err
	}

	if !waitUntilStatus(ctx, p.GetStatus, StatusIdle, 30*time.Second) {
		return fmt.Errorf("%w: droid initialization timed out after 30 seconds", lib.ErrTimeout)
	}

	p.initialized = true
	return nil
}

func (p *droidProvider) normalizeOutput(output string) string {
	return stripBoxDrawing(stripANSI(output))
}

func (p *droidProvider) GetStatus(ctx context.Context, tailLines int) (Status, error) {
	output, err := p.mux.GetHistory(ctx, p.session, p.window, tailLines)
	if err != nil {
		return "", err
	}
	if output == "" {
		return StatusError, nil
	}

	clean := p.normalizeOutput(output)
	prompts := droidPromptPattern.FindAllStringIndex(clean, -1)

	if len(prompts) == 0 {
		return StatusProcessing, nil
	}
	if len(prompts) >= 2 {
		return StatusCompleted, nil
	}
	return StatusIdle, nil
}

func (p *droidProvider) IdlePatternForLog() string {
	return droidIdlePatternForLog
}

func (p *droidProvider) ExtractLastMessage(scriptOutput string) (string, error) {
	clean := p.normalizeOutput(scriptOutput)
	prompts := droidPromptPattern.FindAllStringIndex(clean, -1)

	if len(prompts) < 2 {
		return "", fmt.Errorf("%w: no complete Droid response found - insufficient prompts", lib.ErrParseNoResponse)
	}

	lastPrompt := prompts[len(prompts)-1]
	prevPrompt := prompts[len(prompts)-2]

	finalAnswer := strings.TrimSpace(clean[prevPrompt[1]:lastPrompt[0]])
	if finalAnswer == "" {
		return "", fmt.Errorf("%w: empty Droid response - no content found", lib.ErrParseEmptyResponse)
	}
	return finalAnswer, nil
}

func (p *droidProvider) ExitCLI() string {
	return "/quit"
}

func (p *droidProvider) Cleanup() {
	p.initialized = false
}

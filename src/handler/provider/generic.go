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

// genericIdlePromptAtEndPattern, genericUserPrefixPattern,
// genericWaitingPromptPattern and genericErrorPattern mirror codex.go's
// shared-contract regex set (§4.D) for the three variants whose
// original-source file did not survive distillation (q_cli, kiro_cli,
// claude_code): a generic assistant-marker / idle-prompt rule set rather
// than a per-variant grounded one. The assistant marker itself is supplied
// per variant through genericCLIProvider.assistantPrefix.
var (
	genericIdlePromptAtEndPattern = regexp.MustCompile(`(?im)(?:^\s*(?:❯|›|>)\s*$)\s*\z`)
	genericUserPrefixPattern      = regexp.MustCompile(`(?im)^You\b`)
	genericWaitingPromptPattern   = regexp.MustCompile(`(?im)^(?:Approve|Allow)\b.*\b(?:y/n|yes/no|yes|no)\b`)
	genericErrorPattern           = regexp.MustCompile(`(?im)^(?:Error:|ERROR:|Traceback \(most recent call last\):|panic:)`)
)

// genericCLIProvider implements the shared assistant-marker/idle-prompt
// contract described in §4.D for variants with no authoritative
// original-source file. assistantPrefix distinguishes each variant's
// reply marker (e.g. "Claude:" vs a bare q/kiro marker).
type genericCLIProvider struct {
	mux             multiplexer.Multiplexer
	terminalID      string
	session         string
	window          string
	agentProfile    string
	initialized     bool
	launchCommand   func(agentProfile string) string
	assistantPrefix *regexp.Regexp
	exitCommand     string
	initTimeout     time.Duration
}

func (p *genericCLIProvider) Initialize(ctx context.Context) error {
	if p.initialized {
		return nil
	}
	if !waitForShell(ctx, p.mux, p.session, p.window, 10*time.Second) {
		return fmt.Errorf("%w: shell initialization timed out after 10 seconds", lib.ErrTimeout)
	}

	if err := p.mux.SendKeys(ctx, p.session, p.window, p.launchCommand(p.agentProfile)); err != nil {
		return err
	}

	timeout := p.initTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if !waitUntilStatus(ctx, p.GetStatus, StatusIdle, timeout) {
		return fmt.Errorf("%w: initialization timed out after %s", lib.ErrTimeout, timeout)
	}

	p.initialized = true
	return nil
}

func (p *genericCLIProvider) GetStatus(ctx context.Context, tailLines int) (Status, error) {
	output, err := p.mux.GetHistory(ctx, p.session, p.window, tailLines)
	if err != nil {
		return "", err
	}
	if output == "" {
		return StatusError, nil
	}

	clean := stripANSI(output)
	tail := tailLinesLast(clean, 25)

	if genericErrorPattern.MatchString(tail) {
		return StatusError, nil
	}
	if genericWaitingPromptPattern.MatchString(tail) {
		return StatusWaitingUserAnswer, nil
	}

	if genericIdlePromptAtEndPattern.MatchString(clean) {
		lastUser := lastMatchIndex(genericUserPrefixPattern, clean)
		if lastUser >= 0 && p.assistantPrefix.MatchString(clean[lastUser:]) {
			return StatusCompleted, nil
		}
		return StatusIdle, nil
	}

	return StatusProcessing, nil
}

func (p *genericCLIProvider) IdlePatternForLog() string {
	return `(?:❯|›|>)`
}

func (p *genericCLIProvider) ExtractLastMessage(scriptOutput string) (string, error) {
	clean := stripANSI(scriptOutput)

	matches := p.assistantPrefix.FindAllStringIndex(clean, -1)
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no response found - no assistant marker detected", lib.ErrParseNoResponse)
	}

	last := matches[len(matches)-1]
	startPos := last[1]

	rest := clean[startPos:]
	endPos := len(clean)
	if loc := genericIdlePromptAtEndPattern.FindStringIndex(rest); loc != nil {
		endPos = startPos + loc[0]
	}

	finalAnswer := strings.TrimSpace(clean[startPos:endPos])
	if finalAnswer == "" {
		return "", fmt.Errorf("%w: empty response - no content found", lib.ErrParseEmptyResponse)
	}
	return finalAnswer, nil
}

func (p *genericCLIProvider) ExitCLI() string {
	return p.exitCommand
}

func (p *genericCLIProvider) Cleanup() {
	p.initialized = false
}

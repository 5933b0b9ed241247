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

// Grounded verbatim on original_source/providers/codex.py — the later,
// conservative state-machine draft adopted per Open Question 1
// (ERROR requires a line-anchored fatal marker).
var (
	codexIdlePromptPattern      = `(?:❯|›|>|codex>|You>?)`
	codexIdlePromptAtEndPattern = regexp.MustCompile(`(?im)(?:^\s*(?:❯|›|>|codex>|You>?)\s*$)\s*\z`)
	codexIdlePatternForLog      = "❯"
	codexAssistantPrefixPattern = regexp.MustCompile(`(?im)^(?:assistant|codex|agent)\s*:`)
	codexUserPrefixPattern      = regexp.MustCompile(`(?im)^You\b`)
	codexWaitingPromptPattern   = regexp.MustCompile(`(?im)^(?:Approve|Allow)\b.*\b(?:y/n|yes/no|yes|no)\b`)
	codexErrorPattern           = regexp.MustCompile(`(?im)^(?:Error:|ERROR:|Traceback \(most recent call last\):|panic:)`)
)

type codexProvider struct {
	mux          multiplexer.Multiplexer
	terminalID   string
	session      string
	window       string
	agentProfile string
	initialized  bool
}

func newCodexProvider(mux multiplexer.Multiplexer, terminalID, session, window, agentProfile string) (Provider, error) {
	return &codexProvider{mux: mux, terminalID: terminalID, session: session, window: window, agentProfile: agentProfile}, nil
}

func (p *codexProvider) Initialize(ctx context.Context) error {
	if p.initialized {
		return nil
	}
	if !waitForShell(ctx, p.mux, p.session, p.window, 10*time.Second) {
		return fmt.Errorf("%w: shell initialization timed out after 10 seconds", lib.ErrTimeout)
	}

	if err := p.mux.SendKeys(ctx, p.session, p.window, "codex"); err != nil {
		return err
	}

	if !waitUntilStatus(ctx, p.GetStatus, StatusIdle, 60*time.Second) {
		return fmt.Errorf("%w: codex initialization timed out after 60 seconds", lib.ErrTimeout)
	}

	p.initialized = true
	return nil
}

func (p *codexProvider) GetStatus(ctx context.Context, tailLines int) (Status, error) {
	output, err := p.mux.GetHistory(ctx, p.session, p.window, tailLines)
	if err != nil {
		return "", err
	}
	if output == "" {
		return StatusError, nil
	}

	clean := stripANSI(output)
	tail := tailLinesLast(clean, 25)

	if codexErrorPattern.MatchString(tail) {
		return StatusError, nil
	}
	if codexWaitingPromptPattern.MatchString(tail) {
		return StatusWaitingUserAnswer, nil
	}

	if codexIdlePromptAtEndPattern.MatchString(clean) {
		lastUser := lastMatchIndex(codexUserPrefixPattern, clean)
		if lastUser >= 0 {
			if codexAssistantPrefixPattern.MatchString(clean[lastUser:]) {
				return StatusCompleted, nil
			}
			return StatusIdle, nil
		}
		return StatusIdle, nil
	}

	return StatusProcessing, nil
}

func (p *codexProvider) IdlePatternForLog() string {
	return codexIdlePatternForLog
}

func (p *codexProvider) ExtractLastMessage(scriptOutput string) (string, error) {
	clean := stripANSI(scriptOutput)

	matches := codexAssistantPrefixPattern.FindAllStringIndex(clean, -1)
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no Codex response found - no assistant marker detected", lib.ErrParseNoResponse)
	}

	last := matches[len(matches)-1]
	startPos := last[1]

	rest := clean[startPos:]
	endPos := len(clean)
	if loc := codexIdlePromptAtEndPattern.FindStringIndex(rest); loc != nil {
		endPos = startPos + loc[0]
	}

	finalAnswer := strings.TrimSpace(clean[startPos:endPos])
	if finalAnswer == "" {
		return "", fmt.Errorf("%w: empty Codex response - no content found", lib.ErrParseEmptyResponse)
	}
	return finalAnswer, nil
}

func (p *codexProvider) ExitCLI() string {
	return "/exit"
}

func (p *codexProvider) Cleanup() {
	p.initialized = false
}

// tailLinesLast returns the last n lines of s joined by "\n".
func tailLinesLast(s string, n int) string {
	return tailLines(s, n)
}

// lastMatchIndex returns the start offset of the last match of re in s, or
// -1 if re does not match.
func lastMatchIndex(re *regexp.Regexp, s string) int {
	matches := re.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return -1
	}
	return matches[len(matches)-1][0]
}

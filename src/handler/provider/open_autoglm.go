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

// Grounded on original_source/providers/open_autoglm.py. The launch
// command runs the OpenAutoGLM main.py directly rather than a dedicated
// CLI binary, so initialization skips the shell-readiness wait and polls
// for the idle prompt for up to 60 seconds.
var (
	openAutoGLMThinkingPattern      = regexp.MustCompile(`💭\s+(?:思考过程|Thinking):`)
	openAutoGLMActionPattern        = regexp.MustCompile(`🎯\s+(?:执行动作|Action):`)
	openAutoGLMResultPattern        = regexp.MustCompile(`(?:最终结果|Final Result|任务结果|Task Result):`)
	openAutoGLMTaskCompletedPattern = regexp.MustCompile(`(?:任务完成|Task Completed|完成|Done)`)
	openAutoGLMErrorPattern         = regexp.MustCompile(`(?i)(?:错误|Error|失败|Failed|连接失败|Connection Failed)`)
	openAutoGLMIdlePromptPattern    = regexp.MustCompile(`Enter your task:|Type 'quit' to exit|Goodbye!`)
	openAutoGLMInteractivePattern   = regexp.MustCompile(`Entering interactive mode|Type 'quit' to exit`)
	openAutoGLMJSONEndPattern       = regexp.MustCompile(`\n\s*}\s*\n`)
)

type openAutoGLMProvider struct {
	mux          multiplexer.Multiplexer
	terminalID   string
	session      string
	window       string
	agentProfile string
	initialized  bool
}

func newOpenAutoGLMProvider(mux multiplexer.Multiplexer, terminalID, session, window, agentProfile string) (Provider, error) {
	return &openAutoGLMProvider{mux: mux, terminalID: terminalID, session: session, window: window, agentProfile: agentProfile}, nil
}

func (p *openAutoGLMProvider) buildCommand() string {
	path := p.agentProfile
	if path == "" {
		path = "~/Workspace/work-assistant/projects/Open-AutoGLM"
	}
	return fmt.Sprintf("cd %s && python main.py", path)
}

func (p *openAutoGLMProvider) Initialize(ctx context.Context) error {
	if p.initialized {
		return nil
	}
	if err := p.mux.SendKeys(ctx, p.session, p.window, p.buildCommand()); err != nil {
		return err
	}

	if !waitUntilStatus(ctx, p.GetStatus, StatusIdle, 60*time.Second) {
		output, _ := p.mux.GetHistory(ctx, p.session, p.window, 20)
		if openAutoGLMErrorPattern.MatchString(output) {
			return fmt.Errorf("OpenAutoGLM initialization failed with error: %s", output)
		}
		return fmt.Errorf("%w: OpenAutoGLM initialization timed out after 60 seconds", lib.ErrTimeout)
	}

	p.initialized = true
	return nil
}

func (p *openAutoGLMProvider) GetStatus(ctx context.Context, tailLines int) (Status, error) {
	output, err := p.mux.GetHistory(ctx, p.session, p.window, tailLines)
	if err != nil {
		return "", err
	}
	if output == "" {
		return StatusError, nil
	}

	if openAutoGLMErrorPattern.MatchString(output) {
		return StatusError, nil
	}
	if openAutoGLMThinkingPattern.MatchString(output) || openAutoGLMActionPattern.MatchString(output) {
		return StatusProcessing, nil
	}
	if openAutoGLMResultPattern.MatchString(output) || openAutoGLMTaskCompletedPattern.MatchString(output) {
		if openAutoGLMIdlePromptPattern.MatchString(output) {
			return StatusCompleted, nil
		}
	}
	if openAutoGLMInteractivePattern.MatchString(output) || openAutoGLMIdlePromptPattern.MatchString(output) {
		return StatusIdle, nil
	}

	return StatusError, nil
}

func (p *openAutoGLMProvider) IdlePatternForLog() string {
	return "Enter your task:"
}

func (p *openAutoGLMProvider) ExtractLastMessage(scriptOutput string) (string, error) {
	var resultStart int
	found := false
	for _, re := range []*regexp.Regexp{openAutoGLMResultPattern, openAutoGLMTaskCompletedPattern} {
		matches := re.FindAllStringIndex(scriptOutput, -1)
		if len(matches) > 0 {
			resultStart = matches[len(matches)-1][1]
			found = true
			break
		}
	}

	if !found {
		actionMatches := openAutoGLMActionPattern.FindAllStringIndex(scriptOutput, -1)
		if len(actionMatches) > 0 {
			startPos := actionMatches[len(actionMatches)-1][1]
			remaining := scriptOutput[startPos:]
			if loc := openAutoGLMJSONEndPattern.FindStringIndex(remaining); loc != nil {
				startPos += loc[1]
				resultLines := extractResultLines(scriptOutput[startPos:], true)
				if len(resultLines) > 0 {
					return strings.TrimSpace(strings.Join(resultLines, "\n")), nil
				}
			}
		}
		return "", fmt.Errorf("%w: no OpenAutoGLM result found in output", lib.ErrParseNoResponse)
	}

	resultLines := extractResultLines(scriptOutput[resultStart:], false)
	if len(resultLines) == 0 {
		return "", fmt.Errorf("%w: empty OpenAutoGLM result", lib.ErrParseEmptyResponse)
	}
	return strings.TrimSpace(strings.Join(resultLines, "\n")), nil
}

// extractResultLines walks lines after a result marker, stopping at the
// first separator once content has accumulated. Blank or separator lines
// before the first content line are skipped whatever the value of
// skipLeadingBlanks; the flag does not change the result.
func extractResultLines(remaining string, skipLeadingBlanks bool) []string {
	var result []string
	for _, line := range strings.Split(remaining, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "=") || strings.HasPrefix(line, "-") {
			if len(result) > 0 {
				break
			}
			if skipLeadingBlanks {
				continue
			}
			continue
		}
		result = append(result, line)
	}
	return result
}

func (p *openAutoGLMProvider) ExitCLI() string {
	return "quit"
}

func (p *openAutoGLMProvider) Cleanup() {
	p.initialized = false
}

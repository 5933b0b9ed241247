package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/yubing744/cli-agent-orchestrator/src/lib"
)

func TestCodexInitializeSendsLaunchCommand(t *testing.T) {
	mux := &fakeMux{history: "$ "}
	p, err := newCodexProvider(mux, "t1", "sess", "win", "")
	if err != nil {
		t.Fatalf("newCodexProvider() error = %v", err)
	}

	codexP := p.(*codexProvider)
	// Make the post-launch poll observe an idle prompt immediately.
	mux.history = "> "

	if err := codexP.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if len(mux.sentKeys) != 1 || mux.sentKeys[0] != "codex" {
		t.Fatalf("sentKeys = %v, want [\"codex\"]", mux.sentKeys)
	}
}

func TestCodexGetStatusIdleWithoutPriorReply(t *testing.T) {
	mux := &fakeMux{history: "❯ "}
	p, _ := newCodexProvider(mux, "t1", "sess", "win", "")

	status, err := p.GetStatus(context.Background(), 25)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status != StatusIdle {
		t.Fatalf("GetStatus() = %v, want %v", status, StatusIdle)
	}
}

func TestCodexGetStatusCompletedAfterAssistantReply(t *testing.T) {
	mux := &fakeMux{history: "You: hi\nassistant: hello there\n❯ "}
	p, _ := newCodexProvider(mux, "t1", "sess", "win", "")

	status, err := p.GetStatus(context.Background(), 25)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status != StatusCompleted {
		t.Fatalf("GetStatus() = %v, want %v", status, StatusCompleted)
	}
}

func TestCodexGetStatusProcessingWithoutIdlePrompt(t *testing.T) {
	mux := &fakeMux{history: "thinking...\n"}
	p, _ := newCodexProvider(mux, "t1", "sess", "win", "")

	status, err := p.GetStatus(context.Background(), 25)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status != StatusProcessing {
		t.Fatalf("GetStatus() = %v, want %v", status, StatusProcessing)
	}
}

func TestCodexGetStatusErrorOnEmptyHistory(t *testing.T) {
	mux := &fakeMux{history: ""}
	p, _ := newCodexProvider(mux, "t1", "sess", "win", "")

	status, err := p.GetStatus(context.Background(), 25)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status != StatusError {
		t.Fatalf("GetStatus() = %v, want %v", status, StatusError)
	}
}

func TestCodexExtractLastMessage(t *testing.T) {
	p, _ := newCodexProvider(&fakeMux{}, "t1", "sess", "win", "")

	msg, err := p.ExtractLastMessage("You: hi\nassistant: hello\nthere\n❯ ")
	if err != nil {
		t.Fatalf("ExtractLastMessage() error = %v", err)
	}
	if msg != "hello\nthere" {
		t.Fatalf("ExtractLastMessage() = %q, want %q", msg, "hello\nthere")
	}
}

func TestCodexExtractLastMessageNoMarker(t *testing.T) {
	p, _ := newCodexProvider(&fakeMux{}, "t1", "sess", "win", "")

	_, err := p.ExtractLastMessage("nothing relevant here")
	if !errors.Is(err, lib.ErrParseNoResponse) {
		t.Fatalf("ExtractLastMessage() error = %v, want wrapping ErrParseNoResponse", err)
	}
}

func TestCodexExitCLIAndIdlePattern(t *testing.T) {
	p, _ := newCodexProvider(&fakeMux{}, "t1", "sess", "win", "")

	if p.ExitCLI() != "/exit" {
		t.Fatalf("ExitCLI() = %q, want %q", p.ExitCLI(), "/exit")
	}
	if p.IdlePatternForLog() != "❯" {
		t.Fatalf("IdlePatternForLog() = %q, want %q", p.IdlePatternForLog(), "❯")
	}
}

package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/yubing744/cli-agent-orchestrator/src/lib"
)

func TestDroidInitializeSendsAgentProfile(t *testing.T) {
	mux := &fakeMux{history: "$ "}
	p, err := newDroidProvider(mux, "t1", "sess", "win", "review this repo")
	if err != nil {
		t.Fatalf("newDroidProvider() error = %v", err)
	}

	mux.history = "> "
	if err := p.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if len(mux.sentKeys) != 1 || mux.sentKeys[0] != "droid 'review this repo'" {
		t.Fatalf("sentKeys = %v, want [\"droid 'review this repo'\"]", mux.sentKeys)
	}
}

func TestDroidInitializeNoProfile(t *testing.T) {
	mux := &fakeMux{history: "$ "}
	p, _ := newDroidProvider(mux, "t1", "sess", "win", "")

	mux.history = "> "
	if err := p.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if len(mux.sentKeys) != 1 || mux.sentKeys[0] != "droid" {
		t.Fatalf("sentKeys = %v, want [\"droid\"]", mux.sentKeys)
	}
}

func TestDroidGetStatusIdleOnePrompt(t *testing.T) {
	mux := &fakeMux{history: "> "}
	p, _ := newDroidProvider(mux, "t1", "sess", "win", "")

	status, err := p.GetStatus(context.Background(), 25)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status != StatusIdle {
		t.Fatalf("GetStatus() = %v, want %v", status, StatusIdle)
	}
}

func TestDroidGetStatusCompletedTwoPrompts(t *testing.T) {
	mux := &fakeMux{history: "> \nassistant response\nmultiple lines\n> "}
	p, _ := newDroidProvider(mux, "t1", "sess", "win", "")

	status, err := p.GetStatus(context.Background(), 25)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status != StatusCompleted {
		t.Fatalf("GetStatus() = %v, want %v", status, StatusCompleted)
	}
}

func TestDroidGetStatusProcessingNoPrompt(t *testing.T) {
	mux := &fakeMux{history: "working...\n"}
	p, _ := newDroidProvider(mux, "t1", "sess", "win", "")

	status, err := p.GetStatus(context.Background(), 25)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status != StatusProcessing {
		t.Fatalf("GetStatus() = %v, want %v", status, StatusProcessing)
	}
}

func TestDroidExtractLastMessageSuccess(t *testing.T) {
	p, _ := newDroidProvider(&fakeMux{}, "t1", "sess", "win", "")

	msg, err := p.ExtractLastMessage("> \nassistant response\nmultiple lines\n> ")
	if err != nil {
		t.Fatalf("ExtractLastMessage() error = %v", err)
	}
	if msg != "assistant response\nmultiple lines" {
		t.Fatalf("ExtractLastMessage() = %q, want %q", msg, "assistant response\nmultiple lines")
	}
}

func TestDroidExtractMessageInsufficientPrompts(t *testing.T) {
	p, _ := newDroidProvider(&fakeMux{}, "t1", "sess", "win", "")

	_, err := p.ExtractLastMessage("> ")
	if !errors.Is(err, lib.ErrParseNoResponse) {
		t.Fatalf("ExtractLastMessage() error = %v, want wrapping ErrParseNoResponse", err)
	}
}

func TestDroidExtractMessageEmptyResponse(t *testing.T) {
	p, _ := newDroidProvider(&fakeMux{}, "t1", "sess", "win", "")

	_, err := p.ExtractLastMessage("> \n> ")
	if !errors.Is(err, lib.ErrParseEmptyResponse) {
		t.Fatalf("ExtractLastMessage() error = %v, want wrapping ErrParseEmptyResponse", err)
	}
}

func TestDroidExitCLIAndIdlePattern(t *testing.T) {
	p, _ := newDroidProvider(&fakeMux{}, "t1", "sess", "win", "")

	if p.ExitCLI() != "/quit" {
		t.Fatalf("ExitCLI() = %q, want %q", p.ExitCLI(), "/quit")
	}
	if p.IdlePatternForLog() != droidIdlePatternForLog {
		t.Fatalf("IdlePatternForLog() = %q, want %q", p.IdlePatternForLog(), droidIdlePatternForLog)
	}
}

package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/yubing744/cli-agent-orchestrator/src/lib"
)

func TestOpenAutoGLMBuildCommandDefaultPath(t *testing.T) {
	p, _ := newOpenAutoGLMProvider(&fakeMux{}, "t1", "sess", "win", "")
	glm := p.(*openAutoGLMProvider)

	if got := glm.buildCommand(); got != "cd ~/Workspace/work-assistant/projects/Open-AutoGLM && python main.py" {
		t.Fatalf("buildCommand() = %q, want default project path", got)
	}
}

func TestOpenAutoGLMBuildCommandCustomPath(t *testing.T) {
	p, _ := newOpenAutoGLMProvider(&fakeMux{}, "t1", "sess", "win", "/opt/glm")
	glm := p.(*openAutoGLMProvider)

	if got := glm.buildCommand(); got != "cd /opt/glm && python main.py" {
		t.Fatalf("buildCommand() = %q, want %q", got, "cd /opt/glm && python main.py")
	}
}

func TestOpenAutoGLMInitializeSendsCommand(t *testing.T) {
	mux := &fakeMux{history: "Enter your task:"}
	p, _ := newOpenAutoGLMProvider(mux, "t1", "sess", "win", "")

	if err := p.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if len(mux.sentKeys) != 1 {
		t.Fatalf("sentKeys = %v, want one command", mux.sentKeys)
	}
}

func TestOpenAutoGLMGetStatusProcessing(t *testing.T) {
	mux := &fakeMux{history: "💭 Thinking: planning next step"}
	p, _ := newOpenAutoGLMProvider(mux, "t1", "sess", "win", "")

	status, err := p.GetStatus(context.Background(), 25)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status != StatusProcessing {
		t.Fatalf("GetStatus() = %v, want %v", status, StatusProcessing)
	}
}

func TestOpenAutoGLMGetStatusIdle(t *testing.T) {
	mux := &fakeMux{history: "Enter your task:"}
	p, _ := newOpenAutoGLMProvider(mux, "t1", "sess", "win", "")

	status, err := p.GetStatus(context.Background(), 25)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status != StatusIdle {
		t.Fatalf("GetStatus() = %v, want %v", status, StatusIdle)
	}
}

func TestOpenAutoGLMGetStatusError(t *testing.T) {
	mux := &fakeMux{history: "Connection Failed: adb device not found"}
	p, _ := newOpenAutoGLMProvider(mux, "t1", "sess", "win", "")

	status, err := p.GetStatus(context.Background(), 25)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status != StatusError {
		t.Fatalf("GetStatus() = %v, want %v", status, StatusError)
	}
}

func TestOpenAutoGLMExtractLastMessageFromResult(t *testing.T) {
	p, _ := newOpenAutoGLMProvider(&fakeMux{}, "t1", "sess", "win", "")

	output := "🎯 Action: tap button\nFinal Result:\nopened the settings screen\ndone\n===\nEnter your task:"
	msg, err := p.ExtractLastMessage(output)
	if err != nil {
		t.Fatalf("ExtractLastMessage() error = %v", err)
	}
	if msg != "opened the settings screen\ndone" {
		t.Fatalf("ExtractLastMessage() = %q, want %q", msg, "opened the settings screen\ndone")
	}
}

func TestOpenAutoGLMExtractLastMessageNoResult(t *testing.T) {
	p, _ := newOpenAutoGLMProvider(&fakeMux{}, "t1", "sess", "win", "")

	_, err := p.ExtractLastMessage("nothing of interest here")
	if !errors.Is(err, lib.ErrParseNoResponse) {
		t.Fatalf("ExtractLastMessage() error = %v, want wrapping ErrParseNoResponse", err)
	}
}

func TestOpenAutoGLMExitCLI(t *testing.T) {
	p, _ := newOpenAutoGLMProvider(&fakeMux{}, "t1", "sess", "win", "")

	if p.ExitCLI() != "quit" {
		t.Fatalf("ExitCLI() = %q, want %q", p.ExitCLI(), "quit")
	}
}

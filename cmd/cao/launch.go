package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/yubing744/cli-agent-orchestrator/src/cli/prefs"
)

type createTerminalResponse struct {
	ID           string `json:"id"`
	Session      string `json:"session"`
	Window       string `json:"window"`
	Provider     string `json:"provider_kind"`
	AgentProfile string `json:"agent_profile"`
}

// runLaunch creates a session via the Control API and, unless --headless is
// set, execs `tmux attach -t <session>` to hand the terminal to the caller
// (§6 CLI surface).
func runLaunch(args []string) {
	fs := flag.NewFlagSet("launch", flag.ExitOnError)
	agentProfile := fs.String("agents", "", "agent profile to launch (required)")
	sessionName := fs.String("session-name", "", "multiplexer session name (default: generated)")
	headless := fs.Bool("headless", false, "do not attach to the session after creation")
	providerKind := fs.String("provider", "", "provider kind (default: from stored preference, else claude_code)")
	fs.Parse(args)

	if *agentProfile == "" {
		fmt.Fprintln(os.Stderr, "launch: --agents is required")
		os.Exit(1)
	}

	kind := *providerKind
	if kind == "" {
		kind = prefs.GetInstalledProvider(*agentProfile)
	}
	if kind == "" {
		kind = "claude_code"
	}

	reqBody := map[string]string{
		"agent_profile": *agentProfile,
		"provider_kind": kind,
	}
	if *sessionName != "" {
		reqBody["session_name"] = *sessionName
	}

	var resp createTerminalResponse
	if err := postJSON("/terminals", reqBody, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "launch: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created terminal %s (session=%s, window=%s, provider=%s)\n", resp.ID, resp.Session, resp.Window, resp.Provider)

	if *headless {
		return
	}

	tmuxPath, err := exec.LookPath("tmux")
	if err != nil {
		fmt.Fprintln(os.Stderr, "launch: tmux not found on PATH, pass --headless to skip attaching")
		os.Exit(1)
	}

	attachArgs := []string{"tmux", "attach", "-t", resp.Session}
	if err := syscall.Exec(tmuxPath, attachArgs, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "launch: failed to attach: %v\n", err)
		os.Exit(1)
	}
}

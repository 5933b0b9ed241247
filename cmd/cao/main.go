// Command cao is the CLI surface (§6) fronting the orchestrator's Control
// API: thin HTTP clients for launching and installing agent profiles,
// grounded on the subcommand-dispatch idiom of
// mkober-muxcode/tools/muxcoder-agent-bus/main.go.
package main

import (
	"fmt"
	"os"
)

var usage = `Usage: cao <command> [args...]

Commands:
  launch      Create a terminal via the Control API and (optionally) attach to it
  install     Record the provider preference for an agent profile
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	subcmd := os.Args[1]
	args := os.Args[2:]

	switch subcmd {
	case "launch":
		runLaunch(args)
	case "install":
		runInstall(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", subcmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

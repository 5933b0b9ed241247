package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/yubing744/cli-agent-orchestrator/src/cli/prefs"
)

// runInstall records the provider choice for an agent profile materialized
// from source. Actual profile file-layout and provider-config templating
// are outside the core's scope (§1 Non-goals); the preference bookkeeping
// is implemented here since `launch`'s provider defaulting depends on it.
func runInstall(args []string) {
	fs := flag.NewFlagSet("install", flag.ExitOnError)
	providerKind := fs.String("provider", "claude_code", "provider kind to record for this profile")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "install: usage: cao install <source> [--provider <kind>]")
		os.Exit(1)
	}
	source := fs.Arg(0)

	if err := prefs.SetInstalledProvider(source, *providerKind); err != nil {
		fmt.Fprintf(os.Stderr, "install: failed to record provider preference: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Recorded provider %q for agent profile %q\n", *providerKind, source)
}

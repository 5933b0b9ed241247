package provider

import "strings"

// shellQuote single-quotes s for safe inclusion in a tmux send-keys command
// line, mirroring Python's shlex.quote used throughout the original
// providers when interpolating an agent profile into a launch command.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

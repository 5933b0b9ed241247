package provider

import (
	"regexp"
	"strings"
)

// ansiCodePattern strips CSI escape sequences (e.g. color codes) that tmux
// panes emit, per §4.D's shared parsing contract.
var ansiCodePattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// boxDrawingPattern strips Unicode box-drawing characters (U+2500-U+257F)
// some variants render around a framed prompt.
var boxDrawingPattern = regexp.MustCompile(`[\x{2500}-\x{257F}]`)

// stripANSI removes ANSI CSI sequences from s.
func stripANSI(s string) string {
	return ansiCodePattern.ReplaceAllString(s, "")
}

// stripBoxDrawing removes box-drawing glyphs from s.
func stripBoxDrawing(s string) string {
	return boxDrawingPattern.ReplaceAllString(s, "")
}

// normalize is the two-step cleanup every variant applies before status
// evaluation: strip ANSI, and for variants with a framed prompt, box-drawing.
func normalize(s string, stripBox bool) string {
	out := stripANSI(s)
	if stripBox {
		out = stripBoxDrawing(out)
	}
	return out
}

// tailLines returns the last n lines of s (empty lines included) joined by "\n",
// or all of s if it has fewer than n lines. Used to bound status evaluation
// to the last K (25 default) lines per §4.D.
func tailLines(s string, n int) string {
	if n <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

package runner

import (
	"os"
	"strings"
)

// portableTERM maps terminal identifiers whose terminfo entries are often
// missing on the host to a widely installed compatible entry.
var portableTERM = map[string]string{
	"xterm-ghostty": "xterm-256color",
	"xterm-kitty":   "xterm-256color",
	"wezterm":       "xterm-256color",
}

// normalizeTERMForBubbleTea swaps TERM for a portable equivalent while a
// Bubble Tea program runs. The returned function restores the previous value.
func normalizeTERMForBubbleTea() func() {
	prev, existed := os.LookupEnv("TERM")
	replacement, ok := portableTERM[strings.ToLower(strings.TrimSpace(prev))]
	if !existed || !ok {
		return func() {}
	}

	_ = os.Setenv("TERM", replacement)
	return func() {
		_ = os.Setenv("TERM", prev)
	}
}

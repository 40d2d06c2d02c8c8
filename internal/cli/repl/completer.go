package repl

import (
	"sort"
	"strings"
)

// Completer suggests commands and screen names.
type Completer struct {
	commands []string
	screens  []string
}

// NewCompleter creates a completer for the given screen names.
func NewCompleter(screens []string) *Completer {
	commands := make([]string, 0, len(commandHelp))
	for _, c := range commandHelp {
		commands = append(commands, c.name)
	}
	sort.Strings(commands)
	return &Completer{commands: commands, screens: screens}
}

// Complete returns full-line suggestions for a partial line.
func (c *Completer) Complete(line string) []string {
	if rest, ok := strings.CutPrefix(line, "open "); ok {
		var out []string
		for _, s := range c.screens {
			if strings.HasPrefix(s, rest) {
				out = append(out, "open "+s)
			}
		}
		return out
	}

	var out []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, line) {
			out = append(out, cmd)
		}
	}
	return out
}

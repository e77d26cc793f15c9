package popup

import (
	"fmt"
	"io"
)

// TerminalView prints the popup state.
type TerminalView struct {
	W io.Writer
}

// Render writes the button states and the status line.
func (v TerminalView) Render(s State) {
	fmt.Fprintf(v.W, "[%s] [%s] %s\n", button("Start", s.StartEnabled), button("Stop", s.StopEnabled), s.Status)
}

func button(label string, enabled bool) string {
	if enabled {
		return label
	}
	return label + " (disabled)"
}

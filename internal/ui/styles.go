package ui

import (
	"fmt"

	"github.com/alfredjeanlab/secondscreen/internal/model"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent  = 74  // blue
	colorMuted   = 245 // medium gray
	colorBusy    = 214 // orange
	colorWaiting = 203 // red
	colorIdle    = 114 // green
	colorCommand = 150 // light green
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	return render(colorAccent, s)
}

// RenderCommand returns a command name in the command color.
func RenderCommand(s string) string {
	return render(colorCommand, s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	return render(colorMuted, s)
}

// RenderStatus returns the display label for st in its status color.
// Waiting sessions stand out most since they need the user.
func RenderStatus(st model.Status) string {
	label := st.Label()
	switch st {
	case model.StatusWaiting:
		return render(colorWaiting, label)
	case model.StatusBusy:
		return render(colorBusy, label)
	case model.StatusIdle:
		return render(colorIdle, label)
	}
	return RenderMuted(label)
}

// SetColor enables or disables color output globally.
func SetColor(enabled bool) {
	noColor = !enabled
}

// Package ui styles CLI output.
package ui

import (
	"fmt"

	"github.com/alfredjeanlab/eventboard/internal/model"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent  = 74  // blue
	colorCmd     = 250 // light gray
	colorMuted   = 245 // medium gray
	colorSuccess = 114 // green
	colorWarning = 179 // amber
	colorError   = 203 // red
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(colorCmd, s) }

// RenderStatus colors an event status: red while occurring, green once
// resolved.
func RenderStatus(s model.Status) string {
	switch s {
	case model.StatusOccurring:
		return render(colorError, s.String())
	case model.StatusResolved:
		return render(colorSuccess, s.String())
	}
	return s.String()
}

// RenderSeverity colors s by toast severity.
func RenderSeverity(sev model.Severity, s string) string {
	switch sev {
	case model.SeveritySuccess:
		return render(colorSuccess, s)
	case model.SeverityWarning:
		return render(colorWarning, s)
	case model.SeverityError:
		return render(colorError, s)
	case model.SeverityInfo:
		return render(colorAccent, s)
	}
	return s
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

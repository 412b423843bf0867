package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive colors matching the CLI palette.
var (
	colorDim    = lipgloss.AdaptiveColor{Light: "242", Dark: "240"}
	colorGreen  = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "30", Dark: "45"}
	colorYellow = lipgloss.AdaptiveColor{Light: "136", Dark: "220"}
)

var (
	styleProgress = lipgloss.NewStyle().Foreground(colorDim)
	styleArtifact = lipgloss.NewStyle().Foreground(colorYellow)
	styleTerminal = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	styleScope    = lipgloss.NewStyle().Foreground(colorCyan)
)

// ConsoleSink prints events to stdout with semantic styling.
type ConsoleSink struct{}

// NewConsoleSink creates a console sink.
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{}
}

// Notify implements Sink.
func (c *ConsoleSink) Notify(ev Event) {
	scope := ""
	if ev.WorkspaceID != "" {
		scope = styleScope.Render("["+ev.WorkspaceID+"] ")
	}
	switch ev.Kind {
	case KindProgress:
		fmt.Println(scope + styleProgress.Render(ev.Message))
	case KindArtifact:
		msg := ev.Message
		if ev.ArtifactPath != "" {
			msg += " → " + ev.ArtifactPath
		}
		fmt.Println(scope + styleArtifact.Render(msg))
	case KindTerminal:
		fmt.Println(scope + styleTerminal.Render(ev.Message))
	}
}

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"storeseo-cli/internal/session"
)

var (
	modeActiveStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("86")).Bold(true)
	modeEnabledStyle  = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("252"))
	modeDisabledStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("240")).Faint(true)
	modeHintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
)

// ModeKeys are the shortcuts for the mode buttons, in Modes() order.
var ModeKeys = []string{"alt+1", "alt+2", "alt+3"}

// ModeForKey maps a mode shortcut to its mode.
func ModeForKey(key string) (session.ExecutionMode, bool) {
	modes := session.Modes()
	for i, k := range ModeKeys {
		if k == key && i < len(modes) {
			return modes[i], true
		}
	}
	return "", false
}

// RenderModeBar draws one button per execution mode. The current mode is
// highlighted; a button is dimmed when pressing it would do nothing.
func RenderModeBar(s session.Snapshot) string {
	if s.Context == nil {
		if s.IsLoadingContext {
			return modeHintStyle.Render("Loading store context...")
		}
		return modeHintStyle.Render("Store context unavailable")
	}

	var buttons []string
	for i, m := range session.Modes() {
		label := "[" + strings.TrimPrefix(ModeKeys[i], "alt+") + "] " + string(m)
		switch {
		case s.Context.ExecutionMode == m:
			buttons = append(buttons, modeActiveStyle.Render(label))
		case !s.CanSwitchTo(m):
			buttons = append(buttons, modeDisabledStyle.Render(label))
		default:
			buttons = append(buttons, modeEnabledStyle.Render(label))
		}
	}

	desc := s.Context.ExecutionMode.Description()
	if s.IsSwitchingMode {
		desc = "switching..."
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, strings.Join(buttons, " "), "  ", modeHintStyle.Render(desc))
}

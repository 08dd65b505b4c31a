package tui

import (
	"github.com/charmbracelet/lipgloss"

	"storeseo-cli/internal/session"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("160")).
			Padding(0, 1)
	creditsBannerStyle = bannerStyle.Background(lipgloss.Color("166"))
)

// RenderErrorBanner draws the single error slot, or nothing when it is empty.
func RenderErrorBanner(s session.Snapshot, width int) string {
	if !s.HasError() {
		return ""
	}
	style := bannerStyle
	if s.ErrorKind == session.KindInsufficientCredits {
		style = creditsBannerStyle
	}
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render("⚠ " + s.Error + "  [esc] dismiss")
}

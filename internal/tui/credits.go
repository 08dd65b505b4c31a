package tui

import (
	"github.com/charmbracelet/lipgloss"

	"storeseo-cli/internal/session"
)

var severityColors = map[session.Severity]lipgloss.Color{
	session.SeverityHealthy:  lipgloss.Color("42"),
	session.SeverityLow:      lipgloss.Color("214"),
	session.SeverityCritical: lipgloss.Color("196"),
}

// RenderCreditsBadge shows the remaining balance coloured by severity, or
// nothing when no ledger has been received.
func RenderCreditsBadge(ledger *session.CreditLedger) string {
	if ledger == nil {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(severityColors[ledger.Severity()]).
		Bold(ledger.Severity() != session.SeverityHealthy).
		Render(ledger.Display())
}

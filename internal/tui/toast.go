package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ToastDuration is how long a notice stays up.
const ToastDuration = 3 * time.Second

// ToastModel is a transient right-aligned notice, shown after a mode change or
// a clipboard copy.
type ToastModel struct {
	message   string
	visible   bool
	timestamp time.Time
	width     int
}

// ShowToastMsg displays Message, replacing any toast already visible.
type ShowToastMsg struct{ Message string }

// HideToastMsg hides the toast shown at shownAt. Hides for older toasts are ignored.
type HideToastMsg struct{ shownAt time.Time }

func NewToastModel() ToastModel { return ToastModel{} }

func (m ToastModel) Update(msg tea.Msg) (ToastModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ShowToastMsg:
		m.message = msg.Message
		m.visible = true
		m.timestamp = time.Now()
		shownAt := m.timestamp
		return m, tea.Tick(ToastDuration, func(time.Time) tea.Msg { return HideToastMsg{shownAt: shownAt} })
	case HideToastMsg:
		if msg.shownAt.IsZero() || msg.shownAt.Equal(m.timestamp) {
			m.visible = false
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	}
	return m, nil
}

func (m ToastModel) Visible() bool { return m.visible }

func (m ToastModel) View() string {
	if !m.visible {
		return ""
	}
	toast := lipgloss.NewStyle().
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("86")).
		Padding(0, 2).
		MarginRight(2).
		Bold(true).
		Render(m.message)
	if m.width <= 0 {
		return toast
	}
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, toast)
}

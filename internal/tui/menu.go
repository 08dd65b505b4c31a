package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const menuWidth = 64

// QuickActionSelectedMsg reports the chosen quick action. Selecting only
// prefills the input; the owner decides what to do with it.
type QuickActionSelectedMsg struct {
	Index int
	Text  string
}

// QuickMenuModel is the overlay listing quick-action prompts.
type QuickMenuModel struct {
	active  bool
	cursor  int
	actions []string
	width   int
	height  int

	focusedStyle lipgloss.Style
	itemStyle    lipgloss.Style
	headerStyle  lipgloss.Style
	hintStyle    lipgloss.Style
	borderStyle  lipgloss.Style
}

func NewQuickMenuModel(actions []string) QuickMenuModel {
	return QuickMenuModel{
		actions:      append([]string(nil), actions...),
		focusedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
		itemStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		headerStyle:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		hintStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		borderStyle:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("86")).Padding(1, 2),
	}
}

// SetActions replaces the listed prompts, keeping the cursor in range.
func (m *QuickMenuModel) SetActions(actions []string) {
	m.actions = append([]string(nil), actions...)
	if m.cursor >= len(m.actions) {
		m.cursor = 0
	}
}

func (m *QuickMenuModel) Open() {
	m.active = true
	m.cursor = 0
}

func (m QuickMenuModel) IsActive() bool { return m.active }

func (m QuickMenuModel) Update(msg tea.Msg) (QuickMenuModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if !m.active {
			return m, nil
		}
		switch key := msg.String(); key {
		case "esc", "ctrl+q":
			m.active = false
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			} else if len(m.actions) > 0 {
				m.cursor = len(m.actions) - 1
			}
		case "down", "j":
			if m.cursor < len(m.actions)-1 {
				m.cursor++
			} else {
				m.cursor = 0
			}
		case "enter":
			return m.selectIndex(m.cursor)
		default:
			if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
				return m.selectIndex(int(key[0] - '1'))
			}
		}
	}
	return m, nil
}

func (m QuickMenuModel) selectIndex(i int) (QuickMenuModel, tea.Cmd) {
	if i < 0 || i >= len(m.actions) {
		return m, nil
	}
	m.active = false
	text := m.actions[i]
	return m, func() tea.Msg { return QuickActionSelectedMsg{Index: i, Text: text} }
}

func (m QuickMenuModel) View() string {
	if !m.active {
		return ""
	}
	var content strings.Builder
	header := m.headerStyle.Render("Quick actions")
	closeHint := m.hintStyle.Render("[ESC to close]")
	gap := menuWidth - lipgloss.Width(header) - lipgloss.Width(closeHint) - 4
	if gap < 1 {
		gap = 1
	}
	content.WriteString(header + strings.Repeat(" ", gap) + closeHint + "\n")
	content.WriteString(strings.Repeat("─", menuWidth-4) + "\n\n")

	if len(m.actions) == 0 {
		content.WriteString(m.hintStyle.Render("(no quick actions configured)") + "\n")
	}
	for i, action := range m.actions {
		cursor := "  "
		style := m.itemStyle
		if i == m.cursor {
			cursor = "→ "
			style = m.focusedStyle
		}
		lines := wrapText(action, menuWidth-12)
		content.WriteString(style.Render(fmt.Sprintf("%s%d. %s", cursor, i+1, lines[0])) + "\n")
		for _, l := range lines[1:] {
			content.WriteString(style.Render("     "+l) + "\n")
		}
	}

	content.WriteString("\n" + m.hintStyle.Render("↑↓: navigate  Enter/1-9: fill input  Esc: close"))
	return m.positionMenu(m.borderStyle.Width(menuWidth).Render(content.String()))
}

// positionMenu centres content in the last known window size.
func (m QuickMenuModel) positionMenu(content string) string {
	lines := strings.Split(content, "\n")
	contentWidth := 0
	for _, line := range lines {
		if w := lipgloss.Width(line); w > contentWidth {
			contentWidth = w
		}
	}
	topPadding := 0
	if m.height > 0 {
		topPadding = max(0, (m.height-len(lines))/2)
	}
	leftPadding := max(0, (m.width-contentWidth)/2)

	var result strings.Builder
	result.WriteString(strings.Repeat("\n", topPadding))
	for _, line := range lines {
		result.WriteString(strings.Repeat(" ", leftPadding))
		result.WriteString(line)
		result.WriteString("\n")
	}
	return result.String()
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		switch {
		case current == "":
			current = word
		case len(current)+len(word)+1 <= width:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

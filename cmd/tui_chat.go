package cmd

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"

	"storeseo-cli/cmd/utils"
	"storeseo-cli/internal/session"
	uitk "storeseo-cli/internal/tui"
)

const (
	assistantLabel = "StoreSEO AI"
	gap            = "\n\n"
)

var (
	titleStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#008060")).
			Foreground(lipgloss.Color("#ffffff")).
			Bold(true).
			PaddingLeft(1).
			PaddingRight(1)
	launcherStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#008060")).
			Padding(0, 1)
	hintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

// writeClipboard is swapped in tests.
var writeClipboard = clipboard.WriteAll

type (
	stateChangedMsg struct{}
	sendDoneMsg     struct{ err error }
	modeDoneMsg     struct {
		target session.ExecutionMode
		err    error
	}
	copyDoneMsg struct{ err error }
)

// widgetModel renders a session.Controller. The controller owns all session
// state; the model only mirrors the latest snapshot.
type widgetModel struct {
	ctx     context.Context
	ctrl    *session.Controller
	changes <-chan struct{}
	snap    session.Snapshot

	spin      spinner.Model
	viewport  viewport.Model
	textarea  textarea.Model
	quickMenu uitk.QuickMenuModel
	toast     uitk.ToastModel

	width      int
	termHeight int
	menuActive bool

	transcript    string
	transcriptKey string
}

// runWidgetTUI opens the assistant widget and blocks until the user quits.
func runWidgetTUI(ctx context.Context) error {
	changes := make(chan struct{}, 1)
	a, err := newAssistant(session.WithNotify(func() {
		// Coalesce: one pending wake-up is enough, the model reads a fresh snapshot
		select {
		case changes <- struct{}{}:
		default:
		}
	}))
	if err != nil {
		return err
	}

	m := newWidgetModel(ctx, a.ctrl, changes)
	p := tea.NewProgram(m, tea.WithMouseCellMotion())

	utils.SetTUIMode(p)
	defer utils.ClearTUIMode()

	watcher, err := StartQuickActionWatcher(utils.GetEffectiveCWD(), a.cfg.QuickActions, func(actions []string) {
		a.ctrl.SetQuickActions(actions)
		utils.OutputInfo("Quick actions reloaded")
	})
	if err != nil {
		utils.LogDebug(fmt.Sprintf("config hot reload disabled: %v", err))
	} else {
		defer watcher.Stop()
	}

	a.ctrl.Open(ctx)
	_, err = p.Run()
	// Abandon anything still in flight
	a.ctrl.Reset()
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

func newWidgetModel(ctx context.Context, ctrl *session.Controller, changes <-chan struct{}) widgetModel {
	ta := textarea.New()
	ta.Placeholder = "Ask about your store's SEO..."
	ta.Focus()
	ta.Prompt = "> "
	ta.CharLimit = 2000
	ta.SetWidth(30)
	ta.SetHeight(1)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	// Only page keys scroll; everything else belongs to the input
	vp := viewport.New(30, 5)
	vp.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	width, height := 80, 24
	if w, h, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		width, height = w, h
	}

	m := widgetModel{
		ctx:        ctx,
		ctrl:       ctrl,
		changes:    changes,
		spin:       s,
		viewport:   vp,
		textarea:   ta,
		quickMenu:  uitk.NewQuickMenuModel(ctrl.QuickActions()),
		toast:      uitk.NewToastModel(),
		width:      width,
		termHeight: height,
	}
	m.textarea.SetWidth(max(10, width-2))
	m.applySnapshot()
	return m
}

func listenForChanges(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return stateChangedMsg{}
	}
}

func (m widgetModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, textarea.Blink, listenForChanges(m.changes))
}

func (m widgetModel) sendCmd(text string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return sendDoneMsg{err: ctrl.Send(ctx, text)}
	}
}

func (m widgetModel) modeCmd(target session.ExecutionMode) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return modeDoneMsg{target: target, err: ctrl.RequestModeChange(ctx, target)}
	}
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return copyDoneMsg{err: writeClipboard(text)}
	}
}

func (m widgetModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	menuWasActive := m.quickMenu.IsActive()
	m.quickMenu, cmd = m.quickMenu.Update(msg)
	cmds = append(cmds, cmd)
	if menuWasActive && !m.quickMenu.IsActive() {
		m.menuActive = false
		m.syncFocus()
	}

	m.toast, cmd = m.toast.Update(msg)
	cmds = append(cmds, cmd)
	m.spin, cmd = m.spin.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.termHeight = msg.Height
		m.textarea.SetWidth(max(10, msg.Width-2))
		m.transcriptKey = ""
		m.refreshViewportBottom()

	case stateChangedMsg:
		m.applySnapshot()
		cmds = append(cmds, listenForChanges(m.changes))

	case sendDoneMsg:
		m.applySnapshot()

	case modeDoneMsg:
		m.applySnapshot()
		if msg.err == nil && m.snap.Context != nil && m.snap.Context.ExecutionMode == msg.target {
			cmds = append(cmds, m.showToast(fmt.Sprintf("Execution mode changed to %s", msg.target)))
		}

	case copyDoneMsg:
		if msg.err != nil {
			utils.LogDebug(fmt.Sprintf("clipboard write failed: %v", msg.err))
			cmds = append(cmds, m.showToast("Could not copy to clipboard"))
		} else {
			cmds = append(cmds, m.showToast("Copied last reply to clipboard"))
		}

	case uitk.QuickActionSelectedMsg:
		if err := m.ctrl.ApplyQuickAction(msg.Index); err != nil {
			utils.LogDebug(fmt.Sprintf("quick action: %v", err))
			break
		}
		m.applySnapshot()

	case utils.TUIMessageMsg:
		// Debug lines already went to the log file
		if msg.Message.Type != utils.DebugMessage {
			cmds = append(cmds, m.showToast(utils.FormatMessage(msg.Message)))
		}

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.ctrl.CancelSend() {
				return m, tea.Batch(cmds...)
			}
			return m, tea.Quit
		}
		if menuWasActive {
			return m, tea.Batch(cmds...)
		}
		cmds = append(cmds, m.handleKey(msg))
	}

	return m, tea.Batch(cmds...)
}

func (m *widgetModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch k := msg.String(); k {
	case "ctrl+o":
		if m.snap.IsOpen {
			m.ctrl.Close()
		} else {
			m.ctrl.Open(m.ctx)
		}
		m.applySnapshot()
		return nil

	case "ctrl+q":
		if !m.snap.IsOpen {
			return nil
		}
		m.quickMenu.SetActions(m.ctrl.QuickActions())
		m.quickMenu.Open()
		m.menuActive = true
		m.syncFocus()
		return nil

	case "ctrl+y":
		if reply, ok := m.snap.LastAssistantMessage(); ok {
			return copyToClipboard(reply)
		}
		return m.showToast("Nothing to copy yet")

	case "esc":
		m.ctrl.DismissError()
		m.applySnapshot()
		return nil

	case "enter":
		if !m.snap.IsOpen || m.snap.IsSending {
			return nil
		}
		text := m.textarea.Value()
		if strings.TrimSpace(text) == "" {
			return nil
		}
		m.textarea.Reset()
		m.ctrl.SetInput("")
		return m.sendCmd(text)

	default:
		if target, ok := uitk.ModeForKey(k); ok {
			if m.snap.CanSwitchTo(target) {
				return m.modeCmd(target)
			}
			return nil
		}
	}

	if !m.snap.IsOpen || m.snap.IsSending {
		return nil
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	if v := m.textarea.Value(); v != m.snap.Input {
		m.snap.Input = v
		m.ctrl.SetInput(v)
	}
	return cmd
}

func (m *widgetModel) showToast(text string) tea.Cmd {
	var cmd tea.Cmd
	m.toast, cmd = m.toast.Update(uitk.ShowToastMsg{Message: text})
	return cmd
}

// applySnapshot pulls the controller state into the view.
func (m *widgetModel) applySnapshot() {
	m.snap = m.ctrl.Snapshot()
	if m.snap.Input != m.textarea.Value() {
		m.textarea.SetValue(m.snap.Input)
		m.textarea.CursorEnd()
	}
	m.quickMenu.SetActions(m.ctrl.QuickActions())
	m.syncFocus()
	m.refreshViewportBottom()
}

// syncFocus disables the input while a send is in flight or an overlay is up.
func (m *widgetModel) syncFocus() {
	if m.snap.IsSending || !m.snap.IsOpen || m.menuActive {
		m.textarea.Blur()
	} else {
		m.textarea.Focus()
	}
}

func (m *widgetModel) refreshViewportBottom() {
	header := lipgloss.Height(renderWidgetHeader(*m))
	footer := lipgloss.Height(renderWidgetInput(*m))
	m.viewport.Width = m.width
	m.viewport.Height = max(1, m.termHeight-header-footer)
	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(renderWidgetContent(m)))
	m.viewport.GotoBottom()
}

func computeTranscriptKey(messages []session.ChatTurn, width int) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d/%d", len(messages), width)
	if n := len(messages); n > 0 {
		io.WriteString(h, string(messages[n-1].Role))
		io.WriteString(h, messages[n-1].Content)
	}
	return fmt.Sprintf("%x", h.Sum64())
}

// renderTranscript re-renders only when the message log or width changed;
// glamour is too slow to run on every spinner tick.
func renderTranscript(m *widgetModel) string {
	key := computeTranscriptKey(m.snap.Messages, m.width)
	if key == m.transcriptKey {
		return m.transcript
	}

	var b strings.Builder
	base := lipgloss.NewStyle()
	for _, turn := range m.snap.Messages {
		switch turn.Role {
		case session.RoleAssistant:
			label := base.Foreground(lipgloss.Color("11")).Render(assistantLabel)
			b.WriteString(label + "\n" + uitk.RenderMarkdown(turn.Content, max(20, m.width-4)) + gap)
		case session.RoleUser:
			style := base.Foreground(lipgloss.Color("#ccc"))
			b.WriteString(style.Bold(true).Render("> ") + style.Render(turn.Content) + gap)
		}
	}
	m.transcript, m.transcriptKey = b.String(), key
	return m.transcript
}

func renderWidgetContent(m *widgetModel) string {
	if len(m.snap.Messages) == 0 && !m.snap.IsSending {
		return hintStyle.Render("Ask anything about your store's SEO, or press ctrl+q for quick actions.") + gap
	}

	var b strings.Builder
	b.WriteString(renderTranscript(m))
	if m.snap.IsSending {
		thinking := assistantLabel + " " + m.spin.View() + "Thinking..."
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Render(thinking) + gap)
	}
	return b.String()
}

func renderWidgetHeader(m widgetModel) string {
	title := titleStyle.Render("🛒 StoreSEO Assistant")
	badge := uitk.RenderCreditsBadge(m.snap.Credits)
	pad := max(1, m.width-lipgloss.Width(title)-lipgloss.Width(badge)-1)
	lines := []string{
		title + strings.Repeat(" ", pad) + badge,
		uitk.RenderModeBar(m.snap),
	}
	if banner := uitk.RenderErrorBanner(m.snap, m.width); banner != "" {
		lines = append(lines, banner)
	}
	return strings.Join(lines, "\n") + "\n"
}

func renderWidgetInput(m widgetModel) string {
	var b strings.Builder
	cbStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("63"))
	b.WriteString(cbStyle.Render(m.textarea.View()))
	b.WriteString("\n")

	help := "Enter: send | Ctrl+Q: quick actions | Alt+1-3: mode | Ctrl+Y: copy reply | Esc: dismiss | Ctrl+O: hide"
	if m.snap.IsSending {
		help = "Ctrl+C: cancel request"
	}
	b.WriteString(lipgloss.NewStyle().Faint(true).Width(max(10, m.width-2)).Render(help))
	return b.String()
}

func renderLauncher(m widgetModel) string {
	label := "💬 StoreSEO Assistant"
	if badge := uitk.RenderCreditsBadge(m.snap.Credits); badge != "" {
		label += "  " + badge
	}
	return launcherStyle.Render(label) + "\n" + hintStyle.Render("Ctrl+O: open | Ctrl+C: quit")
}

func (m widgetModel) View() string {
	if !m.snap.IsOpen {
		return renderLauncher(m)
	}

	var b strings.Builder
	b.WriteString(renderWidgetHeader(m))
	if m.quickMenu.IsActive() {
		// Give the overlay the full terminal to centre in
		m.quickMenu, _ = m.quickMenu.Update(tea.WindowSizeMsg{Width: m.width, Height: m.termHeight})
		b.WriteString(lipgloss.NewStyle().Faint(true).Render(m.viewport.View()))
		b.WriteString("\n")
		b.WriteString(m.quickMenu.View())
	} else {
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
	}
	b.WriteString(renderWidgetInput(m))

	if v := m.toast.View(); v != "" {
		b.WriteString("\n")
		b.WriteString(v)
	}
	return b.String()
}

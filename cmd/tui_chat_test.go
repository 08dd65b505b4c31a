package cmd

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"storeseo-cli/internal/session"
	uitk "storeseo-cli/internal/tui"
)

type stubService struct {
	mu        sync.Mutex
	mode      session.ExecutionMode
	chatCalls int
	chatFn    func(ctx context.Context, transcript []session.ChatTurn) (*session.ChatReply, error)
}

func (s *stubService) GetContext(ctx context.Context, sessionKey string) (*session.StoreContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &session.StoreContext{
		ExecutionMode: s.mode,
		ProductCount:  40,
		Credits:       session.CreditLedger{Used: 20, Limit: 100, Remaining: 80},
	}, nil
}

func (s *stubService) SetExecutionMode(ctx context.Context, sessionKey string, mode session.ExecutionMode) (session.ExecutionMode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	return mode, nil
}

func (s *stubService) SendChat(ctx context.Context, sessionKey string, transcript []session.ChatTurn) (*session.ChatReply, error) {
	s.mu.Lock()
	s.chatCalls++
	fn := s.chatFn
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, transcript)
	}
	return &session.ChatReply{Message: "Reply to " + transcript[len(transcript)-1].Content}, nil
}

func newTestWidget(t *testing.T, svc *stubService) widgetModel {
	t.Helper()
	changes := make(chan struct{}, 1)
	ctrl := session.New(svc, "test-key", session.WithNotify(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}))
	ctrl.Open(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for ctrl.Snapshot().Context == nil {
		if time.Now().After(deadline) {
			t.Fatalf("store context never loaded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	m := newWidgetModel(context.Background(), ctrl, changes)
	m, _ = step(m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

// step feeds msg to the model without running the returned command.
func step(m widgetModel, msg tea.Msg) (widgetModel, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(widgetModel), cmd
}

// run executes cmd and returns the messages it produced, flattening batches.
// Commands that do not finish promptly (timers, listeners) are skipped.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, run(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(300 * time.Millisecond):
		return nil
	}
}

func find[T tea.Msg](msgs []tea.Msg) (T, bool) {
	for _, msg := range msgs {
		if v, ok := msg.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func typeText(m widgetModel, text string) widgetModel {
	m, _ = step(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func TestWidgetSendAppendsBothTurns(t *testing.T) {
	svc := &stubService{mode: session.ModePlan}
	m := newTestWidget(t, svc)

	m = typeText(m, "Audit my titles")
	if got := m.ctrl.Input(); got != "Audit my titles" {
		t.Fatalf("input not mirrored into controller, got %q", got)
	}

	m, cmd := step(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.textarea.Value() != "" {
		t.Fatalf("input should clear on send, got %q", m.textarea.Value())
	}
	done, ok := find[sendDoneMsg](run(cmd))
	if !ok || done.err != nil {
		t.Fatalf("expected successful send, got %+v (found=%v)", done, ok)
	}

	m, _ = step(m, done)
	if len(m.snap.Messages) != 2 {
		t.Fatalf("expected user and assistant turns, got %+v", m.snap.Messages)
	}
	view := m.View()
	for _, want := range []string{"Audit my titles", "Reply to Audit my titles", "80/100 credits", "PLAN"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q", want)
		}
	}
}

func TestWidgetEnterWithBlankInputDoesNothing(t *testing.T) {
	svc := &stubService{mode: session.ModePlan}
	m := newTestWidget(t, svc)

	m = typeText(m, "   ")
	_, cmd := step(m, tea.KeyMsg{Type: tea.KeyEnter})
	if _, ok := find[sendDoneMsg](run(cmd)); ok {
		t.Fatalf("blank input must not be sent")
	}
	if svc.chatCalls != 0 {
		t.Fatalf("service called %d times", svc.chatCalls)
	}
}

func TestWidgetQuickActionPrefillsOnly(t *testing.T) {
	svc := &stubService{mode: session.ModePlan}
	m := newTestWidget(t, svc)

	m, _ = step(m, tea.KeyMsg{Type: tea.KeyCtrlQ})
	if !m.quickMenu.IsActive() {
		t.Fatalf("ctrl+q should open the quick menu")
	}
	if !strings.Contains(m.View(), "Quick actions") {
		t.Fatalf("menu overlay not rendered")
	}

	m, cmd := step(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	selected, ok := find[uitk.QuickActionSelectedMsg](run(cmd))
	if !ok || selected.Index != 1 {
		t.Fatalf("expected the second action to be selected, got %+v (found=%v)", selected, ok)
	}
	m, _ = step(m, selected)

	want := session.DefaultQuickActions[1]
	if m.textarea.Value() != want || m.ctrl.Input() != want {
		t.Fatalf("expected prefill %q, got textarea=%q controller=%q", want, m.textarea.Value(), m.ctrl.Input())
	}
	if m.quickMenu.IsActive() {
		t.Fatalf("menu should close after selection")
	}
	if svc.chatCalls != 0 || len(m.snap.Messages) != 0 {
		t.Fatalf("quick action must not send")
	}
}

func TestWidgetModeShortcut(t *testing.T) {
	svc := &stubService{mode: session.ModePlan}
	m := newTestWidget(t, svc)

	// PLAN is current, so its button is disabled
	_, cmd := step(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2"), Alt: true})
	if _, ok := find[modeDoneMsg](run(cmd)); ok {
		t.Fatalf("switching to the current mode must be a no-op")
	}

	m, cmd = step(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3"), Alt: true})
	done, ok := find[modeDoneMsg](run(cmd))
	if !ok || done.err != nil || done.target != session.ModeApprove {
		t.Fatalf("expected APPROVE switch, got %+v (found=%v)", done, ok)
	}

	m, _ = step(m, done)
	if m.snap.Context.ExecutionMode != session.ModeApprove {
		t.Fatalf("mode not updated: %s", m.snap.Context.ExecutionMode)
	}
	if !m.toast.Visible() || !strings.Contains(m.toast.View(), "Execution mode changed to APPROVE") {
		t.Fatalf("expected mode change toast, got %q", m.toast.View())
	}
	last, _ := m.snap.LastAssistantMessage()
	if !strings.HasPrefix(last, "Execution mode changed to APPROVE") {
		t.Fatalf("expected announcement turn, got %q", last)
	}
}

func TestWidgetErrorBannerDismiss(t *testing.T) {
	svc := &stubService{mode: session.ModePlan}
	svc.chatFn = func(ctx context.Context, transcript []session.ChatTurn) (*session.ChatReply, error) {
		return nil, &session.Error{Kind: session.KindInsufficientCredits, Message: "Insufficient credits"}
	}
	m := newTestWidget(t, svc)

	m = typeText(m, "hello")
	m, cmd := step(m, tea.KeyMsg{Type: tea.KeyEnter})
	done, _ := find[sendDoneMsg](run(cmd))
	m, _ = step(m, done)

	if !strings.Contains(m.View(), "Insufficient credits") {
		t.Fatalf("error banner not shown")
	}
	if len(m.snap.Messages) != 1 || m.snap.Messages[0].Content != "hello" {
		t.Fatalf("optimistic user turn must survive failure, got %+v", m.snap.Messages)
	}

	m, _ = step(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.snap.HasError() || strings.Contains(m.View(), "Insufficient credits") {
		t.Fatalf("esc should dismiss the error")
	}
}

func TestWidgetCopyLastReply(t *testing.T) {
	var copied string
	orig := writeClipboard
	writeClipboard = func(text string) error {
		copied = text
		return nil
	}
	t.Cleanup(func() { writeClipboard = orig })

	svc := &stubService{mode: session.ModePlan}
	m := newTestWidget(t, svc)

	m, _ = step(m, tea.KeyMsg{Type: tea.KeyCtrlY})
	if !strings.Contains(m.toast.View(), "Nothing to copy") {
		t.Fatalf("expected nothing-to-copy toast, got %q", m.toast.View())
	}

	m = typeText(m, "hi")
	m, cmd := step(m, tea.KeyMsg{Type: tea.KeyEnter})
	done, _ := find[sendDoneMsg](run(cmd))
	m, _ = step(m, done)

	m, cmd = step(m, tea.KeyMsg{Type: tea.KeyCtrlY})
	res, ok := find[copyDoneMsg](run(cmd))
	if !ok {
		t.Fatalf("expected clipboard command")
	}
	m, _ = step(m, res)
	if copied != "Reply to hi" {
		t.Fatalf("copied %q", copied)
	}
	if !strings.Contains(m.toast.View(), "Copied") {
		t.Fatalf("expected copy toast, got %q", m.toast.View())
	}
}

func TestWidgetCtrlCCancelsSendBeforeQuitting(t *testing.T) {
	started := make(chan struct{})
	svc := &stubService{mode: session.ModePlan}
	svc.chatFn = func(ctx context.Context, transcript []session.ChatTurn) (*session.ChatReply, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	m := newTestWidget(t, svc)

	result := make(chan tea.Msg, 1)
	go func() { result <- m.sendCmd("slow question")() }()
	<-started

	m, cmd := step(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if _, quit := find[tea.QuitMsg](run(cmd)); quit {
		t.Fatalf("ctrl+c during a send should cancel, not quit")
	}

	done := (<-result).(sendDoneMsg)
	if session.KindOf(done.err) != session.KindCanceled {
		t.Fatalf("expected cancellation, got %v", done.err)
	}
	m, _ = step(m, done)
	if m.snap.Error != "Request cancelled" || m.snap.IsSending {
		t.Fatalf("unexpected state after cancel: %+v", m.snap)
	}

	_, cmd = step(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if _, quit := find[tea.QuitMsg](run(cmd)); !quit {
		t.Fatalf("ctrl+c when idle should quit")
	}
}

func TestWidgetToggleOpen(t *testing.T) {
	svc := &stubService{mode: session.ModePlan}
	m := newTestWidget(t, svc)

	m, _ = step(m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if m.snap.IsOpen || !strings.Contains(m.View(), "Ctrl+O: open") {
		t.Fatalf("ctrl+o should collapse the widget")
	}
	m = typeText(m, "ignored")
	if m.ctrl.Input() != "" {
		t.Fatalf("typing into a closed widget must be ignored")
	}

	m, _ = step(m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if !m.snap.IsOpen {
		t.Fatalf("ctrl+o should reopen the widget")
	}
}

func TestWidgetStateChangeRearmsListener(t *testing.T) {
	svc := &stubService{mode: session.ModePlan}
	m := newTestWidget(t, svc)

	m.ctrl.SetInput("from elsewhere")
	m, cmd := step(m, stateChangedMsg{})
	if cmd == nil {
		t.Fatalf("expected the change listener to be re-armed")
	}
	if m.textarea.Value() != "from elsewhere" {
		t.Fatalf("textarea not synced from controller, got %q", m.textarea.Value())
	}
}

func TestComputeTranscriptKey(t *testing.T) {
	a := []session.ChatTurn{{Role: session.RoleUser, Content: "hi"}}
	b := append(a, session.ChatTurn{Role: session.RoleAssistant, Content: "hello"})
	if computeTranscriptKey(a, 80) == computeTranscriptKey(b, 80) {
		t.Fatalf("key must change when a turn is appended")
	}
	if computeTranscriptKey(a, 80) == computeTranscriptKey(a, 100) {
		t.Fatalf("key must change with width")
	}
	if computeTranscriptKey(nil, 80) != computeTranscriptKey(nil, 80) {
		t.Fatalf("key must be stable")
	}
}

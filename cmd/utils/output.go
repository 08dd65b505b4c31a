package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// MessageType represents the type of output message
type MessageType int

const (
	InfoMessage MessageType = iota
	WarningMessage
	ErrorMessage
	SuccessMessage
	DebugMessage
)

// OutputMessage represents a message to be displayed
type OutputMessage struct {
	Type    MessageType
	Content string
	Writer  io.Writer // fallback writer when not in TUI mode
	NoEmoji bool
}

// TUIMessageMsg is a Bubble Tea message for routing output to the widget
type TUIMessageMsg struct {
	Message OutputMessage
}

// OutputManager manages all CLI output routing
type OutputManager struct {
	mu            sync.RWMutex
	inTUIMode     bool
	messageQueue  []OutputMessage
	disableEmojis bool
	stdout        io.Writer
	stderr        io.Writer

	// One forwarder per program keeps TUI messages in emission order.
	wake chan struct{}
	stop chan struct{}
}

var outputManager = &OutputManager{}

// SetTUIMode routes subsequent output into program, starting with anything queued.
func SetTUIMode(program *tea.Program) {
	outputManager.mu.Lock()
	defer outputManager.mu.Unlock()
	outputManager.stopForwarderLocked()
	outputManager.inTUIMode = true
	if program == nil {
		return
	}
	outputManager.wake = make(chan struct{}, 1)
	outputManager.stop = make(chan struct{})
	go outputManager.forward(program, outputManager.wake, outputManager.stop)
	outputManager.wakeLocked()
}

// ClearTUIMode disables TUI mode
func ClearTUIMode() {
	outputManager.mu.Lock()
	defer outputManager.mu.Unlock()
	outputManager.stopForwarderLocked()
	outputManager.inTUIMode = false
	outputManager.messageQueue = nil
}

// forward drains the queue into program in order. Send blocks until the event
// loop receives, so it never runs on the caller's goroutine: the caller may be
// the event loop itself.
func (m *OutputManager) forward(program *tea.Program, wake, stop <-chan struct{}) {
	for {
		m.mu.Lock()
		batch := m.messageQueue
		m.messageQueue = nil
		m.mu.Unlock()

		for _, msg := range batch {
			select {
			case <-stop:
				return
			default:
			}
			program.Send(TUIMessageMsg{Message: msg})
		}

		select {
		case <-wake:
		case <-stop:
			return
		}
	}
}

// stopForwarderLocked must be called with mu held.
func (m *OutputManager) stopForwarderLocked() {
	if m.stop != nil {
		close(m.stop)
	}
	m.stop, m.wake = nil, nil
}

// wakeLocked must be called with mu held.
func (m *OutputManager) wakeLocked() {
	if m.wake == nil {
		return
	}
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// SetEmojiEnabled controls whether emojis are added to output messages globally
func SetEmojiEnabled(enabled bool) {
	outputManager.mu.Lock()
	defer outputManager.mu.Unlock()
	outputManager.disableEmojis = !enabled
}

// SetOutputWriters overrides stdout/stderr for direct mode. Nil restores the default.
func SetOutputWriters(stdout, stderr io.Writer) {
	outputManager.mu.Lock()
	defer outputManager.mu.Unlock()
	outputManager.stdout = stdout
	outputManager.stderr = stderr
}

func sendMessage(msgType MessageType, format string, args ...interface{}) {
	sendMessageWithOptions(msgType, false, format, args...)
}

func sendMessageWithOptions(msgType MessageType, noEmoji bool, format string, args ...interface{}) {
	content := fmt.Sprintf(format, args...)

	outputManager.mu.RLock()
	msg := OutputMessage{
		Type:    msgType,
		Content: content,
		Writer:  outputManager.writerFor(msgType),
		NoEmoji: noEmoji || outputManager.disableEmojis,
	}
	inTUI := outputManager.inTUIMode
	outputManager.mu.RUnlock()

	if !inTUI {
		fmt.Fprintln(msg.Writer, strings.TrimRight(FormatMessage(msg), "\n"))
		return
	}
	// Queued until a program is attached, then forwarded in order
	outputManager.mu.Lock()
	if outputManager.inTUIMode {
		outputManager.messageQueue = append(outputManager.messageQueue, msg)
		outputManager.wakeLocked()
	}
	outputManager.mu.Unlock()
}

// writerFor must be called with mu held.
func (m *OutputManager) writerFor(msgType MessageType) io.Writer {
	switch msgType {
	case ErrorMessage, WarningMessage, DebugMessage:
		if m.stderr != nil {
			return m.stderr
		}
		return os.Stderr
	default:
		if m.stdout != nil {
			return m.stdout
		}
		return os.Stdout
	}
}

// OutputInfo sends an informational message
func OutputInfo(format string, args ...interface{}) {
	sendMessage(InfoMessage, format, args...)
}

// OutputInfoPlain sends an informational message without emoji
func OutputInfoPlain(format string, args ...interface{}) {
	sendMessageWithOptions(InfoMessage, true, format, args...)
}

// OutputWarning sends a warning message
func OutputWarning(format string, args ...interface{}) {
	sendMessage(WarningMessage, format, args...)
}

// OutputError sends an error message
func OutputError(format string, args ...interface{}) {
	sendMessage(ErrorMessage, format, args...)
}

// OutputSuccess sends a success message
func OutputSuccess(format string, args ...interface{}) {
	sendMessage(SuccessMessage, format, args...)
}

// FormatMessage renders msg for a plain terminal.
func FormatMessage(msg OutputMessage) string {
	if msg.NoEmoji {
		return msg.Content
	}

	var prefix string
	switch msg.Type {
	case InfoMessage:
		prefix = "ℹ️"
	case WarningMessage:
		prefix = "⚠️"
	case ErrorMessage:
		prefix = "❌"
	case SuccessMessage:
		prefix = "✅"
	case DebugMessage:
		prefix = "🐛"
	}

	return fmt.Sprintf("%s  %s", prefix, msg.Content)
}

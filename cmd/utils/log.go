package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	debugOnce   sync.Once
	debugFile   *os.File
	debugLogger *log.Logger
	enableDebug bool

	// Order matters: specific patterns before generic ones.
	sensitivePatterns = []struct {
		pattern     *regexp.Regexp
		replacement string
	}{
		{regexp.MustCompile(`\beyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), "[REDACTED-JWT]"},
		// Shopify admin and storefront tokens
		{regexp.MustCompile(`\bshp(at|ca|pa|ss)_[a-fA-F0-9]{16,}`), "[REDACTED-SHOPIFY-TOKEN]"},
		{regexp.MustCompile(`(?i)(authorization[=:\s]+['"]?)(Basic|Bearer)\s+[a-zA-Z0-9\-_\.=]+`), "${1}${2} [REDACTED]"},
		{regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9\-_\.]+`), "${1}[REDACTED]"},
		// Session keys in headers, flags, query strings and JSON bodies
		{regexp.MustCompile(`(?i)(x-session-key["']?[=:\s]+["']?)[a-zA-Z0-9\-_]{8,}`), "${1}[REDACTED]"},
		{regexp.MustCompile(`(?i)(session[_-]?key["']?[=:\s]+["']?)[a-zA-Z0-9\-_]{8,}`), "${1}[REDACTED]"},
		{regexp.MustCompile(`(?i)(sessionKey["']?[=:\s]+["']?)[a-zA-Z0-9\-_]{8,}`), "${1}[REDACTED]"},
		{regexp.MustCompile(`(?i)(api[_-]?key[=:\s]+['"]?)[a-zA-Z0-9\-_]{16,}`), "${1}[REDACTED]"},
		{regexp.MustCompile(`(?i)(password[=:\s]+['"]?)[^\s&'"]+`), "${1}[REDACTED]"},
		{regexp.MustCompile(`(?i)(token[=:\s]+['"]?)[a-zA-Z0-9\-_\.]{16,}`), "${1}[REDACTED]"},
		{regexp.MustCompile(`(?i)(cookie[=:\s]+['"]?)[^;\n]+`), "${1}[REDACTED]"},
	}
)

// InitDebugLogger opens the shared debug log and points Bubble Tea's logger at it.
// An empty path means debug.log in the data directory. Safe to call repeatedly;
// only the first call opens a file.
func InitDebugLogger(path string, debug bool) error {
	enableDebug = debug
	var initErr error
	debugOnce.Do(func() {
		if path == "" {
			path = defaultLogPath()
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				initErr = err
				return
			}
		}

		if debug {
			abs, _ := filepath.Abs(path)
			if abs == "" {
				abs = path
			}
			fmt.Fprintf(os.Stderr, "[DEBUG] Logging to: %s\n", abs)
		}

		f, err := tea.LogToFile(path, "debug")
		if err != nil {
			initErr = err
			return
		}
		debugFile = f
		debugLogger = log.New(f, "", log.LstdFlags)
	})
	return initErr
}

func defaultLogPath() string {
	if dir, err := GetDataDir(); err == nil {
		return filepath.Join(dir, "debug.log")
	}
	return filepath.Join(GetEffectiveCWD(), "debug.log")
}

// CloseDebugLogger closes the underlying debug log file if it was opened.
func CloseDebugLogger() {
	if debugFile != nil {
		_ = debugFile.Sync()
		_ = debugFile.Close()
	}
}

// ResetDebugLoggerForTesting lets tests reopen the logger at a new path.
func ResetDebugLoggerForTesting() {
	CloseDebugLogger()
	debugOnce = sync.Once{}
	debugFile = nil
	debugLogger = nil
}

func sanitizeLogMessage(msg string) string {
	for _, sp := range sensitivePatterns {
		msg = sp.pattern.ReplaceAllString(msg, sp.replacement)
	}
	return msg
}

// LogDebug appends a sanitized line to the debug log, echoing it through the
// output manager when --debug is on. Callers should still avoid passing secrets;
// sanitization only catches the common shapes.
func LogDebug(msg string) {
	if debugLogger == nil {
		if err := InitDebugLogger("", enableDebug); err != nil {
			OutputError("failed to initialize debug logger: %v", err)
		}
	}
	if debugLogger == nil {
		return
	}

	sanitized := sanitizeLogMessage(msg)
	debugLogger.Println(sanitized)
	if enableDebug {
		sendMessage(DebugMessage, "%s", sanitized)
	}
}

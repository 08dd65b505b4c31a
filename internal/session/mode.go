package session

import (
	"fmt"
	"strings"
)

// ExecutionMode is the fix-application policy of the connected store
type ExecutionMode string

const (
	ModeAutomatic ExecutionMode = "AUTOMATIC"
	ModePlan      ExecutionMode = "PLAN"
	ModeApprove   ExecutionMode = "APPROVE"
)

var modeDescriptions = map[ExecutionMode]string{
	ModeAutomatic: "fixes applied instantly without approval",
	ModePlan:      "fixes grouped into plans for batch approval",
	ModeApprove:   "each fix requires individual approval",
}

// Modes returns every execution mode in display order.
func Modes() []ExecutionMode {
	return []ExecutionMode{ModeAutomatic, ModePlan, ModeApprove}
}

// Valid reports whether m is one of the known modes.
func (m ExecutionMode) Valid() bool {
	_, ok := modeDescriptions[m]
	return ok
}

// Description returns the fixed human-readable effect of the mode.
func (m ExecutionMode) Description() string {
	return modeDescriptions[m]
}

// ParseMode accepts a mode name in any case.
func ParseMode(s string) (ExecutionMode, error) {
	m := ExecutionMode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown execution mode %q (expected AUTOMATIC, PLAN or APPROVE)", s)
	}
	return m, nil
}

// modeChangeAnnouncement is the synthetic assistant turn appended after a
// successful mode change.
func modeChangeAnnouncement(m ExecutionMode) string {
	return fmt.Sprintf("Execution mode changed to %s: %s.", m, m.Description())
}

package session

// Snapshot is an immutable copy of the session state at one instant.
type Snapshot struct {
	Messages []ChatTurn
	// Context is nil until the first successful load. Its Credits mirror the
	// latest ledger, whichever source delivered it last.
	Context          *StoreContext
	Credits          *CreditLedger
	Input            string
	IsOpen           bool
	IsSending        bool
	IsSwitchingMode  bool
	IsLoadingContext bool
	Error            string
	ErrorKind        Kind
}

// HasError reports whether the error slot is populated.
func (s Snapshot) HasError() bool { return s.Error != "" }

// CanSwitchTo reports whether a mode button for m would be enabled.
func (s Snapshot) CanSwitchTo(m ExecutionMode) bool {
	return s.Context != nil && !s.IsSwitchingMode && s.Context.ExecutionMode != m
}

// LastAssistantMessage returns the most recent assistant turn, if any.
func (s Snapshot) LastAssistantMessage() (string, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content, true
		}
	}
	return "", false
}

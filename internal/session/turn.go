package session

// Role identifies who produced a chat turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn represents a single message in the conversation log.
// Turns are values; once appended they are never mutated or removed.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// messageLog is the ordered, append-only transcript owned by the controller.
type messageLog struct {
	turns []ChatTurn
}

func (l *messageLog) append(role Role, content string) {
	l.turns = append(l.turns, ChatTurn{Role: role, Content: content})
}

// snapshot returns a copy safe to hand to other goroutines.
func (l *messageLog) snapshot() []ChatTurn {
	out := make([]ChatTurn, len(l.turns))
	copy(out, l.turns)
	return out
}

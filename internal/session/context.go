package session

import "context"

// StoreContext is a snapshot of the connected store's state. It is always
// replaced wholesale, never patched field by field.
type StoreContext struct {
	ExecutionMode ExecutionMode `json:"executionMode"`
	ProductCount  int           `json:"productCount"`
	IssueCount    int           `json:"issueCount"`
	PlanName      string        `json:"planName"`
	Credits       CreditLedger  `json:"credits"`
}

// ChatReply is the service's answer to a chat request.
type ChatReply struct {
	Message string        `json:"message"`
	Credits *CreditLedger `json:"credits,omitempty"`
}

// Service is the remote optimization backend. Implementations must be safe
// for concurrent use.
type Service interface {
	GetContext(ctx context.Context, sessionKey string) (*StoreContext, error)
	SetExecutionMode(ctx context.Context, sessionKey string, mode ExecutionMode) (ExecutionMode, error)
	SendChat(ctx context.Context, sessionKey string, transcript []ChatTurn) (*ChatReply, error)
}

package session

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure by origin
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindBusy
	KindNetwork
	KindProtocol
	KindService
	KindRateLimited
	KindInsufficientCredits
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBusy:
		return "busy"
	case KindNetwork:
		return "network"
	case KindProtocol:
		return "protocol"
	case KindService:
		return "service"
	case KindRateLimited:
		return "rate_limited"
	case KindInsufficientCredits:
		return "insufficient_credits"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is the structured failure surfaced by the controller and the API client.
// Message, when set, is shown to the user verbatim.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on kind against the sentinel values below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	// ErrBusy is returned when an operation of the same kind is already in flight.
	ErrBusy = &Error{Kind: KindBusy}
	// ErrEmptyMessage is returned by Send for blank input.
	ErrEmptyMessage = &Error{Kind: KindValidation, Message: "message is empty"}
)

const (
	sendFailedMessage       = "Failed to send message. Please try again."
	modeChangeFailedMessage = "Failed to change execution mode"
)

// KindOf extracts the kind of err, mapping context errors to KindCanceled.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return KindUnknown
}

// UserMessage returns the text to surface for err: the service's own message
// when it provided one, otherwise fallback.
func UserMessage(err error, fallback string) string {
	var se *Error
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}

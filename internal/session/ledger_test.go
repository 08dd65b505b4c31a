package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		remaining int
		want      Severity
	}{
		{-5, SeverityCritical},
		{0, SeverityCritical},
		{9, SeverityCritical},
		{10, SeverityLow},
		{29, SeverityLow},
		{30, SeverityHealthy},
		{475, SeverityHealthy},
	}

	for _, tt := range tests {
		if got := Classify(tt.remaining); got != tt.want {
			t.Errorf("Classify(%d) = %s, want %s", tt.remaining, got, tt.want)
		}
	}
}

func TestLedgerDisplay(t *testing.T) {
	l := CreditLedger{Used: 25, Limit: 500, Remaining: 475}
	if got := l.Display(); got != "475/500 credits" {
		t.Fatalf("unexpected display %q", got)
	}
	if l.Severity() != SeverityHealthy {
		t.Fatalf("expected healthy, got %s", l.Severity())
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ExecutionMode
		wantErr bool
	}{
		{"AUTOMATIC", ModeAutomatic, false},
		{"plan", ModePlan, false},
		{" Approve ", ModeApprove, false},
		{"turbo", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestModeDescriptionsAreFixed(t *testing.T) {
	want := map[ExecutionMode]string{
		ModeAutomatic: "fixes applied instantly without approval",
		ModePlan:      "fixes grouped into plans for batch approval",
		ModeApprove:   "each fix requires individual approval",
	}
	for _, m := range Modes() {
		if m.Description() != want[m] {
			t.Errorf("%s: description %q, want %q", m, m.Description(), want[m])
		}
	}
	if got := modeChangeAnnouncement(ModeApprove); got != "Execution mode changed to APPROVE: each fix requires individual approval." {
		t.Errorf("unexpected announcement %q", got)
	}
}

func TestKindOfAndUserMessage(t *testing.T) {
	wrapped := fmt.Errorf("request: %w", &Error{Kind: KindRateLimited, Message: "Too many requests"})

	if KindOf(wrapped) != KindRateLimited {
		t.Fatalf("expected rate limited, got %s", KindOf(wrapped))
	}
	if got := UserMessage(wrapped, "fallback"); got != "Too many requests" {
		t.Fatalf("expected service message, got %q", got)
	}
	if got := UserMessage(errors.New("plain"), "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if KindOf(context.DeadlineExceeded) != KindCanceled {
		t.Fatalf("expected deadline to map to canceled")
	}
	if !errors.Is(&Error{Kind: KindBusy, Message: "busy"}, ErrBusy) {
		t.Fatalf("expected kind match against ErrBusy")
	}
	if errors.Is(&Error{Kind: KindService}, ErrBusy) {
		t.Fatalf("different kinds must not match")
	}
}

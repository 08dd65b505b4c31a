package session

import "fmt"

// Severity is the display classification of the remaining credit balance
type Severity string

const (
	SeverityHealthy  Severity = "healthy"
	SeverityLow      Severity = "low"
	SeverityCritical Severity = "critical"
)

// Fixed breakpoints. No hysteresis: classification only drives display colour.
const (
	CriticalThreshold = 10
	LowThreshold      = 30
)

// Classify maps a remaining balance to its severity.
func Classify(remaining int) Severity {
	switch {
	case remaining < CriticalThreshold:
		return SeverityCritical
	case remaining < LowThreshold:
		return SeverityLow
	default:
		return SeverityHealthy
	}
}

// CreditLedger is the usage snapshot reported by the server. The client never
// recomputes Remaining from deltas; whatever the server returns is trusted.
type CreditLedger struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// Severity classifies the ledger's remaining balance.
func (c CreditLedger) Severity() Severity {
	return Classify(c.Remaining)
}

// Display renders the ledger the way the widget shows it, e.g. "475/500 credits".
func (c CreditLedger) Display() string {
	return fmt.Sprintf("%d/%d credits", c.Remaining, c.Limit)
}

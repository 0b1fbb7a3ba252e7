package model

import "strings"

// Gateway charge statuses we react to. The gateway owns this vocabulary; any
// status not listed here is treated as non-terminal and ignored.
const (
	ChargeStatusCaptured  = "CAPTURED"
	ChargeStatusFailed    = "FAILED"
	ChargeStatusDeclined  = "DECLINED"
	ChargeStatusCancelled = "CANCELLED"
	ChargeStatusAbandoned = "ABANDONED"
	ChargeStatusTimedOut  = "TIMEDOUT"
	ChargeStatusVoid      = "VOID"
)

// Charge is the gateway's authoritative view of a payment attempt, obtained
// from its REST API. This, never the webhook body, is what money decisions
// are based on.
type Charge struct {
	ID               string
	Status           string
	AmountMinor      int64
	Currency         string
	GatewayReference string
	PaymentReference string
	Created          string
	Metadata         NotificationMeta
	Raw              []byte
}

// Captured reports whether funds were successfully collected.
func (c *Charge) Captured() bool {
	return strings.EqualFold(c.Status, ChargeStatusCaptured)
}

// TerminalFailure reports whether the charge reached a state from which it
// can never capture.
func (c *Charge) TerminalFailure() bool {
	switch strings.ToUpper(c.Status) {
	case ChargeStatusFailed, ChargeStatusDeclined, ChargeStatusCancelled,
		ChargeStatusAbandoned, ChargeStatusTimedOut, ChargeStatusVoid:
		return true
	}
	return false
}

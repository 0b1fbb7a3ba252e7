package model

import "time"

// Outcome is the final disposition of one processing attempt. Every value maps
// to a distinct audit signal and metrics label.
type Outcome string

const (
	OutcomePending              Outcome = "pending" // ledger row claimed, processing in flight
	OutcomeActivated            Outcome = "activated"
	OutcomeAlreadyActive        Outcome = "already_active"
	OutcomeMarkedPastDue        Outcome = "marked_past_due"
	OutcomeDuplicate            Outcome = "duplicate"
	OutcomeThrottled            Outcome = "throttled"
	OutcomeIgnored              Outcome = "ignored"
	OutcomeVerificationFailed   Outcome = "verification_failed"
	OutcomeAmountMismatch       Outcome = "amount_mismatch"
	OutcomeCurrencyMismatch     Outcome = "currency_mismatch"
	OutcomeInvalidChargeStatus  Outcome = "invalid_charge_status"
	OutcomeSubscriptionNotFound Outcome = "subscription_not_found"
	OutcomeStorageFailure       Outcome = "storage_failure"
	OutcomeInternalError        Outcome = "internal_error"
)

// SignatureResult distinguishes "we checked and it matched" from "we could
// not check". error_bypassed means our own verifier failed internally and the
// pipeline continued on the strength of the authoritative fetch.
type SignatureResult string

const (
	SignatureValid         SignatureResult = "valid"
	SignatureInvalid       SignatureResult = "invalid"
	SignatureUnverifiable  SignatureResult = "unverifiable"
	SignatureErrorBypassed SignatureResult = "error_bypassed"
)

// ProcessedEvent is the durable idempotency-ledger row for one
// (charge id, claimed status) pair. The tuple (provider, charge_id,
// claimed_status) is unique at the storage layer; that constraint, not any
// in-memory check, is what guarantees at-most-once side effects. Rows are
// created on first sight, finalized once, never deleted.
type ProcessedEvent struct {
	ID              string // UUID
	Provider        string // e.g. "tap"
	ProviderEventID string // gateway-assigned, optional and repeatable
	ChargeID        string
	ClaimedStatus   string
	AmountMinor     int64
	Currency        string
	RawPayload      []byte
	VerifiedPayload []byte // authoritative charge body, nil until fetched
	Outcome         Outcome
	ErrorDetail     *string
	SubscriptionID  *string
	UserID          *string
	ProcessedAt     *time.Time
	CreatedAt       time.Time
}

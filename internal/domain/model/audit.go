package model

import "time"

// AuditRecord is one append-only row per processing attempt, written whether
// or not processing succeeded. It carries enough of the raw exchange to
// reconstruct what happened without re-deriving it from mutable state.
type AuditRecord struct {
	ID              string // ULID, sortable by arrival
	Provider        string
	ChargeID        string
	SourceIP        string
	SignatureResult SignatureResult
	GatewayChecked  bool   // whether the authoritative fetch was attempted
	GatewayStatus   string // status the gateway reported, if fetched
	Outcome         Outcome
	Reason          string
	SubscriptionID  *string
	UserID          *string
	PayloadDigest   string // sha256 hex of the raw body
	RawPayload      []byte
	CreatedAt       time.Time
}

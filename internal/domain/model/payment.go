package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// SubscriptionPayment is the money-movement ledger: exactly one row per
// gateway charge id, upserted, never duplicated. The charge_id uniqueness is
// what makes a retried activation a no-op instead of a double charge.
type SubscriptionPayment struct {
	ID               string // UUID
	ChargeID         string // unique
	SubscriptionID   string
	UserID           string
	AmountMinor      int64
	Currency         string
	Status           PaymentStatus
	GatewayReference string
	PaymentReference string
	PaidAt           *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

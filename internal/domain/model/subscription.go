package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Subscription is the billing view of a coaching subscription. The CRUD app
// owns creation and cancellation; this pipeline only moves it between
// pending, active and past_due based on verified charges.
//
// A storage-level trigger refuses status='active' unless the three
// last-payment verification fields are set and the status equals CAPTURED,
// so activation is structurally tied to a verified charge.
type Subscription struct {
	ID                 string // UUID
	UserID             string
	ServiceID          string
	Status             SubscriptionStatus
	BillingAmountMinor int64  // expected charge per cycle, minor units
	Currency           string // configured billing currency

	DiscountID *string

	LastVerifiedChargeID  *string
	LastPaymentVerifiedAt *time.Time
	LastPaymentStatus     *string

	CycleStartAt  *time.Time
	NextBillingAt *time.Time
	FailedCharges int

	CreatedAt time.Time
	UpdatedAt time.Time
}

package model

import "time"

// DiscountRedemption records that a discount code was consumed by a verified
// billing cycle. Keyed by (discount_id, subscription_id) so a replayed
// activation cannot burn an extra cycle.
type DiscountRedemption struct {
	ID             string // UUID
	DiscountID     string
	SubscriptionID string
	ChargeID       string
	RedeemedAt     time.Time
}

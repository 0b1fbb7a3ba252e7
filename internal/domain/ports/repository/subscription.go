package repository

import (
	"context"
	"time"

	"fitpay-billing/internal/domain/model"
)

// ActivationUpdate carries every field the activation statement sets
// together. The repository applies it as one atomic UPDATE so the storage
// trigger never observes a partially verified active subscription.
type ActivationUpdate struct {
	ChargeID      string
	PaymentStatus string
	VerifiedAt    time.Time
	CycleStartAt  time.Time
	NextBillingAt time.Time
}

type SubscriptionRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// FindByChargeRef resolves a subscription through its
	// last_verified_charge_id backreference.
	FindByChargeRef(ctx context.Context, tx Tx, chargeID string) (*model.Subscription, error)
	// Activate performs the single-statement transition to active.
	Activate(ctx context.Context, tx Tx, id string, upd ActivationUpdate) error
	// MarkPastDue records a failed/declined cycle without touching the
	// activation fields.
	MarkPastDue(ctx context.Context, tx Tx, id string, paymentStatus string) error
}

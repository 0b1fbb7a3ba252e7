package repository

import (
	"context"

	"fitpay-billing/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	FindByChargeID(ctx context.Context, tx Tx, chargeID string) (*model.SubscriptionPayment, error)
	// Upsert writes the payment row keyed by charge_id. A second write for
	// the same charge updates in place rather than duplicating money.
	Upsert(ctx context.Context, tx Tx, p *model.SubscriptionPayment) error
}

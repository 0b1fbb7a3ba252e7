package adapter

import (
	"context"

	"fitpay-billing/internal/domain/model"
)

// ChargeFetcher retrieves the authoritative charge state from the payment
// gateway's REST API. The webhook body is never trusted for money fields;
// this call is mandatory before any state mutation.
type ChargeFetcher interface {
	Name() string
	FetchCharge(ctx context.Context, chargeID string) (*model.Charge, error)
}

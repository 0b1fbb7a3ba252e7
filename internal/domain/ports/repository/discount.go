package repository

import (
	"context"

	"fitpay-billing/internal/domain/model"
)

type DiscountRepository interface {
	// RecordRedemption upserts the redemption row and, when it is new,
	// increments the discount's cycles_used counter.
	RecordRedemption(ctx context.Context, tx Tx, red *model.DiscountRedemption) error
}

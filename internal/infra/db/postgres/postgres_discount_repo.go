package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"fitpay-billing/internal/domain"
	"fitpay-billing/internal/domain/model"
	"fitpay-billing/internal/domain/ports/repository"
)

var _ repository.DiscountRepository = (*discountRepo)(nil)

type discountRepo struct{ pool *pgxpool.Pool }

func NewDiscountRepo(pool *pgxpool.Pool) *discountRepo {
	return &discountRepo{pool: pool}
}

// RecordRedemption inserts the redemption keyed by (discount_id,
// subscription_id) and bumps cycles_used only when the row is new, so a
// replayed activation cannot consume an extra discount cycle.
func (r *discountRepo) RecordRedemption(ctx context.Context, tx repository.Tx, red *model.DiscountRedemption) error {
	const q = `
INSERT INTO discount_redemptions (id, discount_id, subscription_id, charge_id, redeemed_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (discount_id, subscription_id) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q, red.ID, red.DiscountID, red.SubscriptionID, red.ChargeID, red.RedeemedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return nil // already redeemed for this cycle
	}

	const inc = `UPDATE discount_codes SET cycles_used=cycles_used+1, updated_at=NOW() WHERE id=$1;`
	if _, err := execSQL(ctx, r.pool, tx, inc, red.DiscountID); err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

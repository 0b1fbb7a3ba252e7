package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"fitpay-billing/internal/domain"
	"fitpay-billing/internal/domain/model"
	"fitpay-billing/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionCols = `id, user_id, service_id, status, billing_amount_minor, currency, discount_id, last_verified_charge_id, last_payment_verified_at, last_payment_status, cycle_start_at, next_billing_at, failed_charges, created_at, updated_at`

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionCols + ` FROM subscriptions WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) FindByChargeRef(ctx context.Context, tx repository.Tx, chargeID string) (*model.Subscription, error) {
	const q = `SELECT ` + subscriptionCols + ` FROM subscriptions WHERE last_verified_charge_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, chargeID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

// Activate sets every activation field together in one statement. The
// storage-level trigger that gates status='active' on the verification
// fields therefore always sees a fully verified row or nothing.
func (r *subscriptionRepo) Activate(ctx context.Context, tx repository.Tx, id string, upd repository.ActivationUpdate) error {
	const q = `
UPDATE subscriptions
   SET status='active',
       last_verified_charge_id=$2,
       last_payment_verified_at=$3,
       last_payment_status=$4,
       cycle_start_at=$5,
       next_billing_at=$6,
       failed_charges=0,
       updated_at=NOW()
 WHERE id=$1
   AND status IN ('pending','active','past_due');`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, upd.ChargeID, upd.VerifiedAt, upd.PaymentStatus, upd.CycleStartAt, upd.NextBillingAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		// Row missing or externally cancelled; activation has no authority here.
		return domain.ErrNotFound
	}
	return nil
}

func (r *subscriptionRepo) MarkPastDue(ctx context.Context, tx repository.Tx, id string, paymentStatus string) error {
	const q = `
UPDATE subscriptions
   SET status='past_due',
       last_payment_status=$2,
       failed_charges=failed_charges+1,
       updated_at=NOW()
 WHERE id=$1
   AND status IN ('pending','active','past_due');`

	_, err := execSQL(ctx, r.pool, tx, q, id, paymentStatus)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	err := row.Scan(&s.ID, &s.UserID, &s.ServiceID, &s.Status, &s.BillingAmountMinor, &s.Currency,
		&s.DiscountID, &s.LastVerifiedChargeID, &s.LastPaymentVerifiedAt, &s.LastPaymentStatus,
		&s.CycleStartAt, &s.NextBillingAt, &s.FailedCharges, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

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

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

func (r *paymentRepo) FindByChargeID(ctx context.Context, tx repository.Tx, chargeID string) (*model.SubscriptionPayment, error) {
	q := `SELECT id, charge_id, subscription_id, user_id, amount_minor, currency, status, gateway_reference, payment_reference, paid_at, created_at, updated_at FROM subscription_payments WHERE charge_id=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, chargeID)
	if err != nil {
		return nil, err
	}

	p := &model.SubscriptionPayment{}
	if err := row.Scan(&p.ID, &p.ChargeID, &p.SubscriptionID, &p.UserID, &p.AmountMinor, &p.Currency, &p.Status, &p.GatewayReference, &p.PaymentReference, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

// Upsert keys the money ledger by charge_id: a replayed activation rewrites
// the same row instead of recording a second payment.
func (r *paymentRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.SubscriptionPayment) error {
	const q = `
INSERT INTO subscription_payments (
  id, charge_id, subscription_id, user_id, amount_minor, currency, status, gateway_reference, payment_reference, paid_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
) ON CONFLICT (charge_id) DO UPDATE SET
  subscription_id=$3, user_id=$4, amount_minor=$5, currency=$6, status=$7, gateway_reference=$8, payment_reference=$9, paid_at=COALESCE($10, subscription_payments.paid_at), updated_at=$12;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.ChargeID, p.SubscriptionID, p.UserID, p.AmountMinor, p.Currency, p.Status, p.GatewayReference, p.PaymentReference, p.PaidAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

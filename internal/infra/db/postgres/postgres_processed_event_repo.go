package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"fitpay-billing/internal/domain"
	"fitpay-billing/internal/domain/model"
	"fitpay-billing/internal/domain/ports/repository"
)

var _ repository.ProcessedEventRepository = (*processedEventRepo)(nil)

type processedEventRepo struct{ pool *pgxpool.Pool }

func NewProcessedEventRepo(pool *pgxpool.Pool) *processedEventRepo {
	return &processedEventRepo{pool: pool}
}

const processedEventCols = `id, provider, provider_event_id, charge_id, claimed_status, amount_minor, currency, raw_payload, verified_payload, outcome, error_detail, subscription_id, user_id, processed_at, created_at`

func (r *processedEventRepo) Find(ctx context.Context, tx repository.Tx, provider, chargeID, claimedStatus string) (*model.ProcessedEvent, error) {
	const q = `SELECT ` + processedEventCols + ` FROM processed_events WHERE provider=$1 AND charge_id=$2 AND claimed_status=$3 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, provider, chargeID, claimedStatus)
	if err != nil {
		return nil, err
	}
	return scanProcessedEvent(row)
}

// InsertPending claims the (provider, charge_id, claimed_status) slot.
// The UNIQUE constraint on that tuple is the authoritative idempotency
// guard; a losing concurrent insert surfaces as domain.ErrAlreadyExists.
func (r *processedEventRepo) InsertPending(ctx context.Context, tx repository.Tx, ev *model.ProcessedEvent) error {
	const q = `
INSERT INTO processed_events (
  id, provider, provider_event_id, charge_id, claimed_status, amount_minor, currency, raw_payload, outcome, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`

	_, err := execSQL(ctx, r.pool, tx, q,
		ev.ID, ev.Provider, ev.ProviderEventID, ev.ChargeID, ev.ClaimedStatus,
		ev.AmountMinor, ev.Currency, ev.RawPayload, ev.Outcome, ev.CreatedAt)
	if err != nil {
		switch {
		case err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext:
			return err
		case isUniqueViolation(err):
			return domain.ErrAlreadyExists
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *processedEventRepo) FinalizeOutcome(ctx context.Context, tx repository.Tx, id string, outcome model.Outcome, verifiedPayload []byte, errDetail, subscriptionID, userID *string) error {
	const q = `
UPDATE processed_events
   SET outcome=$2,
       verified_payload=COALESCE($3, verified_payload),
       error_detail=$4,
       subscription_id=COALESCE($5, subscription_id),
       user_id=COALESCE($6, user_id),
       processed_at=NOW()
 WHERE id=$1;`

	_, err := execSQL(ctx, r.pool, tx, q, id, outcome, verifiedPayload, errDetail, subscriptionID, userID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *processedEventRepo) ListFailed(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.ProcessedEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + processedEventCols + ` FROM processed_events WHERE outcome='verification_failed' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	return r.list(ctx, tx, q, olderThan, limit)
}

func (r *processedEventRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.ProcessedEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `SELECT ` + processedEventCols + ` FROM processed_events ORDER BY created_at DESC LIMIT $1;`
	return r.list(ctx, tx, q, limit)
}

func (r *processedEventRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.ProcessedEvent, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.ProcessedEvent
	for rows.Next() {
		ev, err := scanProcessedEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func scanProcessedEvent(row pgx.Row) (*model.ProcessedEvent, error) {
	ev := &model.ProcessedEvent{}
	err := row.Scan(&ev.ID, &ev.Provider, &ev.ProviderEventID, &ev.ChargeID, &ev.ClaimedStatus,
		&ev.AmountMinor, &ev.Currency, &ev.RawPayload, &ev.VerifiedPayload, &ev.Outcome,
		&ev.ErrorDetail, &ev.SubscriptionID, &ev.UserID, &ev.ProcessedAt, &ev.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return ev, nil
}

package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"fitpay-billing/internal/domain"
	"fitpay-billing/internal/domain/model"
	"fitpay-billing/internal/domain/ports/repository"
	"fitpay-billing/internal/infra/security"
)

var _ repository.AuditLogRepository = (*auditLogRepo)(nil)

type auditLogRepo struct {
	pool *pgxpool.Pool
	enc  *security.EncryptionService // nil means payloads are stored in the clear
}

func NewAuditLogRepo(pool *pgxpool.Pool, enc *security.EncryptionService) *auditLogRepo {
	return &auditLogRepo{pool: pool, enc: enc}
}

func (r *auditLogRepo) Append(ctx context.Context, tx repository.Tx, rec *model.AuditRecord) error {
	const q = `
INSERT INTO webhook_audit (
  id, provider, charge_id, source_ip, signature_result, gateway_checked, gateway_status, outcome, reason, subscription_id, user_id, payload_digest, raw_payload, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14);`

	payload := rec.RawPayload
	if r.enc != nil && len(payload) > 0 {
		sealed, err := r.enc.Encrypt(payload)
		if err != nil {
			return domain.ErrOperationFailed
		}
		payload = []byte(sealed)
	}

	_, err := execSQL(ctx, r.pool, tx, q,
		rec.ID, rec.Provider, rec.ChargeID, rec.SourceIP, rec.SignatureResult,
		rec.GatewayChecked, rec.GatewayStatus, rec.Outcome, rec.Reason,
		rec.SubscriptionID, rec.UserID, rec.PayloadDigest, payload, rec.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *auditLogRepo) ListByCharge(ctx context.Context, tx repository.Tx, chargeID string, limit int) ([]*model.AuditRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `
SELECT id, provider, charge_id, source_ip, signature_result, gateway_checked, gateway_status, outcome, reason, subscription_id, user_id, payload_digest, raw_payload, created_at
  FROM webhook_audit
 WHERE charge_id=$1
 ORDER BY id DESC
 LIMIT $2;`

	rows, err := queryRows(ctx, r.pool, tx, q, chargeID, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.AuditRecord
	for rows.Next() {
		rec := &model.AuditRecord{}
		if err := rows.Scan(&rec.ID, &rec.Provider, &rec.ChargeID, &rec.SourceIP, &rec.SignatureResult,
			&rec.GatewayChecked, &rec.GatewayStatus, &rec.Outcome, &rec.Reason,
			&rec.SubscriptionID, &rec.UserID, &rec.PayloadDigest, &rec.RawPayload, &rec.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		if r.enc != nil && len(rec.RawPayload) > 0 {
			if plain, err := r.enc.Decrypt(string(rec.RawPayload)); err == nil {
				rec.RawPayload = plain
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

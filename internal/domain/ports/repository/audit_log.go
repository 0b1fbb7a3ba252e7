package repository

import (
	"context"

	"fitpay-billing/internal/domain/model"
)

// -----------------------------
// Webhook audit log
// -----------------------------

type AuditLogRepository interface {
	// Append writes one attempt record. Best-effort: callers log failures
	// and move on, they never abort the pipeline over audit.
	Append(ctx context.Context, tx Tx, rec *model.AuditRecord) error
	ListByCharge(ctx context.Context, tx Tx, chargeID string, limit int) ([]*model.AuditRecord, error)
}

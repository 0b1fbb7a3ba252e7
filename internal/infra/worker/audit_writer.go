package worker

import (
	"context"
	"time"

	"fitpay-billing/internal/domain/model"
	"fitpay-billing/internal/domain/ports/repository"
)

var _ repository.AuditLogRepository = (*AsyncAuditLog)(nil)

// AsyncAuditLog moves audit inserts off the webhook hot path. Appends are
// queued onto the pool; when the queue is saturated the write falls back to
// a synchronous insert so records are never silently dropped.
type AsyncAuditLog struct {
	inner repository.AuditLogRepository
	pool  *Pool
}

func NewAsyncAuditLog(inner repository.AuditLogRepository, pool *Pool) *AsyncAuditLog {
	return &AsyncAuditLog{inner: inner, pool: pool}
}

func (a *AsyncAuditLog) Append(ctx context.Context, tx repository.Tx, rec *model.AuditRecord) error {
	// Transactional appends must stay on the caller's connection.
	if tx != repository.NoTX {
		return a.inner.Append(ctx, tx, rec)
	}
	err := a.pool.Submit(func(taskCtx context.Context) error {
		wctx, cancel := context.WithTimeout(taskCtx, 5*time.Second)
		defer cancel()
		return a.inner.Append(wctx, repository.NoTX, rec)
	})
	if err != nil {
		return a.inner.Append(ctx, tx, rec)
	}
	return nil
}

func (a *AsyncAuditLog) ListByCharge(ctx context.Context, tx repository.Tx, chargeID string, limit int) ([]*model.AuditRecord, error) {
	return a.inner.ListByCharge(ctx, tx, chargeID, limit)
}

package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fitpay-billing/internal/usecase"
)

// PaymentReconciler periodically re-drives events whose authoritative gateway
// fetch failed at webhook time. This covers transient gateway outages and
// process crashes between ledger claim and finalize.
type PaymentReconciler struct {
	uc        usecase.WebhookUseCase
	interval  time.Duration // how often to scan
	grace     time.Duration // how old a failed event must be to retry
	batchSize int
	log       *zerolog.Logger
}

func NewPaymentReconciler(uc usecase.WebhookUseCase, interval, grace time.Duration, batchSize int, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if grace <= 0 {
		grace = 10 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	log := logger.With().Str("component", "payment-reconciler").Logger()
	return &PaymentReconciler{uc: uc, interval: interval, grace: grace, batchSize: batchSize, log: &log}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.grace)
	done, err := w.uc.ReprocessFailed(ctx, cutoff, w.batchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("reprocess failed events")
		return
	}
	if done > 0 {
		w.log.Info().Int("reprocessed", done).Msg("reconciler pass complete")
	}
}

// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"time"

	"fitpay-billing/internal/domain/model"
	"fitpay-billing/internal/domain/ports/repository"
	"fitpay-billing/internal/infra/metrics"
)

// ReprocessFailed re-drives events whose authoritative fetch failed at
// delivery time. The gateway has stopped retrying by then; this sweep is the
// "later reconciliation pass" that catches the subscription up. Returns the
// number of events that reached a final outcome.
func (u *webhookUC) ReprocessFailed(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	events, err := u.events.ListFailed(ctx, repository.NoTX, olderThan, limit)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, ev := range events {
		charge, err := u.gateway.FetchCharge(ctx, ev.ChargeID)
		if err != nil {
			metrics.IncGatewayVerify("error")
			u.log.Warn().Err(err).Str("charge_id", ev.ChargeID).Msg("reconcile: charge fetch failed again")
			continue
		}
		metrics.IncGatewayVerify("ok")

		n := &model.ChargeNotification{ChargeID: ev.ChargeID, ClaimedStatus: ev.ClaimedStatus}
		sub, reason := u.resolveSubscription(ctx, charge, n)
		if sub == nil {
			detail := reason
			u.finalize(ctx, ev.ID, model.OutcomeSubscriptionNotFound, charge.Raw, &detail, nil, nil)
			done++
			continue
		}

		outcome, aerr := u.engine.ApplyOutcome(ctx, charge, sub)
		var detail *string
		if aerr != nil {
			d := aerr.Error()
			detail = &d
		}
		u.finalize(ctx, ev.ID, outcome, charge.Raw, detail, &sub.ID, &sub.UserID)
		metrics.IncWebhook(string(outcome))
		if outcome != model.OutcomeStorageFailure {
			done++
		}
	}
	return done, nil
}

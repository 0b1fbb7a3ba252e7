// File: internal/usecase/transition_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"fitpay-billing/internal/domain"
	"fitpay-billing/internal/domain/model"
	"fitpay-billing/internal/domain/ports/repository"
	"fitpay-billing/internal/infra/metrics"
)

// Compile-time check
var _ TransitionEngine = (*transitionEngine)(nil)

// TransitionEngine applies a verified charge outcome to the subscription and
// payment-ledger rows.
type TransitionEngine interface {
	// ApplyOutcome returns the resulting outcome. The charge passed in MUST
	// be the authoritative gateway view, never the webhook body.
	ApplyOutcome(ctx context.Context, charge *model.Charge, sub *model.Subscription) (model.Outcome, error)
}

type transitionEngine struct {
	subs      repository.SubscriptionRepository
	payments  repository.PaymentRepository
	discounts repository.DiscountRepository
	tm        repository.TransactionManager

	tolerance int64 // accepted absolute amount difference, minor units
	cycleDays int

	log *zerolog.Logger
	now func() time.Time
}

func NewTransitionEngine(
	subs repository.SubscriptionRepository,
	payments repository.PaymentRepository,
	discounts repository.DiscountRepository,
	tm repository.TransactionManager,
	tolerance int64,
	cycleDays int,
	logger *zerolog.Logger,
) *transitionEngine {
	l := logger.With().Str("component", "TransitionEngine").Logger()
	if cycleDays <= 0 {
		cycleDays = 30
	}
	return &transitionEngine{
		subs:      subs,
		payments:  payments,
		discounts: discounts,
		tm:        tm,
		tolerance: tolerance,
		cycleDays: cycleDays,
		log:       &l,
		now:       time.Now,
	}
}

func (e *transitionEngine) ApplyOutcome(ctx context.Context, charge *model.Charge, sub *model.Subscription) (model.Outcome, error) {
	// Idempotent fast path: a paid ledger row for this exact charge id means
	// the one permitted activation already happened. This is also what keeps
	// activation monotonic per charge: no later notification for the same
	// charge, whatever it claims, can undo it.
	existing, err := e.payments.FindByChargeID(ctx, repository.NoTX, charge.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return model.OutcomeStorageFailure, err
	}
	if existing != nil && existing.Status == model.PaymentStatusPaid {
		return model.OutcomeAlreadyActive, nil
	}

	switch {
	case charge.Captured():
		return e.activate(ctx, charge, sub)
	case charge.TerminalFailure():
		return e.markPastDue(ctx, charge, sub)
	default:
		// Non-terminal (INITIATED, IN_PROGRESS, ...) or unrecognized: no-op.
		return model.OutcomeIgnored, nil
	}
}

func (e *transitionEngine) activate(ctx context.Context, charge *model.Charge, sub *model.Subscription) (model.Outcome, error) {
	diff := charge.AmountMinor - sub.BillingAmountMinor
	if diff < 0 {
		diff = -diff
	}
	if diff > e.tolerance {
		e.log.Warn().Str("charge_id", charge.ID).Str("subscription_id", sub.ID).
			Int64("charge_amount", charge.AmountMinor).Int64("expected_amount", sub.BillingAmountMinor).
			Msg("verified charge amount does not match subscription")
		return model.OutcomeAmountMismatch, nil
	}
	if !strings.EqualFold(charge.Currency, sub.Currency) {
		e.log.Warn().Str("charge_id", charge.ID).Str("subscription_id", sub.ID).
			Str("charge_currency", charge.Currency).Str("expected_currency", sub.Currency).
			Msg("verified charge currency does not match subscription")
		return model.OutcomeCurrencyMismatch, nil
	}

	now := e.now()
	next := now.AddDate(0, 0, e.cycleDays)

	err := e.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := e.subs.Activate(ctx, tx, sub.ID, repository.ActivationUpdate{
			ChargeID:      charge.ID,
			PaymentStatus: charge.Status,
			VerifiedAt:    now,
			CycleStartAt:  now,
			NextBillingAt: next,
		}); err != nil {
			return err
		}

		paidAt := now
		if err := e.payments.Upsert(ctx, tx, &model.SubscriptionPayment{
			ID:               uuid.NewString(),
			ChargeID:         charge.ID,
			SubscriptionID:   sub.ID,
			UserID:           sub.UserID,
			AmountMinor:      charge.AmountMinor,
			Currency:         charge.Currency,
			Status:           model.PaymentStatusPaid,
			GatewayReference: charge.GatewayReference,
			PaymentReference: charge.PaymentReference,
			PaidAt:           &paidAt,
			CreatedAt:        now,
			UpdatedAt:        now,
		}); err != nil {
			return err
		}

		if sub.DiscountID != nil {
			return e.discounts.RecordRedemption(ctx, tx, &model.DiscountRedemption{
				ID:             uuid.NewString(),
				DiscountID:     *sub.DiscountID,
				SubscriptionID: sub.ID,
				ChargeID:       charge.ID,
				RedeemedAt:     now,
			})
		}
		return nil
	})
	if err != nil {
		e.log.Error().Err(err).Str("charge_id", charge.ID).Str("subscription_id", sub.ID).
			Msg("activation transaction failed")
		return model.OutcomeStorageFailure, err
	}

	metrics.IncPayment(string(model.PaymentStatusPaid))
	metrics.AddPaymentRevenue(charge.Currency, charge.AmountMinor)
	e.log.Info().Str("charge_id", charge.ID).Str("subscription_id", sub.ID).Msg("subscription activated")
	return model.OutcomeActivated, nil
}

func (e *transitionEngine) markPastDue(ctx context.Context, charge *model.Charge, sub *model.Subscription) (model.Outcome, error) {
	payStatus := model.PaymentStatusFailed
	if strings.EqualFold(charge.Status, model.ChargeStatusCancelled) {
		payStatus = model.PaymentStatusCancelled
	}

	now := e.now()
	err := e.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := e.subs.MarkPastDue(ctx, tx, sub.ID, charge.Status); err != nil {
			return err
		}
		return e.payments.Upsert(ctx, tx, &model.SubscriptionPayment{
			ID:               uuid.NewString(),
			ChargeID:         charge.ID,
			SubscriptionID:   sub.ID,
			UserID:           sub.UserID,
			AmountMinor:      charge.AmountMinor,
			Currency:         charge.Currency,
			Status:           payStatus,
			GatewayReference: charge.GatewayReference,
			PaymentReference: charge.PaymentReference,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	})
	if err != nil {
		e.log.Error().Err(err).Str("charge_id", charge.ID).Str("subscription_id", sub.ID).
			Msg("past-due transaction failed")
		return model.OutcomeStorageFailure, err
	}

	metrics.IncPayment(string(payStatus))
	e.log.Info().Str("charge_id", charge.ID).Str("subscription_id", sub.ID).
		Str("charge_status", charge.Status).Msg("subscription marked past due")
	return model.OutcomeMarkedPastDue, nil
}

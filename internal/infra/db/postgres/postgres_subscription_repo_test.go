//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"fitpay-billing/internal/domain"
	"fitpay-billing/internal/domain/model"
	"fitpay-billing/internal/domain/ports/repository"
)

func TestSubscriptionRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewSubscriptionRepo(testPool)

	activation := func(chargeID string) repository.ActivationUpdate {
		now := time.Now().Truncate(time.Millisecond)
		return repository.ActivationUpdate{
			ChargeID:      chargeID,
			PaymentStatus: "CAPTURED",
			VerifiedAt:    now,
			CycleStartAt:  now,
			NextBillingAt: now.AddDate(0, 0, 30),
		}
	}

	t.Run("should activate a pending subscription atomically", func(t *testing.T) {
		cleanup(t)
		id := uuid.NewString()
		insertSubscription(t, id, "user-1", "pending", 25000, "KWD")

		if err := repo.Activate(ctx, nil, id, activation("chg_100")); err != nil {
			t.Fatalf("Activate failed: %v", err)
		}

		got, err := repo.FindByID(ctx, nil, id)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got.Status != model.SubscriptionStatusActive {
			t.Errorf("expected status active, got %s", got.Status)
		}
		if got.LastVerifiedChargeID == nil || *got.LastVerifiedChargeID != "chg_100" {
			t.Error("charge reference was not recorded")
		}
		if got.LastPaymentVerifiedAt == nil || got.CycleStartAt == nil || got.NextBillingAt == nil {
			t.Error("activation timestamps were not all set")
		}
		if got.FailedCharges != 0 {
			t.Errorf("expected failed_charges reset, got %d", got.FailedCharges)
		}
	})

	t.Run("should refuse activation of an unknown subscription", func(t *testing.T) {
		cleanup(t)
		err := repo.Activate(ctx, nil, uuid.NewString(), activation("chg_101"))
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("should refuse activation of a cancelled subscription", func(t *testing.T) {
		cleanup(t)
		id := uuid.NewString()
		insertSubscription(t, id, "user-1", "cancelled", 25000, "KWD")

		err := repo.Activate(ctx, nil, id, activation("chg_102"))
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound for cancelled subscription, got %v", err)
		}
		got, _ := repo.FindByID(ctx, nil, id)
		if got.Status != model.SubscriptionStatusCancelled {
			t.Errorf("cancelled subscription must stay cancelled, got %s", got.Status)
		}
	})

	t.Run("should let the storage trigger block a bare active flip", func(t *testing.T) {
		cleanup(t)
		id := uuid.NewString()
		insertSubscription(t, id, "user-1", "pending", 25000, "KWD")

		// An UPDATE that sets active without the verification fields must
		// be rejected at the storage layer, whatever code issues it.
		_, err := testPool.Exec(ctx, `UPDATE subscriptions SET status='active' WHERE id=$1;`, id)
		if err == nil {
			t.Fatal("expected the trigger to reject an unverified activation")
		}
	})

	t.Run("should mark past due and count the failed charge", func(t *testing.T) {
		cleanup(t)
		id := uuid.NewString()
		insertSubscription(t, id, "user-1", "pending", 25000, "KWD")
		if err := repo.Activate(ctx, nil, id, activation("chg_seed")); err != nil {
			t.Fatalf("Activate failed: %v", err)
		}

		if err := repo.MarkPastDue(ctx, nil, id, "DECLINED"); err != nil {
			t.Fatalf("MarkPastDue failed: %v", err)
		}
		if err := repo.MarkPastDue(ctx, nil, id, "FAILED"); err != nil {
			t.Fatalf("second MarkPastDue failed: %v", err)
		}

		got, _ := repo.FindByID(ctx, nil, id)
		if got.Status != model.SubscriptionStatusPastDue {
			t.Errorf("expected status past_due, got %s", got.Status)
		}
		if got.FailedCharges != 2 {
			t.Errorf("expected 2 failed charges, got %d", got.FailedCharges)
		}
		if got.LastPaymentStatus == nil || *got.LastPaymentStatus != "FAILED" {
			t.Error("last payment status was not updated")
		}
	})

	t.Run("should resolve a subscription by its charge reference", func(t *testing.T) {
		cleanup(t)
		id := uuid.NewString()
		insertSubscription(t, id, "user-1", "pending", 25000, "KWD")
		if err := repo.Activate(ctx, nil, id, activation("chg_103")); err != nil {
			t.Fatalf("Activate failed: %v", err)
		}

		got, err := repo.FindByChargeRef(ctx, nil, "chg_103")
		if err != nil {
			t.Fatalf("FindByChargeRef failed: %v", err)
		}
		if got.ID != id {
			t.Error("resolved the wrong subscription")
		}

		if _, err := repo.FindByChargeRef(ctx, nil, "chg_unknown"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound for unknown charge ref, got %v", err)
		}
	})
}

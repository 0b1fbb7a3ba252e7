package repository

import (
	"context"
	"time"

	"fitpay-billing/internal/domain/model"
)

// -----------------------------
// Idempotency ledger
// -----------------------------

type ProcessedEventRepository interface {
	// Find returns the event for (provider, chargeID, claimedStatus), or
	// domain.ErrNotFound. This lookup is an optimization to skip the outbound
	// call; the unique constraint behind InsertPending is the real guard.
	Find(ctx context.Context, tx Tx, provider, chargeID, claimedStatus string) (*model.ProcessedEvent, error)
	// InsertPending claims the (provider, charge_id, claimed_status) slot.
	// Returns domain.ErrAlreadyExists when another delivery won the race.
	InsertPending(ctx context.Context, tx Tx, ev *model.ProcessedEvent) error
	// FinalizeOutcome records the authoritative payload and final outcome for
	// a previously claimed event. Called exactly once per event.
	FinalizeOutcome(ctx context.Context, tx Tx, id string, outcome model.Outcome, verifiedPayload []byte, errDetail, subscriptionID, userID *string) error
	// ListFailed returns verification_failed events older than the cutoff,
	// oldest first, for the reconciliation sweep.
	ListFailed(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.ProcessedEvent, error)
	// ListRecent returns the newest events for the ops API.
	ListRecent(ctx context.Context, tx Tx, limit int) ([]*model.ProcessedEvent, error)
}

// File: internal/usecase/webhook_uc.go
package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"fitpay-billing/internal/domain"
	"fitpay-billing/internal/domain/model"
	"fitpay-billing/internal/domain/ports/adapter"
	"fitpay-billing/internal/domain/ports/repository"
	"fitpay-billing/internal/infra/metrics"
)

// SignatureVerifier checks a notification's claimed signature header.
type SignatureVerifier interface {
	Verify(n *model.ChargeNotification, header string) model.SignatureResult
}

// WebhookRequest is one inbound gateway delivery.
type WebhookRequest struct {
	Body      []byte
	Signature string // signature header value, may be empty
	SourceIP  string
}

// WebhookResponse is always returned with HTTP 200: business-rule rejections
// must not look like delivery failures to the gateway, or it retries
// aggressively.
type WebhookResponse struct {
	Received  bool   `json:"received"`
	Processed bool   `json:"processed,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Throttled bool   `json:"throttled,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Result    string `json:"result,omitempty"`
}

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

// WebhookUseCase runs the full ingestion -> verification -> state-transition
// pipeline for one delivery.
type WebhookUseCase interface {
	Process(ctx context.Context, req *WebhookRequest) *WebhookResponse
	// ReprocessFailed re-drives verification_failed events older than the
	// cutoff; used by the reconciliation worker.
	ReprocessFailed(ctx context.Context, olderThan time.Time, limit int) (int, error)
}

type webhookUC struct {
	provider string
	limiter  adapter.RateLimiter
	sig      SignatureVerifier
	gateway  adapter.ChargeFetcher
	events   repository.ProcessedEventRepository
	subs     repository.SubscriptionRepository
	engine   TransitionEngine
	audit    repository.AuditLogRepository

	log *zerolog.Logger
	now func() time.Time
}

func NewWebhookUseCase(
	limiter adapter.RateLimiter,
	sig SignatureVerifier,
	gateway adapter.ChargeFetcher,
	events repository.ProcessedEventRepository,
	subs repository.SubscriptionRepository,
	engine TransitionEngine,
	audit repository.AuditLogRepository,
	logger *zerolog.Logger,
) *webhookUC {
	l := logger.With().Str("component", "WebhookUseCase").Logger()
	return &webhookUC{
		provider: gateway.Name(),
		limiter:  limiter,
		sig:      sig,
		gateway:  gateway,
		events:   events,
		subs:     subs,
		engine:   engine,
		audit:    audit,
		log:      &l,
		now:      time.Now,
	}
}

// attempt accumulates what we learn about one delivery so the audit row can
// be written on every exit path.
type attempt struct {
	chargeID       string
	sigResult      model.SignatureResult
	gatewayChecked bool
	gatewayStatus  string
	outcome        model.Outcome
	reason         string
	subscriptionID *string
	userID         *string
	raw            []byte
}

func (u *webhookUC) Process(ctx context.Context, req *WebhookRequest) (resp *WebhookResponse) {
	start := u.now()
	at := &attempt{raw: req.Body, sigResult: model.SignatureUnverifiable, outcome: model.OutcomeIgnored}

	// Catastrophic faults become a logged "internal error, received" answer;
	// a 500 would only invite a retry storm.
	defer func() {
		if r := recover(); r != nil {
			u.log.Error().Interface("panic", r).Str("source_ip", req.SourceIP).Msg("webhook pipeline panicked")
			at.outcome = model.OutcomeInternalError
			at.reason = "internal_error"
			resp = &WebhookResponse{Received: true, Reason: "internal_error"}
		}
		u.writeAudit(ctx, req, at)
		metrics.IncWebhook(string(at.outcome))
		metrics.ObserveWebhookDuration(string(at.outcome), u.now().Sub(start).Seconds())
	}()

	// Coarse per-source shedding before any parsing work.
	if d, err := u.limiter.AllowSource(ctx, req.SourceIP); err != nil {
		u.log.Warn().Err(err).Msg("source rate limiter unavailable; failing open")
	} else if !d.Allowed {
		metrics.IncRateLimitDrop(d.Reason)
		at.outcome, at.reason = model.OutcomeThrottled, d.Reason
		return &WebhookResponse{Received: true, Throttled: true, Reason: d.Reason}
	}

	n, err := model.ParseChargeNotification(req.Body)
	if err != nil {
		reason := "malformed_payload"
		if errors.Is(err, domain.ErrNoChargeIdentifier) {
			reason = "no_charge_id"
		}
		at.reason = reason
		return &WebhookResponse{Received: true, Ignored: true, Reason: reason}
	}
	at.chargeID = n.ChargeID

	// Cheap first filter; never the sole trust boundary. Whatever the result,
	// the authoritative fetch below decides what actually happened.
	at.sigResult = u.sig.Verify(n, req.Signature)
	metrics.IncSignatureResult(string(at.sigResult))
	if at.sigResult != model.SignatureValid {
		u.log.Warn().Str("charge_id", n.ChargeID).Str("source_ip", req.SourceIP).
			Str("signature_result", string(at.sigResult)).Msg("notification signature not verified")
	}

	// Early ledger lookup: an optimization to skip the outbound call, not the
	// dedup guarantee. The guarantee is the unique constraint behind
	// InsertPending.
	if prior, err := u.events.Find(ctx, repository.NoTX, u.provider, n.ChargeID, n.ClaimedStatus); err == nil {
		at.outcome, at.reason = model.OutcomeDuplicate, "already_processed"
		return &WebhookResponse{Received: true, Duplicate: true, Reason: "already_processed", Result: string(prior.Outcome)}
	} else if !errors.Is(err, domain.ErrNotFound) {
		u.log.Warn().Err(err).Str("charge_id", n.ChargeID).Msg("ledger lookup failed; continuing to insert")
	}

	if d, err := u.limiter.AllowCharge(ctx, n.ChargeID); err != nil {
		u.log.Warn().Err(err).Msg("charge rate limiter unavailable; failing open")
	} else if !d.Allowed {
		metrics.IncRateLimitDrop(d.Reason)
		at.outcome, at.reason = model.OutcomeThrottled, d.Reason
		return &WebhookResponse{Received: true, Throttled: true, Reason: d.Reason}
	}

	ev := &model.ProcessedEvent{
		ID:            uuid.NewString(),
		Provider:      u.provider,
		ChargeID:      n.ChargeID,
		ClaimedStatus: n.ClaimedStatus,
		AmountMinor:   n.AmountMinor,
		Currency:      n.Currency,
		RawPayload:    req.Body,
		Outcome:       model.OutcomePending,
		CreatedAt:     u.now(),
	}
	if err := u.events.InsertPending(ctx, repository.NoTX, ev); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Lost the insert race to a concurrent delivery of the same
			// (charge, status); the winner does the one transition.
			result := ""
			if prior, ferr := u.events.Find(ctx, repository.NoTX, u.provider, n.ChargeID, n.ClaimedStatus); ferr == nil {
				result = string(prior.Outcome)
			}
			at.outcome, at.reason = model.OutcomeDuplicate, "already_processed"
			return &WebhookResponse{Received: true, Duplicate: true, Reason: "already_processed", Result: result}
		}
		u.log.Error().Err(err).Str("charge_id", n.ChargeID).Msg("ledger insert failed")
		at.outcome, at.reason = model.OutcomeStorageFailure, "storage_failure"
		return &WebhookResponse{Received: true, Reason: "storage_failure"}
	}

	outcome, reason, result := u.processClaimed(ctx, n, ev, at)
	at.outcome, at.reason = outcome, reason
	resp = &WebhookResponse{Received: true, Reason: reason, Result: result}
	switch outcome {
	case model.OutcomeActivated, model.OutcomeAlreadyActive, model.OutcomeMarkedPastDue:
		resp.Processed = true
	case model.OutcomeIgnored:
		resp.Ignored = true
	}
	return resp
}

// processClaimed runs the authoritative half of the pipeline once the ledger
// slot is claimed. Every exit finalizes the event row.
func (u *webhookUC) processClaimed(ctx context.Context, n *model.ChargeNotification, ev *model.ProcessedEvent, at *attempt) (model.Outcome, string, string) {
	fetchStart := u.now()
	charge, err := u.gateway.FetchCharge(ctx, n.ChargeID)
	elapsed := u.now().Sub(fetchStart).Seconds()
	at.gatewayChecked = true
	if err != nil {
		metrics.IncGatewayVerify("error")
		metrics.ObserveGatewayVerify("error", elapsed)
		u.log.Error().Err(err).Str("charge_id", n.ChargeID).Msg("authoritative charge fetch failed")
		detail := err.Error()
		u.finalize(ctx, ev.ID, model.OutcomeVerificationFailed, nil, &detail, nil, nil)
		return model.OutcomeVerificationFailed, "verification_failed", ""
	}
	metrics.IncGatewayVerify("ok")
	metrics.ObserveGatewayVerify("ok", elapsed)
	at.gatewayStatus = charge.Status

	sub, reason := u.resolveSubscription(ctx, charge, n)
	if sub == nil {
		detail := reason
		u.finalize(ctx, ev.ID, model.OutcomeSubscriptionNotFound, charge.Raw, &detail, nil, nil)
		return model.OutcomeSubscriptionNotFound, reason, ""
	}
	at.subscriptionID = &sub.ID
	at.userID = &sub.UserID

	outcome, err := u.engine.ApplyOutcome(ctx, charge, sub)
	var detail *string
	if err != nil {
		d := err.Error()
		detail = &d
	}
	u.finalize(ctx, ev.ID, outcome, charge.Raw, detail, &sub.ID, &sub.UserID)

	switch outcome {
	case model.OutcomeActivated, model.OutcomeAlreadyActive, model.OutcomeMarkedPastDue:
		return outcome, "", string(outcome)
	case model.OutcomeIgnored:
		return outcome, "non_terminal_status", ""
	default:
		return outcome, string(outcome), ""
	}
}

// resolveSubscription locates the subscription a charge belongs to. The
// charge id from the notification is only a lookup key; what we act on is
// the authoritative charge's metadata, cross-checked against the row on
// file.
func (u *webhookUC) resolveSubscription(ctx context.Context, charge *model.Charge, n *model.ChargeNotification) (*model.Subscription, string) {
	subID := charge.Metadata.SubscriptionID
	if subID == "" {
		subID = charge.Metadata.ServiceID
	}
	if subID == "" {
		subID = n.Metadata.SubscriptionID
	}
	if subID == "" {
		subID = n.Metadata.ServiceID
	}

	if subID != "" {
		sub, err := u.subs.FindByID(ctx, repository.NoTX, subID)
		if err == nil {
			if uid := charge.Metadata.UserID; uid != "" && uid != sub.UserID {
				u.log.Warn().Str("charge_id", charge.ID).Str("subscription_id", sub.ID).
					Str("meta_user_id", uid).Str("sub_user_id", sub.UserID).
					Msg("charge metadata user does not match subscription on file")
				return nil, "metadata_mismatch"
			}
			return sub, ""
		}
		if !errors.Is(err, domain.ErrNotFound) {
			u.log.Error().Err(err).Str("subscription_id", subID).Msg("subscription lookup failed")
		}
	}

	// Recovery path: a recurring charge for a subscription we verified before.
	if sub, err := u.subs.FindByChargeRef(ctx, repository.NoTX, charge.ID); err == nil {
		return sub, ""
	}
	return nil, "subscription_not_found"
}

func (u *webhookUC) finalize(ctx context.Context, id string, outcome model.Outcome, verified []byte, detail, subID, userID *string) {
	if err := u.events.FinalizeOutcome(ctx, repository.NoTX, id, outcome, verified, detail, subID, userID); err != nil {
		u.log.Error().Err(err).Str("event_id", id).Str("outcome", string(outcome)).
			Msg("failed to finalize ledger outcome")
	}
}

// writeAudit appends the per-attempt forensic record. Best-effort: failures
// are logged, never propagated.
func (u *webhookUC) writeAudit(ctx context.Context, req *WebhookRequest, at *attempt) {
	digest := sha256.Sum256(req.Body)
	rec := &model.AuditRecord{
		ID:              ulid.Make().String(),
		Provider:        u.provider,
		ChargeID:        at.chargeID,
		SourceIP:        req.SourceIP,
		SignatureResult: at.sigResult,
		GatewayChecked:  at.gatewayChecked,
		GatewayStatus:   at.gatewayStatus,
		Outcome:         at.outcome,
		Reason:          at.reason,
		SubscriptionID:  at.subscriptionID,
		UserID:          at.userID,
		PayloadDigest:   hex.EncodeToString(digest[:]),
		RawPayload:      at.raw,
		CreatedAt:       u.now(),
	}
	if err := u.audit.Append(ctx, repository.NoTX, rec); err != nil {
		u.log.Error().Err(err).Str("charge_id", at.chargeID).Msg("audit append failed")
	}
}

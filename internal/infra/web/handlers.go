package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"fitpay-billing/internal/domain/model"
	"fitpay-billing/internal/domain/ports/repository"
)

type eventView struct {
	ID             string     `json:"id"`
	Provider       string     `json:"provider"`
	ChargeID       string     `json:"charge_id"`
	ClaimedStatus  string     `json:"claimed_status"`
	AmountMinor    int64      `json:"amount_minor"`
	Currency       string     `json:"currency"`
	Outcome        string     `json:"outcome"`
	ErrorDetail    *string    `json:"error_detail,omitempty"`
	SubscriptionID *string    `json:"subscription_id,omitempty"`
	UserID         *string    `json:"user_id,omitempty"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func eventsListHandler(events repository.ProcessedEventRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		list, err := events.ListRecent(ctx, repository.NoTX, limit)
		if err != nil {
			http.Error(w, "Failed to list events", http.StatusInternalServerError)
			return
		}

		out := make([]eventView, 0, len(list))
		for _, ev := range list {
			out = append(out, eventView{
				ID:             ev.ID,
				Provider:       ev.Provider,
				ChargeID:       ev.ChargeID,
				ClaimedStatus:  ev.ClaimedStatus,
				AmountMinor:    ev.AmountMinor,
				Currency:       ev.Currency,
				Outcome:        string(ev.Outcome),
				ErrorDetail:    ev.ErrorDetail,
				SubscriptionID: ev.SubscriptionID,
				UserID:         ev.UserID,
				ProcessedAt:    ev.ProcessedAt,
				CreatedAt:      ev.CreatedAt,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

type auditView struct {
	ID              string    `json:"id"`
	ChargeID        string    `json:"charge_id"`
	SourceIP        string    `json:"source_ip"`
	SignatureResult string    `json:"signature_result"`
	GatewayChecked  bool      `json:"gateway_checked"`
	GatewayStatus   string    `json:"gateway_status,omitempty"`
	Outcome         string    `json:"outcome"`
	Reason          string    `json:"reason,omitempty"`
	SubscriptionID  *string   `json:"subscription_id,omitempty"`
	UserID          *string   `json:"user_id,omitempty"`
	PayloadDigest   string    `json:"payload_digest"`
	CreatedAt       time.Time `json:"created_at"`
}

func auditListHandler(audit repository.AuditLogRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		chargeID := r.URL.Query().Get("charge_id")
		if chargeID == "" {
			http.Error(w, "charge_id is required", http.StatusBadRequest)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		list, err := audit.ListByCharge(ctx, repository.NoTX, chargeID, limit)
		if err != nil {
			http.Error(w, "Failed to list audit records", http.StatusInternalServerError)
			return
		}

		out := make([]auditView, 0, len(list))
		for _, rec := range list {
			out = append(out, viewOfAudit(rec))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

func viewOfAudit(rec *model.AuditRecord) auditView {
	return auditView{
		ID:              rec.ID,
		ChargeID:        rec.ChargeID,
		SourceIP:        rec.SourceIP,
		SignatureResult: string(rec.SignatureResult),
		GatewayChecked:  rec.GatewayChecked,
		GatewayStatus:   rec.GatewayStatus,
		Outcome:         string(rec.Outcome),
		Reason:          rec.Reason,
		SubscriptionID:  rec.SubscriptionID,
		UserID:          rec.UserID,
		PayloadDigest:   rec.PayloadDigest,
		CreatedAt:       rec.CreatedAt,
	}
}

//go:build !integration

package web_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"fitpay-billing/internal/domain/model"
	"fitpay-billing/internal/domain/ports/repository"
	"fitpay-billing/internal/infra/web"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- Stub repositories ----

type stubEventRepo struct {
	events []*model.ProcessedEvent
}

var _ repository.ProcessedEventRepository = (*stubEventRepo)(nil)

func (s *stubEventRepo) Find(ctx context.Context, tx repository.Tx, provider, chargeID, claimedStatus string) (*model.ProcessedEvent, error) {
	return nil, nil
}
func (s *stubEventRepo) InsertPending(ctx context.Context, tx repository.Tx, ev *model.ProcessedEvent) error {
	return nil
}
func (s *stubEventRepo) FinalizeOutcome(ctx context.Context, tx repository.Tx, id string, outcome model.Outcome, verifiedPayload []byte, errDetail, subscriptionID, userID *string) error {
	return nil
}
func (s *stubEventRepo) ListFailed(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.ProcessedEvent, error) {
	return nil, nil
}
func (s *stubEventRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.ProcessedEvent, error) {
	return s.events, nil
}

type stubAuditRepo struct {
	records []*model.AuditRecord
}

var _ repository.AuditLogRepository = (*stubAuditRepo)(nil)

func (s *stubAuditRepo) Append(ctx context.Context, tx repository.Tx, rec *model.AuditRecord) error {
	return nil
}
func (s *stubAuditRepo) ListByCharge(ctx context.Context, tx repository.Tx, chargeID string, limit int) ([]*model.AuditRecord, error) {
	var out []*model.AuditRecord
	for _, r := range s.records {
		if r.ChargeID == chargeID {
			out = append(out, r)
		}
	}
	return out, nil
}

const testAPIKey = "ops-key-123"

func newOpsHandler(events *stubEventRepo, audit *stubAuditRepo) http.Handler {
	auth := web.NewAuthManager("0123456789abcdef0123456789abcdef", time.Minute)
	srv := web.NewServer(events, audit, testAPIKey, auth, newTestLogger())
	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return r
}

func TestOpsAPI_Auth(t *testing.T) {
	h := newOpsHandler(&stubEventRepo{}, &stubAuditRepo{})

	t.Run("should refuse requests without credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("should refuse a wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("should accept the static API key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("should exchange the key for a working JWT", func(t *testing.T) {
		// Arrange: mint a token
		req := httptest.NewRequest(http.MethodPost, "/api/v1/token", nil)
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("token mint: expected 200, got %d", rec.Code)
		}
		var out struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || out.Token == "" {
			t.Fatalf("expected a token, got %q (%v)", rec.Body.String(), err)
		}

		// Act: use it
		req = httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
		req.Header.Set("Authorization", "Bearer "+out.Token)
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		// Assert
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 with minted JWT, got %d", rec.Code)
		}
	})

	t.Run("should refuse to mint a token for a wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/token", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}

func TestOpsAPI_Listings(t *testing.T) {
	detail := "gateway timeout"
	events := &stubEventRepo{events: []*model.ProcessedEvent{
		{
			ID:            "ev-1",
			Provider:      "tap",
			ChargeID:      "chg_1",
			ClaimedStatus: "CAPTURED",
			AmountMinor:   25000,
			Currency:      "KWD",
			Outcome:       model.OutcomeVerificationFailed,
			ErrorDetail:   &detail,
			CreatedAt:     time.Now(),
		},
	}}
	audit := &stubAuditRepo{records: []*model.AuditRecord{
		{ID: "01AAA", ChargeID: "chg_1", SignatureResult: model.SignatureValid, Outcome: model.OutcomeActivated, PayloadDigest: "dead"},
		{ID: "01BBB", ChargeID: "chg_2", SignatureResult: model.SignatureInvalid, Outcome: model.OutcomeIgnored, PayloadDigest: "beef"},
	}}
	h := newOpsHandler(events, audit)

	authed := func(method, target string) *http.Request {
		req := httptest.NewRequest(method, target, nil)
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		return req
	}

	t.Run("should list recent events", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, authed(http.MethodGet, "/api/v1/events?limit=10"))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var got []map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("bad JSON: %v", err)
		}
		if len(got) != 1 || got[0]["charge_id"] != "chg_1" || got[0]["outcome"] != "verification_failed" {
			t.Errorf("unexpected events payload: %v", got)
		}
	})

	t.Run("should list audit records for one charge", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, authed(http.MethodGet, "/api/v1/audit?charge_id=chg_1"))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var got []map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("bad JSON: %v", err)
		}
		if len(got) != 1 || got[0]["charge_id"] != "chg_1" {
			t.Errorf("expected only chg_1 records, got %v", got)
		}
	})

	t.Run("should require a charge id for audit listings", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, authed(http.MethodGet, "/api/v1/audit"))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

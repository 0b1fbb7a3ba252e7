//go:build !integration

package payment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fitpay-billing/internal/domain/model"
	"fitpay-billing/internal/infra/payment"
)

var charge25KWD = model.Charge{
	ID:          "chg_noop_1",
	Status:      "CAPTURED",
	AmountMinor: 25000,
	Currency:    "KWD",
}

func TestTapClient_FetchCharge(t *testing.T) {
	ctx := context.Background()

	t.Run("should fetch and decode an authoritative charge", func(t *testing.T) {
		// Arrange
		var gotPath, gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "chg_TS012345678",
				"status": "CAPTURED",
				"amount": 25.000,
				"currency": "KWD",
				"reference": {"gateway": "gr_abc", "payment": "pr_def"},
				"transaction": {"created": "1719766000000"},
				"metadata": {"subscription_id": "sub-1", "user_id": "user-1"}
			}`))
		}))
		defer srv.Close()
		client := payment.NewTapClient("sk_test_key", srv.URL, 5*time.Second)

		// Act
		charge, err := client.FetchCharge(ctx, "chg_TS012345678")

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotPath != "/charges/chg_TS012345678" {
			t.Errorf("unexpected path %q", gotPath)
		}
		if gotAuth != "Bearer sk_test_key" {
			t.Errorf("unexpected auth header %q", gotAuth)
		}
		if charge.Status != "CAPTURED" || charge.AmountMinor != 25000 || charge.Currency != "KWD" {
			t.Errorf("unexpected charge %+v", charge)
		}
		if charge.Metadata.SubscriptionID != "sub-1" {
			t.Errorf("expected metadata to survive decoding, got %+v", charge.Metadata)
		}
		if len(charge.Raw) == 0 {
			t.Error("expected the raw body to be retained for the ledger")
		}
	})

	t.Run("should fail on a non-2xx response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"errors":[{"code":"1104"}]}`, http.StatusNotFound)
		}))
		defer srv.Close()
		client := payment.NewTapClient("sk_test_key", srv.URL, 5*time.Second)

		if _, err := client.FetchCharge(ctx, "chg_missing"); err == nil {
			t.Fatal("expected an error for 404")
		}
	})

	t.Run("should fail on a body without a charge id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"CAPTURED"}`))
		}))
		defer srv.Close()
		client := payment.NewTapClient("sk_test_key", srv.URL, 5*time.Second)

		if _, err := client.FetchCharge(ctx, "chg_x"); err == nil {
			t.Fatal("expected an error for a body without an id")
		}
	})

	t.Run("should respect context cancellation", func(t *testing.T) {
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-block
		}))
		defer srv.Close()
		defer close(block)
		client := payment.NewTapClient("sk_test_key", srv.URL, 5*time.Second)

		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		if _, err := client.FetchCharge(cctx, "chg_x"); err == nil {
			t.Fatal("expected a context deadline error")
		}
	})
}

func TestNoopGateway(t *testing.T) {
	g := payment.NewNoopGateway()

	t.Run("should return registered charges by value", func(t *testing.T) {
		g.Register(&charge25KWD)
		got, err := g.FetchCharge(context.Background(), charge25KWD.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got.Status = "MUTATED"
		again, _ := g.FetchCharge(context.Background(), charge25KWD.ID)
		if again.Status != "CAPTURED" {
			t.Error("expected stored charge to be isolated from caller mutation")
		}
	})

	t.Run("should fail for unknown charge ids", func(t *testing.T) {
		if _, err := g.FetchCharge(context.Background(), "chg_unknown"); err == nil {
			t.Fatal("expected an error for an unregistered charge")
		}
	})
}

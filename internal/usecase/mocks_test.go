//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"fitpay-billing/internal/domain"
	"fitpay-billing/internal/domain/model"
	"fitpay-billing/internal/domain/ports/adapter"
	"fitpay-billing/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Adapters
// =============================

// ---- Mock RateLimiter ----

type MockRateLimiter struct {
	AllowSourceFunc func(ctx context.Context, ip string) (adapter.Decision, error)
	AllowChargeFunc func(ctx context.Context, chargeID string) (adapter.Decision, error)
}

var _ adapter.RateLimiter = (*MockRateLimiter)(nil)

func (m *MockRateLimiter) AllowSource(ctx context.Context, ip string) (adapter.Decision, error) {
	if m.AllowSourceFunc != nil {
		return m.AllowSourceFunc(ctx, ip)
	}
	return adapter.Decision{Allowed: true}, nil
}

func (m *MockRateLimiter) AllowCharge(ctx context.Context, chargeID string) (adapter.Decision, error) {
	if m.AllowChargeFunc != nil {
		return m.AllowChargeFunc(ctx, chargeID)
	}
	return adapter.Decision{Allowed: true}, nil
}

// ---- Mock ChargeFetcher ----

type MockGateway struct {
	mu      sync.Mutex
	Charges map[string]*model.Charge
	Fetches int

	FetchChargeFunc func(ctx context.Context, chargeID string) (*model.Charge, error)
}

var _ adapter.ChargeFetcher = (*MockGateway)(nil)

func NewMockGateway() *MockGateway {
	return &MockGateway{Charges: make(map[string]*model.Charge)}
}

func (m *MockGateway) Name() string { return "tap" }

func (m *MockGateway) FetchCharge(ctx context.Context, chargeID string) (*model.Charge, error) {
	m.mu.Lock()
	m.Fetches++
	m.mu.Unlock()
	if m.FetchChargeFunc != nil {
		return m.FetchChargeFunc(ctx, chargeID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Charges[chargeID]
	if !ok {
		return nil, fmt.Errorf("charge %s not found", chargeID)
	}
	cp := *c
	return &cp, nil
}

// ---- Stub signature verifier ----

type stubSigVerifier struct {
	Result model.SignatureResult
}

func (s *stubSigVerifier) Verify(n *model.ChargeNotification, header string) model.SignatureResult {
	return s.Result
}

// =============================
// Repositories
// =============================

// ---- In-memory processed-event ledger ----

// memEventRepo enforces the same (provider, charge_id, claimed_status)
// uniqueness the real table does, so race-loser behavior is testable.
type memEventRepo struct {
	mu     sync.Mutex
	byID   map[string]*model.ProcessedEvent
	byKey  map[string]string // claim key -> event id
	InsErr  error
	FindErr error
}

var _ repository.ProcessedEventRepository = (*memEventRepo)(nil)

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{byID: make(map[string]*model.ProcessedEvent), byKey: make(map[string]string)}
}

func claimKey(provider, chargeID, claimedStatus string) string {
	return provider + "|" + chargeID + "|" + claimedStatus
}

func (m *memEventRepo) Find(ctx context.Context, tx repository.Tx, provider, chargeID, claimedStatus string) (*model.ProcessedEvent, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byKey[claimKey(provider, chargeID, claimedStatus)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *memEventRepo) InsertPending(ctx context.Context, tx repository.Tx, ev *model.ProcessedEvent) error {
	if m.InsErr != nil {
		return m.InsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := claimKey(ev.Provider, ev.ChargeID, ev.ClaimedStatus)
	if _, exists := m.byKey[key]; exists {
		return domain.ErrAlreadyExists
	}
	cp := *ev
	m.byID[ev.ID] = &cp
	m.byKey[key] = ev.ID
	return nil
}

func (m *memEventRepo) FinalizeOutcome(ctx context.Context, tx repository.Tx, id string, outcome model.Outcome, verifiedPayload []byte, errDetail, subscriptionID, userID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	ev.Outcome = outcome
	if verifiedPayload != nil {
		ev.VerifiedPayload = verifiedPayload
	}
	if errDetail != nil {
		ev.ErrorDetail = errDetail
	}
	if subscriptionID != nil {
		ev.SubscriptionID = subscriptionID
	}
	if userID != nil {
		ev.UserID = userID
	}
	now := time.Now()
	ev.ProcessedAt = &now
	return nil
}

func (m *memEventRepo) ListFailed(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.ProcessedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ProcessedEvent
	for _, ev := range m.byID {
		if ev.Outcome == model.OutcomeVerificationFailed && ev.CreatedAt.Before(olderThan) {
			cp := *ev
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memEventRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.ProcessedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ProcessedEvent
	for _, ev := range m.byID {
		cp := *ev
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// get returns the stored event for assertions.
func (m *memEventRepo) get(provider, chargeID, claimedStatus string) *model.ProcessedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byKey[claimKey(provider, chargeID, claimedStatus)]
	if !ok {
		return nil
	}
	cp := *m.byID[id]
	return &cp
}

// ---- In-memory subscription repo ----

type memSubRepo struct {
	mu   sync.Mutex
	subs map[string]*model.Subscription

	ActivateErr    error
	MarkPastDueErr error
}

var _ repository.SubscriptionRepository = (*memSubRepo)(nil)

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{subs: make(map[string]*model.Subscription)}
}

func (m *memSubRepo) put(sub *model.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	m.subs[sub.ID] = &cp
}

func (m *memSubRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubRepo) FindByChargeRef(ctx context.Context, tx repository.Tx, chargeID string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.LastVerifiedChargeID != nil && *s.LastVerifiedChargeID == chargeID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSubRepo) Activate(ctx context.Context, tx repository.Tx, id string, upd repository.ActivationUpdate) error {
	if m.ActivateErr != nil {
		return m.ActivateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return domain.ErrNotFound
	}
	switch s.Status {
	case model.SubscriptionStatusPending, model.SubscriptionStatusActive, model.SubscriptionStatusPastDue:
	default:
		return domain.ErrNotFound
	}
	s.Status = model.SubscriptionStatusActive
	s.LastVerifiedChargeID = &upd.ChargeID
	s.LastPaymentVerifiedAt = &upd.VerifiedAt
	s.LastPaymentStatus = &upd.PaymentStatus
	s.CycleStartAt = &upd.CycleStartAt
	s.NextBillingAt = &upd.NextBillingAt
	s.FailedCharges = 0
	s.UpdatedAt = upd.VerifiedAt
	return nil
}

func (m *memSubRepo) MarkPastDue(ctx context.Context, tx repository.Tx, id string, paymentStatus string) error {
	if m.MarkPastDueErr != nil {
		return m.MarkPastDueErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = model.SubscriptionStatusPastDue
	s.LastPaymentStatus = &paymentStatus
	s.FailedCharges++
	return nil
}

// ---- In-memory payment repo ----

type memPaymentRepo struct {
	mu       sync.Mutex
	byCharge map[string]*model.SubscriptionPayment

	UpsertErr error
}

var _ repository.PaymentRepository = (*memPaymentRepo)(nil)

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{byCharge: make(map[string]*model.SubscriptionPayment)}
}

func (m *memPaymentRepo) FindByChargeID(ctx context.Context, tx repository.Tx, chargeID string) (*model.SubscriptionPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byCharge[chargeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.SubscriptionPayment) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	if prev, ok := m.byCharge[p.ChargeID]; ok {
		cp.ID = prev.ID
		if cp.PaidAt == nil {
			cp.PaidAt = prev.PaidAt
		}
	}
	m.byCharge[p.ChargeID] = &cp
	return nil
}

// ---- Mock discount repo ----

type MockDiscountRepo struct {
	mu          sync.Mutex
	Redemptions []*model.DiscountRedemption

	RecordRedemptionFunc func(ctx context.Context, tx repository.Tx, red *model.DiscountRedemption) error
}

var _ repository.DiscountRepository = (*MockDiscountRepo)(nil)

func (m *MockDiscountRepo) RecordRedemption(ctx context.Context, tx repository.Tx, red *model.DiscountRedemption) error {
	if m.RecordRedemptionFunc != nil {
		return m.RecordRedemptionFunc(ctx, tx, red)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Redemptions = append(m.Redemptions, red)
	return nil
}

// ---- Mock audit log ----

type MockAuditRepo struct {
	mu      sync.Mutex
	Records []*model.AuditRecord

	AppendFunc func(ctx context.Context, tx repository.Tx, rec *model.AuditRecord) error
}

var _ repository.AuditLogRepository = (*MockAuditRepo)(nil)

func (m *MockAuditRepo) Append(ctx context.Context, tx repository.Tx, rec *model.AuditRecord) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, rec)
	return nil
}

func (m *MockAuditRepo) ListByCharge(ctx context.Context, tx repository.Tx, chargeID string, limit int) ([]*model.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.AuditRecord
	for _, r := range m.Records {
		if r.ChargeID == chargeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockAuditRepo) last() *model.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Records) == 0 {
		return nil
	}
	return m.Records[len(m.Records)-1]
}

// ---- Mock transaction manager ----

// MockTxManager runs the callback immediately with the non-transactional
// sentinel, so repository mocks behave the same inside and outside "tx".
type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

package memory

import (
	"context"
	"sync"
	"time"

	"fitpay-billing/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.RateLimiter = (*RateLimiter)(nil)

// LimiterConfig holds the window parameters. Zero values fall back to the
// documented defaults.
type LimiterConfig struct {
	SourceWindow  time.Duration // sliding window per source IP
	SourceCap     int           // max requests per source window
	ChargeSpacing time.Duration // minimum gap between verifications of one charge
	ChargeWindow  time.Duration // per-charge window, anchored at the first hit
	ChargeCap     int           // max verification attempts per charge window
}

func (c *LimiterConfig) withDefaults() LimiterConfig {
	out := *c
	if out.SourceWindow <= 0 {
		out.SourceWindow = time.Minute
	}
	if out.SourceCap <= 0 {
		out.SourceCap = 30
	}
	if out.ChargeSpacing <= 0 {
		out.ChargeSpacing = 5 * time.Second
	}
	if out.ChargeWindow <= 0 {
		out.ChargeWindow = time.Minute
	}
	if out.ChargeCap <= 0 {
		out.ChargeCap = 3
	}
	return out
}

type window struct {
	start   time.Time
	count   int
	lastHit time.Time
}

// RateLimiter is the in-process implementation: an arena of counters keyed by
// string, constructed once at startup and handed to request handlers. State
// is process-lifetime only; counters reset on restart and each instance of a
// scaled-out deployment counts independently, which is acceptable for a
// best-effort shedding mechanism.
type RateLimiter struct {
	cfg LimiterConfig
	now func() time.Time

	mu      sync.Mutex
	sources map[string]*window
	charges map[string]*window
}

func NewRateLimiter(cfg LimiterConfig) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		sources: make(map[string]*window),
		charges: make(map[string]*window),
	}
}

func (r *RateLimiter) AllowSource(_ context.Context, ip string) (adapter.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w := r.sources[ip]
	if w == nil || now.Sub(w.start) >= r.cfg.SourceWindow {
		r.sources[ip] = &window{start: now, count: 1, lastHit: now}
		r.pruneLocked(now)
		return adapter.Decision{Allowed: true}, nil
	}
	w.count++
	w.lastHit = now
	if w.count > r.cfg.SourceCap {
		return adapter.Decision{Reason: "ip_window"}, nil
	}
	return adapter.Decision{Allowed: true}, nil
}

func (r *RateLimiter) AllowCharge(_ context.Context, chargeID string) (adapter.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w := r.charges[chargeID]
	if w == nil || now.Sub(w.start) >= r.cfg.ChargeWindow {
		r.charges[chargeID] = &window{start: now, count: 1, lastHit: now}
		return adapter.Decision{Allowed: true}, nil
	}
	if now.Sub(w.lastHit) < r.cfg.ChargeSpacing {
		return adapter.Decision{Reason: "charge_spacing"}, nil
	}
	w.count++
	w.lastHit = now
	if w.count > r.cfg.ChargeCap {
		return adapter.Decision{Reason: "charge_window"}, nil
	}
	return adapter.Decision{Allowed: true}, nil
}

// pruneLocked drops stale windows so the arenas don't grow unbounded under
// churny traffic. Called opportunistically while the lock is held.
func (r *RateLimiter) pruneLocked(now time.Time) {
	if len(r.sources) < 4096 && len(r.charges) < 4096 {
		return
	}
	for k, w := range r.sources {
		if now.Sub(w.start) >= r.cfg.SourceWindow {
			delete(r.sources, k)
		}
	}
	for k, w := range r.charges {
		if now.Sub(w.start) >= r.cfg.ChargeWindow {
			delete(r.charges, k)
		}
	}
}

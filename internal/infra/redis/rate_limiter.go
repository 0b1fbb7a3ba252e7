package redis

import (
	"context"
	"fmt"
	"time"

	"fitpay-billing/internal/domain/ports/adapter"
	"fitpay-billing/internal/infra/memory"
)

// Compile-time check
var _ adapter.RateLimiter = (*RateLimiter)(nil)

// RateLimiter keeps the shedding counters in Redis so horizontally scaled
// instances share one view of the windows. Backend errors fail open: a broken
// limiter must never block correct webhook processing.
type RateLimiter struct {
	client RedisClient
	cfg    memory.LimiterConfig
}

func NewRateLimiter(client RedisClient, cfg memory.LimiterConfig) *RateLimiter {
	if cfg.SourceWindow <= 0 {
		cfg.SourceWindow = time.Minute
	}
	if cfg.SourceCap <= 0 {
		cfg.SourceCap = 30
	}
	if cfg.ChargeSpacing <= 0 {
		cfg.ChargeSpacing = 5 * time.Second
	}
	if cfg.ChargeWindow <= 0 {
		cfg.ChargeWindow = time.Minute
	}
	if cfg.ChargeCap <= 0 {
		cfg.ChargeCap = 3
	}
	return &RateLimiter{client: client, cfg: cfg}
}

func (r *RateLimiter) AllowSource(ctx context.Context, ip string) (adapter.Decision, error) {
	ok, err := r.windowAllow(ctx, sourceKey(ip), r.cfg.SourceCap, r.cfg.SourceWindow)
	if err != nil {
		return adapter.Decision{Allowed: true}, err
	}
	if !ok {
		return adapter.Decision{Reason: "ip_window"}, nil
	}
	return adapter.Decision{Allowed: true}, nil
}

func (r *RateLimiter) AllowCharge(ctx context.Context, chargeID string) (adapter.Decision, error) {
	// Spacing gate first: SET NX with the spacing TTL acts as a distributed
	// "one verification per T" latch.
	fresh, err := r.client.SetNX(ctx, spacingKey(chargeID), 1, r.cfg.ChargeSpacing)
	if err != nil {
		return adapter.Decision{Allowed: true}, err
	}
	if !fresh {
		return adapter.Decision{Reason: "charge_spacing"}, nil
	}

	ok, err := r.windowAllow(ctx, chargeKey(chargeID), r.cfg.ChargeCap, r.cfg.ChargeWindow)
	if err != nil {
		return adapter.Decision{Allowed: true}, err
	}
	if !ok {
		return adapter.Decision{Reason: "charge_window"}, nil
	}
	return adapter.Decision{Allowed: true}, nil
}

func (r *RateLimiter) windowAllow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return true, err
		}
	}
	return count <= int64(limit), nil
}

func sourceKey(ip string) string      { return fmt.Sprintf("wh:rate:ip:%s", ip) }
func spacingKey(charge string) string { return fmt.Sprintf("wh:rate:spacing:%s", charge) }
func chargeKey(charge string) string  { return fmt.Sprintf("wh:rate:charge:%s", charge) }

//go:build !integration

package memory

import (
	"context"
	"testing"
	"time"
)

// fakeClock lets tests move time explicitly.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(cfg LimiterConfig) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := NewRateLimiter(cfg)
	l.now = clock.now
	return l, clock
}

func TestRateLimiter_AllowSource(t *testing.T) {
	ctx := context.Background()

	t.Run("should cap requests per source within the window", func(t *testing.T) {
		l, _ := newTestLimiter(LimiterConfig{SourceWindow: time.Minute, SourceCap: 3})

		for i := 0; i < 3; i++ {
			if d, _ := l.AllowSource(ctx, "1.2.3.4"); !d.Allowed {
				t.Fatalf("request %d should be allowed", i+1)
			}
		}
		d, _ := l.AllowSource(ctx, "1.2.3.4")
		if d.Allowed {
			t.Fatal("request over the cap should be denied")
		}
		if d.Reason != "ip_window" {
			t.Errorf("expected reason ip_window, got %q", d.Reason)
		}
	})

	t.Run("should count sources independently", func(t *testing.T) {
		l, _ := newTestLimiter(LimiterConfig{SourceWindow: time.Minute, SourceCap: 1})

		if d, _ := l.AllowSource(ctx, "1.1.1.1"); !d.Allowed {
			t.Fatal("first source should be allowed")
		}
		if d, _ := l.AllowSource(ctx, "2.2.2.2"); !d.Allowed {
			t.Fatal("second source should not share the first source's count")
		}
	})

	t.Run("should reset after the window elapses", func(t *testing.T) {
		l, clock := newTestLimiter(LimiterConfig{SourceWindow: time.Minute, SourceCap: 1})

		l.AllowSource(ctx, "1.2.3.4")
		if d, _ := l.AllowSource(ctx, "1.2.3.4"); d.Allowed {
			t.Fatal("second request inside the window should be denied")
		}
		clock.advance(time.Minute)
		if d, _ := l.AllowSource(ctx, "1.2.3.4"); !d.Allowed {
			t.Fatal("request after the window should be allowed")
		}
	})
}

func TestRateLimiter_AllowCharge(t *testing.T) {
	ctx := context.Background()
	cfg := LimiterConfig{
		SourceWindow:  time.Minute,
		SourceCap:     100,
		ChargeSpacing: 5 * time.Second,
		ChargeWindow:  time.Minute,
		ChargeCap:     3,
	}

	t.Run("should enforce minimum spacing between attempts", func(t *testing.T) {
		l, clock := newTestLimiter(cfg)

		if d, _ := l.AllowCharge(ctx, "chg_1"); !d.Allowed {
			t.Fatal("first attempt should be allowed")
		}
		d, _ := l.AllowCharge(ctx, "chg_1")
		if d.Allowed || d.Reason != "charge_spacing" {
			t.Fatalf("immediate retry should be denied for spacing, got %+v", d)
		}
		clock.advance(5 * time.Second)
		if d, _ := l.AllowCharge(ctx, "chg_1"); !d.Allowed {
			t.Fatal("attempt after the spacing gap should be allowed")
		}
	})

	t.Run("should cap attempts within the anchored window", func(t *testing.T) {
		l, clock := newTestLimiter(cfg)

		for i := 0; i < 3; i++ {
			if d, _ := l.AllowCharge(ctx, "chg_1"); !d.Allowed {
				t.Fatalf("attempt %d should be allowed", i+1)
			}
			clock.advance(5 * time.Second)
		}
		d, _ := l.AllowCharge(ctx, "chg_1")
		if d.Allowed || d.Reason != "charge_window" {
			t.Fatalf("attempt over the cap should be denied, got %+v", d)
		}

		// The window is anchored at the first hit, not sliding.
		clock.advance(time.Minute)
		if d, _ := l.AllowCharge(ctx, "chg_1"); !d.Allowed {
			t.Fatal("attempt in a fresh window should be allowed")
		}
	})

	t.Run("should track charges independently", func(t *testing.T) {
		l, _ := newTestLimiter(cfg)

		l.AllowCharge(ctx, "chg_1")
		if d, _ := l.AllowCharge(ctx, "chg_2"); !d.Allowed {
			t.Fatal("a different charge should not inherit spacing state")
		}
	})
}

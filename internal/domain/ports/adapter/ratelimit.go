package adapter

import "context"

// Decision is the outcome of a rate-limit check. Reason is set only when the
// request was not allowed and is bounded (ip_window | charge_spacing |
// charge_window) for metrics labels.
type Decision struct {
	Allowed bool
	Reason  string
}

// RateLimiter sheds excess webhook traffic before expensive work runs. It is
// an availability safeguard, not a correctness mechanism: counters may reset
// and windows are "at least" bounds. Implementations fail open on backend
// errors.
type RateLimiter interface {
	// AllowSource applies the coarse per-source-address window.
	AllowSource(ctx context.Context, ip string) (Decision, error)
	// AllowCharge applies the combined per-charge throttle: a minimum
	// spacing between verifications AND a cap within the window.
	AllowCharge(ctx context.Context, chargeID string) (Decision, error)
}

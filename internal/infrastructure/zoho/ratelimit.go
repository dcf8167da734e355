package zoho

import (
	"context"
	"sync"
	"time"
)

// APIClass partitions the provider quota. OAuth, CRM and Billing count
// against separate buckets.
type APIClass string

const (
	ClassOAuth   APIClass = "oauth"
	ClassCRM     APIClass = "crm"
	ClassBilling APIClass = "billing"
)

// ClassLimit is the ceiling for one class over a trailing window.
type ClassLimit struct {
	Limit  int
	Window time.Duration
}

// DefaultClassLimits returns the production ceilings, set roughly 10% under
// the provider's published limits.
func DefaultClassLimits() map[APIClass]ClassLimit {
	return map[APIClass]ClassLimit{
		ClassOAuth:   {Limit: 10, Window: time.Minute},
		ClassCRM:     {Limit: 90, Window: time.Minute},
		ClassBilling: {Limit: 90, Window: time.Minute},
	}
}

// waitBuffer is added to every computed wait so the oldest in-window call
// has definitely aged out when the caller retries.
const waitBuffer = 50 * time.Millisecond

// RateLimiter throttles outbound calls with a trailing-window count per API
// class. Callers block in WaitForSlot until a slot frees up. The window is a
// recorded list of call timestamps, so the remaining quota is exact and
// inspectable.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[APIClass]ClassLimit
	calls  map[APIClass][]time.Time
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter with the given per-class ceilings.
func NewRateLimiter(limits map[APIClass]ClassLimit) *RateLimiter {
	return &RateLimiter{
		limits: limits,
		calls:  make(map[APIClass][]time.Time),
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WaitForSlot blocks until the class has quota, then records the call.
// Classes without a configured limit pass through unthrottled.
func (rl *RateLimiter) WaitForSlot(ctx context.Context, class APIClass) error {
	for {
		wait, ok := rl.tryAcquire(class)
		if ok {
			return nil
		}
		if err := rl.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// tryAcquire purges aged-out calls and either records a new call or returns
// how long to wait for the oldest in-window call to expire.
func (rl *RateLimiter) tryAcquire(class APIClass) (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit, ok := rl.limits[class]
	if !ok {
		return 0, true
	}

	now := rl.now()
	window := rl.purgeLocked(class, now, limit.Window)

	if len(window) < limit.Limit {
		rl.calls[class] = append(window, now)
		return 0, true
	}

	oldest := window[0]
	return limit.Window - now.Sub(oldest) + waitBuffer, false
}

func (rl *RateLimiter) purgeLocked(class APIClass, now time.Time, window time.Duration) []time.Time {
	calls := rl.calls[class]
	cutoff := now.Add(-window)
	i := 0
	for i < len(calls) && !calls[i].After(cutoff) {
		i++
	}
	calls = calls[i:]
	rl.calls[class] = calls
	return calls
}

// RemainingQuota returns how many calls the class can still make in the
// current window.
func (rl *RateLimiter) RemainingQuota(class APIClass) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit, ok := rl.limits[class]
	if !ok {
		return 0
	}
	used := len(rl.purgeLocked(class, rl.now(), limit.Window))
	remaining := limit.Limit - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// ClassStats is a snapshot of one class's window.
type ClassStats struct {
	Limit     int           `json:"limit"`
	Window    time.Duration `json:"window"`
	Used      int           `json:"used"`
	Remaining int           `json:"remaining"`
}

// Stats returns a snapshot across all configured classes.
func (rl *RateLimiter) Stats() map[APIClass]ClassStats {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	stats := make(map[APIClass]ClassStats, len(rl.limits))
	for class, limit := range rl.limits {
		used := len(rl.purgeLocked(class, now, limit.Window))
		stats[class] = ClassStats{
			Limit:     limit.Limit,
			Window:    limit.Window,
			Used:      used,
			Remaining: limit.Limit - used,
		}
	}
	return stats
}

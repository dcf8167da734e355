package sync

import (
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// RetrySchedule Value Object
// ---------------------------------------------------------------------------

// RetrySchedule is a fixed backoff ladder. Attempt N (1-based) waits
// Delays[N-1]; attempts past the end of the ladder reuse the last delay.
// Once MaxAttempts failures accumulate the record is terminal.
type RetrySchedule struct {
	Delays      []time.Duration
	MaxAttempts int
}

// DefaultRetrySchedule returns the production ladder:
// 5m, 15m, 1h, 4h, 24h with a budget of 5 attempts.
func DefaultRetrySchedule() RetrySchedule {
	return RetrySchedule{
		Delays: []time.Duration{
			5 * time.Minute,
			15 * time.Minute,
			60 * time.Minute,
			240 * time.Minute,
			1440 * time.Minute,
		},
		MaxAttempts: 5,
	}
}

// DelayFor returns the backoff delay for the given 1-based attempt number.
func (s RetrySchedule) DelayFor(attempt int) time.Duration {
	if len(s.Delays) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.Delays) {
		idx = len(s.Delays) - 1
	}
	return s.Delays[idx]
}

// NextRetryAt computes the retry time for the given attempt, nil when the
// budget is exhausted.
func (s RetrySchedule) NextRetryAt(now time.Time, attempt int) *time.Time {
	if attempt >= s.MaxAttempts {
		return nil
	}
	t := now.Add(s.DelayFor(attempt))
	return &t
}

// ---------------------------------------------------------------------------
// SyncError Value Object
// ---------------------------------------------------------------------------

// SyncError is the structured failure captured on a record and in the sync
// log. Payload holds a snapshot of the outbound body for diagnosis.
type SyncError struct {
	// Message is the human-readable failure description
	Message string
	// HTTPStatus is the provider response status, 0 when the call never completed
	HTTPStatus int
	// ProviderCode is the provider-specific error code, empty when unknown
	ProviderCode string
	// Attempt is the 1-based attempt number that produced this error
	Attempt int
	// OccurredAt is when the failure happened
	OccurredAt time.Time
	// Payload is a snapshot of the request body that failed, may be empty
	Payload string
}

// Error implements the error interface.
func (e SyncError) Error() string {
	if e.ProviderCode != "" {
		return fmt.Sprintf("sync attempt %d failed (%s, http %d): %s", e.Attempt, e.ProviderCode, e.HTTPStatus, e.Message)
	}
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("sync attempt %d failed (http %d): %s", e.Attempt, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("sync attempt %d failed: %s", e.Attempt, e.Message)
}

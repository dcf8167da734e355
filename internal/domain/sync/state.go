package sync

import "time"

// ---------------------------------------------------------------------------
// SyncState Value Object
// ---------------------------------------------------------------------------

// SyncPhase is the discriminator of a SyncState.
type SyncPhase string

const (
	PhasePending  SyncPhase = "pending"
	PhaseSyncing  SyncPhase = "syncing"
	PhaseOK       SyncPhase = "ok"
	PhaseFailed   SyncPhase = "failed"
	PhaseTerminal SyncPhase = "terminally_failed"
)

// IsValid checks if the phase is a known value
func (p SyncPhase) IsValid() bool {
	switch p {
	case PhasePending, PhaseSyncing, PhaseOK, PhaseFailed, PhaseTerminal:
		return true
	}
	return false
}

// String returns the string representation
func (p SyncPhase) String() string {
	return string(p)
}

// SyncState is a closed value type over the sync lifecycle. Only failed
// states carry a next retry time and only failure states carry an error, so
// combinations like a terminal record with a scheduled retry cannot be built.
// Construct through the State* constructors.
type SyncState struct {
	phase       SyncPhase
	retryCount  int
	nextRetryAt *time.Time
	lastError   *SyncError
}

// StatePending is the state of a record that has never been attempted.
func StatePending() SyncState {
	return SyncState{phase: PhasePending}
}

// StateSyncing marks a run in progress. The retry count of the previous
// failure is carried so the schedule continues where it left off.
func StateSyncing(retryCount int) SyncState {
	return SyncState{phase: PhaseSyncing, retryCount: retryCount}
}

// StateOK is the state after a successful run.
func StateOK() SyncState {
	return SyncState{phase: PhaseOK}
}

// StateFailed records a failed attempt with a scheduled retry.
func StateFailed(retryCount int, nextRetryAt time.Time, err SyncError) SyncState {
	return SyncState{
		phase:       PhaseFailed,
		retryCount:  retryCount,
		nextRetryAt: &nextRetryAt,
		lastError:   &err,
	}
}

// StateTerminal records exhaustion of the retry budget. No retry time exists
// in this state; operator intervention is required.
func StateTerminal(retryCount int, err SyncError) SyncState {
	return SyncState{
		phase:      PhaseTerminal,
		retryCount: retryCount,
		lastError:  &err,
	}
}

// RestoreState rebuilds a state from persisted fields. Persistence rows that
// violate the state shape are normalized: a terminal row loses any stray
// retry time, a non-failure row loses any stray error.
func RestoreState(phase SyncPhase, retryCount int, nextRetryAt *time.Time, lastError *SyncError) SyncState {
	switch phase {
	case PhaseFailed:
		if nextRetryAt == nil || lastError == nil {
			return SyncState{phase: PhaseFailed, retryCount: retryCount, nextRetryAt: nextRetryAt, lastError: lastError}
		}
		return StateFailed(retryCount, *nextRetryAt, *lastError)
	case PhaseTerminal:
		e := SyncError{}
		if lastError != nil {
			e = *lastError
		}
		return StateTerminal(retryCount, e)
	case PhaseSyncing:
		return StateSyncing(retryCount)
	case PhaseOK:
		return StateOK()
	default:
		return StatePending()
	}
}

// Phase returns the discriminator.
func (s SyncState) Phase() SyncPhase {
	if s.phase == "" {
		return PhasePending
	}
	return s.phase
}

// RetryCount returns the number of failed attempts so far.
func (s SyncState) RetryCount() int {
	return s.retryCount
}

// NextRetryAt returns the scheduled retry time, nil unless failed.
func (s SyncState) NextRetryAt() *time.Time {
	if s.phase != PhaseFailed || s.nextRetryAt == nil {
		return nil
	}
	t := *s.nextRetryAt
	return &t
}

// LastError returns the error of the last failed attempt, nil unless
// failed or terminal.
func (s SyncState) LastError() *SyncError {
	if s.lastError == nil {
		return nil
	}
	e := *s.lastError
	return &e
}

// IsRetryable reports whether the record may be picked up again.
func (s SyncState) IsRetryable() bool {
	return s.Phase() != PhaseTerminal
}

// IsDue reports whether a failed record's retry time has passed.
func (s SyncState) IsDue(now time.Time) bool {
	if s.phase != PhaseFailed || s.nextRetryAt == nil {
		return false
	}
	return !s.nextRetryAt.After(now)
}

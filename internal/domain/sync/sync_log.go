package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncLogEntry Entity
// ---------------------------------------------------------------------------

// SyncAction describes what a run did against the provider.
type SyncAction string

const (
	ActionCreate SyncAction = "create"
	ActionUpdate SyncAction = "update"
	ActionSkip   SyncAction = "skip"
)

// IsValid checks if the action is a known value
func (a SyncAction) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionSkip:
		return true
	}
	return false
}

// String returns the string representation
func (a SyncAction) String() string {
	return string(a)
}

// SyncLogEntry is one immutable audit row per sync attempt. Entries are
// appended and never updated or deleted.
type SyncLogEntry struct {
	// ID is the unique identifier of this entry
	ID uuid.UUID
	// RecordID references the integration record this attempt belongs to
	RecordID uuid.UUID
	// EntityType identifies the kind of internal entity
	EntityType EntityType
	// EntityID is the internal entity's ID
	EntityID uuid.UUID
	// Target is the external object the attempt addressed
	Target SyncTarget
	// Action is what happened against the provider
	Action SyncAction
	// Success indicates whether the attempt succeeded
	Success bool
	// ExternalID is the provider ID produced or confirmed, empty on failure
	ExternalID string
	// Message carries the failure description or an informational note
	Message string
	// HTTPStatus is the provider response status, 0 when not applicable
	HTTPStatus int
	// ProviderCode is the provider-specific error code, empty when none
	ProviderCode string
	// RequestPayload is a snapshot of the request body of a failed attempt
	RequestPayload string
	// Attempt is the 1-based attempt number
	Attempt int
	// Duration is how long the attempt took
	Duration time.Duration
	// CreatedAt is when the entry was written
	CreatedAt time.Time
}

// NewSyncLogEntry creates an audit entry for one attempt.
func NewSyncLogEntry(record *IntegrationRecord, target SyncTarget, action SyncAction, success bool) *SyncLogEntry {
	return &SyncLogEntry{
		ID:         uuid.New(),
		RecordID:   record.ID,
		EntityType: record.EntityType,
		EntityID:   record.EntityID,
		Target:     target,
		Action:     action,
		Success:    success,
		Attempt:    record.State.RetryCount(),
		CreatedAt:  time.Now(),
	}
}

// WithResult attaches the provider ID and duration of a successful attempt.
func (e *SyncLogEntry) WithResult(externalID string, took time.Duration) *SyncLogEntry {
	e.ExternalID = externalID
	e.Duration = took
	return e
}

// WithFailure attaches the structured error of a failed attempt.
func (e *SyncLogEntry) WithFailure(syncErr SyncError, took time.Duration) *SyncLogEntry {
	e.Message = syncErr.Message
	e.HTTPStatus = syncErr.HTTPStatus
	e.ProviderCode = syncErr.ProviderCode
	e.RequestPayload = syncErr.Payload
	e.Attempt = syncErr.Attempt
	e.Duration = took
	return e
}

// ---------------------------------------------------------------------------
// SyncLogRepository Interface
// ---------------------------------------------------------------------------

// SyncLogFilter defines filter criteria for reading the log
type SyncLogFilter struct {
	// EntityType filters by entity type (optional)
	EntityType *EntityType
	// EntityID filters by internal entity (optional)
	EntityID *uuid.UUID
	// Success filters by outcome (optional)
	Success *bool
	// Since filters to entries at or after this time (optional)
	Since *time.Time
	// Limit caps the number of entries returned
	Limit int
}

// SyncLogReader defines the interface for reading the audit log
type SyncLogReader interface {
	// Find returns entries matching the filter, newest first
	Find(ctx context.Context, filter SyncLogFilter) ([]SyncLogEntry, error)
}

// SyncLogWriter defines the interface for appending audit entries
type SyncLogWriter interface {
	// Append writes a new entry. Entries are never updated.
	Append(ctx context.Context, entry *SyncLogEntry) error
}

// SyncLogRepository defines the full interface for the audit log
type SyncLogRepository interface {
	SyncLogReader
	SyncLogWriter
}

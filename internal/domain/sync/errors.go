package sync

import "errors"

// Domain errors for the synchronization context.
var (
	// ErrRecordNotFound indicates the integration record does not exist
	ErrRecordNotFound = errors.New("sync: integration record not found")
	// ErrEntityNotFound indicates the internal entity behind a record does not exist
	ErrEntityNotFound = errors.New("sync: internal entity not found")
	// ErrInvalidEntityType indicates an unknown entity type
	ErrInvalidEntityType = errors.New("sync: invalid entity type")
	// ErrInvalidEntityID indicates a missing or nil entity ID
	ErrInvalidEntityID = errors.New("sync: invalid entity ID")
	// ErrInvalidTarget indicates an unknown sync target
	ErrInvalidTarget = errors.New("sync: invalid sync target")
	// ErrMissingExternalID indicates a record in ok state without an external ID
	ErrMissingExternalID = errors.New("sync: ok state requires an external ID")
	// ErrMissingPrerequisite indicates a dependent entity has not been synced yet
	ErrMissingPrerequisite = errors.New("sync: prerequisite entity not synced")
	// ErrTerminallyFailed indicates the record exhausted its retry budget
	ErrTerminallyFailed = errors.New("sync: record terminally failed")
	// ErrRateLimited indicates the provider rejected the call for quota reasons
	ErrRateLimited = errors.New("sync: rate limited by provider")
	// ErrUnauthorized indicates the provider rejected the access token
	ErrUnauthorized = errors.New("sync: unauthorized by provider")
)

// ProviderFailure is implemented by transport errors that carry provider
// detail. Sync services use it to build structured SyncError values without
// depending on the wire layer.
type ProviderFailure interface {
	error
	// StatusCode is the HTTP response status, 0 when not applicable
	StatusCode() int
	// ErrorCode is the provider-specific error code, empty when none
	ErrorCode() string
}

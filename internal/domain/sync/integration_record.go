package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// EntityType and SyncTarget
// ---------------------------------------------------------------------------

// EntityType identifies which kind of internal entity a record tracks.
type EntityType string

const (
	EntityProduct      EntityType = "product"
	EntityCustomer     EntityType = "customer"
	EntitySubscription EntityType = "subscription"
	EntityPayment      EntityType = "payment"
	EntityQuote        EntityType = "quote"
)

// IsValid checks if the entity type is a known value
func (t EntityType) IsValid() bool {
	switch t {
	case EntityProduct, EntityCustomer, EntitySubscription, EntityPayment, EntityQuote:
		return true
	}
	return false
}

// String returns the string representation
func (t EntityType) String() string {
	return string(t)
}

// SyncTarget identifies one external object a record can be linked to.
// A single internal entity may map to several targets (a product maps to a
// CRM product, a billing plan and a billing item).
type SyncTarget string

const (
	TargetCRMProduct          SyncTarget = "crm_product"
	TargetCRMContact          SyncTarget = "crm_contact"
	TargetCRMQuote            SyncTarget = "crm_quote"
	TargetBillingPlan         SyncTarget = "billing_plan"
	TargetBillingItem         SyncTarget = "billing_item"
	TargetBillingCustomer     SyncTarget = "billing_customer"
	TargetBillingSubscription SyncTarget = "billing_subscription"
	TargetBillingPayment      SyncTarget = "billing_payment"
	TargetBillingInvoice      SyncTarget = "billing_invoice"
)

// IsValid checks if the sync target is a known value
func (t SyncTarget) IsValid() bool {
	switch t {
	case TargetCRMProduct, TargetCRMContact, TargetCRMQuote,
		TargetBillingPlan, TargetBillingItem, TargetBillingCustomer,
		TargetBillingSubscription, TargetBillingPayment, TargetBillingInvoice:
		return true
	}
	return false
}

// String returns the string representation
func (t SyncTarget) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// ExternalRefs
// ---------------------------------------------------------------------------

// ExternalRefs holds the provider-side identifiers a record has accumulated.
// Empty string means the target has not been linked yet.
type ExternalRefs struct {
	CRMProductID          string
	CRMContactID          string
	CRMQuoteID            string
	BillingPlanID         string
	BillingItemID         string
	BillingCustomerID     string
	BillingSubscriptionID string
	BillingPaymentID      string
	BillingInvoiceID      string
}

// Ref returns the external ID for a target, empty if not linked.
func (r ExternalRefs) Ref(target SyncTarget) string {
	switch target {
	case TargetCRMProduct:
		return r.CRMProductID
	case TargetCRMContact:
		return r.CRMContactID
	case TargetCRMQuote:
		return r.CRMQuoteID
	case TargetBillingPlan:
		return r.BillingPlanID
	case TargetBillingItem:
		return r.BillingItemID
	case TargetBillingCustomer:
		return r.BillingCustomerID
	case TargetBillingSubscription:
		return r.BillingSubscriptionID
	case TargetBillingPayment:
		return r.BillingPaymentID
	case TargetBillingInvoice:
		return r.BillingInvoiceID
	}
	return ""
}

// SetRef records the external ID for a target.
func (r *ExternalRefs) SetRef(target SyncTarget, id string) error {
	switch target {
	case TargetCRMProduct:
		r.CRMProductID = id
	case TargetCRMContact:
		r.CRMContactID = id
	case TargetCRMQuote:
		r.CRMQuoteID = id
	case TargetBillingPlan:
		r.BillingPlanID = id
	case TargetBillingItem:
		r.BillingItemID = id
	case TargetBillingCustomer:
		r.BillingCustomerID = id
	case TargetBillingSubscription:
		r.BillingSubscriptionID = id
	case TargetBillingPayment:
		r.BillingPaymentID = id
	case TargetBillingInvoice:
		r.BillingInvoiceID = id
	default:
		return ErrInvalidTarget
	}
	return nil
}

// ---------------------------------------------------------------------------
// IntegrationRecord Entity
// ---------------------------------------------------------------------------

// IntegrationRecord tracks the synchronization lifecycle of one internal
// entity against the external provider. It is an Entity with identity and
// mutable state; the sync state itself is a closed value type so the record
// can only move through legal transitions.
type IntegrationRecord struct {
	// ID is the unique identifier of this record
	ID uuid.UUID
	// EntityType identifies the kind of internal entity being tracked
	EntityType EntityType
	// EntityID is the internal entity's ID
	EntityID uuid.UUID
	// Refs holds the provider-side IDs accumulated so far
	Refs ExternalRefs
	// State is the current sync state (pending/syncing/ok/failed/terminal)
	State SyncState
	// LastSyncedAt is when the record last reached ok state
	LastSyncedAt *time.Time
	// CreatedAt is when this record was created
	CreatedAt time.Time
	// UpdatedAt is when this record was last updated
	UpdatedAt time.Time
}

// NewIntegrationRecord creates a pending record for an internal entity.
func NewIntegrationRecord(entityType EntityType, entityID uuid.UUID) (*IntegrationRecord, error) {
	if !entityType.IsValid() {
		return nil, ErrInvalidEntityType
	}
	if entityID == uuid.Nil {
		return nil, ErrInvalidEntityID
	}
	now := time.Now()
	return &IntegrationRecord{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		State:      StatePending(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// MarkSyncing moves the record into the syncing state. The retry count is
// carried over so a failure during this run lands on the next schedule slot.
func (r *IntegrationRecord) MarkSyncing() {
	r.State = StateSyncing(r.State.RetryCount())
	r.UpdatedAt = time.Now()
}

// MarkSynced records a successful run. Resets the retry budget.
func (r *IntegrationRecord) MarkSynced(target SyncTarget, externalID string) error {
	if externalID == "" {
		return ErrMissingExternalID
	}
	if err := r.Refs.SetRef(target, externalID); err != nil {
		return err
	}
	now := time.Now()
	r.State = StateOK()
	r.LastSyncedAt = &now
	r.UpdatedAt = now
	return nil
}

// LinkRef stores an external ID without changing the sync state. Used for
// intermediate links created along the way (an invoice created while
// activating a subscription).
func (r *IntegrationRecord) LinkRef(target SyncTarget, externalID string) error {
	if err := r.Refs.SetRef(target, externalID); err != nil {
		return err
	}
	r.UpdatedAt = time.Now()
	return nil
}

// MarkFailed records a failed run. The next attempt number drives the retry
// schedule; once the budget is exhausted the record becomes terminal and no
// retry time is set.
func (r *IntegrationRecord) MarkFailed(syncErr SyncError, schedule RetrySchedule, now time.Time) {
	attempt := r.State.RetryCount() + 1
	if next := schedule.NextRetryAt(now, attempt); next != nil {
		r.State = StateFailed(attempt, *next, syncErr)
	} else {
		r.State = StateTerminal(attempt, syncErr)
	}
	r.UpdatedAt = now
}

// IsSynced reports whether the record is in ok state with the given target linked.
func (r *IntegrationRecord) IsSynced(target SyncTarget) bool {
	return r.State.Phase() == PhaseOK && r.Refs.Ref(target) != ""
}

// IsStale reports whether the last successful sync is older than maxAge.
// Records that never synced are not stale, they are candidates of their own class.
func (r *IntegrationRecord) IsStale(now time.Time, maxAge time.Duration) bool {
	if r.LastSyncedAt == nil {
		return false
	}
	return now.Sub(*r.LastSyncedAt) > maxAge
}

// ---------------------------------------------------------------------------
// IntegrationRecordRepository Interface
// ---------------------------------------------------------------------------

// IntegrationRecordReader defines the interface for reading records
type IntegrationRecordReader interface {
	// FindByID finds a record by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*IntegrationRecord, error)

	// FindByEntity finds the record tracking a specific internal entity
	FindByEntity(ctx context.Context, entityType EntityType, entityID uuid.UUID) (*IntegrationRecord, error)
}

// IntegrationRecordFinder defines the interface for candidate selection
type IntegrationRecordFinder interface {
	// FindRetryDue finds failed records whose next retry time has passed,
	// under the retry budget, ordered by next retry time ascending
	FindRetryDue(ctx context.Context, now time.Time, maxAttempts int, limit int) ([]IntegrationRecord, error)

	// FindFailed finds records in failed state regardless of due time
	FindFailed(ctx context.Context, limit int) ([]IntegrationRecord, error)

	// FindNeverSynced finds records that have never reached ok state
	FindNeverSynced(ctx context.Context, limit int) ([]IntegrationRecord, error)

	// FindStale finds ok records whose last sync is older than the cutoff
	FindStale(ctx context.Context, olderThan time.Time, limit int) ([]IntegrationRecord, error)

	// CountByPhase counts records per sync phase
	CountByPhase(ctx context.Context) (map[SyncPhase]int64, error)
}

// IntegrationRecordWriter defines the interface for persisting records
type IntegrationRecordWriter interface {
	// Save creates or updates a record
	Save(ctx context.Context, record *IntegrationRecord) error
}

// IntegrationRecordRepository defines the full persistence interface
type IntegrationRecordRepository interface {
	IntegrationRecordReader
	IntegrationRecordFinder
	IntegrationRecordWriter
}

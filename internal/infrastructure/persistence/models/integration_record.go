package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/circletel/backend/internal/domain/sync"
)

// IntegrationRecordModel is the GORM model for integration records
type IntegrationRecordModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	EntityType string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_integration_entity,priority:1"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_integration_entity,priority:2"`

	CRMProductID          string `gorm:"type:varchar(64)"`
	CRMContactID          string `gorm:"type:varchar(64)"`
	CRMQuoteID            string `gorm:"type:varchar(64)"`
	BillingPlanID         string `gorm:"type:varchar(64)"`
	BillingItemID         string `gorm:"type:varchar(64)"`
	BillingCustomerID     string `gorm:"type:varchar(64)"`
	BillingSubscriptionID string `gorm:"type:varchar(64)"`
	BillingPaymentID      string `gorm:"type:varchar(64)"`
	BillingInvoiceID      string `gorm:"type:varchar(64)"`

	SyncPhase   string     `gorm:"type:varchar(20);not null;default:'pending';index"`
	RetryCount  int        `gorm:"not null;default:0"`
	NextRetryAt *time.Time `gorm:"index"`

	LastErrorMessage      string     `gorm:"type:text"`
	LastErrorHTTPStatus   int        `gorm:"column:last_error_http_status"`
	LastErrorProviderCode string     `gorm:"type:varchar(64)"`
	LastErrorAttempt      int        ``
	LastErrorAt           *time.Time ``
	LastErrorPayload      string     `gorm:"type:text"`

	LastSyncedAt *time.Time `gorm:"index"`
	CreatedAt    time.Time  `gorm:"not null"`
	UpdatedAt    time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IntegrationRecordModel) TableName() string {
	return "integration_records"
}

// ToDomain converts the model to a domain entity
func (m *IntegrationRecordModel) ToDomain() *sync.IntegrationRecord {
	var lastError *sync.SyncError
	if m.LastErrorMessage != "" || m.LastErrorHTTPStatus != 0 {
		occurredAt := time.Time{}
		if m.LastErrorAt != nil {
			occurredAt = *m.LastErrorAt
		}
		lastError = &sync.SyncError{
			Message:      m.LastErrorMessage,
			HTTPStatus:   m.LastErrorHTTPStatus,
			ProviderCode: m.LastErrorProviderCode,
			Attempt:      m.LastErrorAttempt,
			OccurredAt:   occurredAt,
			Payload:      m.LastErrorPayload,
		}
	}

	return &sync.IntegrationRecord{
		ID:         m.ID,
		EntityType: sync.EntityType(m.EntityType),
		EntityID:   m.EntityID,
		Refs: sync.ExternalRefs{
			CRMProductID:          m.CRMProductID,
			CRMContactID:          m.CRMContactID,
			CRMQuoteID:            m.CRMQuoteID,
			BillingPlanID:         m.BillingPlanID,
			BillingItemID:         m.BillingItemID,
			BillingCustomerID:     m.BillingCustomerID,
			BillingSubscriptionID: m.BillingSubscriptionID,
			BillingPaymentID:      m.BillingPaymentID,
			BillingInvoiceID:      m.BillingInvoiceID,
		},
		State:        sync.RestoreState(sync.SyncPhase(m.SyncPhase), m.RetryCount, m.NextRetryAt, lastError),
		LastSyncedAt: m.LastSyncedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// FromDomain converts a domain entity to the model
func (m *IntegrationRecordModel) FromDomain(record *sync.IntegrationRecord) {
	m.ID = record.ID
	m.EntityType = string(record.EntityType)
	m.EntityID = record.EntityID

	m.CRMProductID = record.Refs.CRMProductID
	m.CRMContactID = record.Refs.CRMContactID
	m.CRMQuoteID = record.Refs.CRMQuoteID
	m.BillingPlanID = record.Refs.BillingPlanID
	m.BillingItemID = record.Refs.BillingItemID
	m.BillingCustomerID = record.Refs.BillingCustomerID
	m.BillingSubscriptionID = record.Refs.BillingSubscriptionID
	m.BillingPaymentID = record.Refs.BillingPaymentID
	m.BillingInvoiceID = record.Refs.BillingInvoiceID

	m.SyncPhase = record.State.Phase().String()
	m.RetryCount = record.State.RetryCount()
	m.NextRetryAt = record.State.NextRetryAt()

	if lastError := record.State.LastError(); lastError != nil {
		m.LastErrorMessage = lastError.Message
		m.LastErrorHTTPStatus = lastError.HTTPStatus
		m.LastErrorProviderCode = lastError.ProviderCode
		m.LastErrorAttempt = lastError.Attempt
		occurredAt := lastError.OccurredAt
		m.LastErrorAt = &occurredAt
		m.LastErrorPayload = lastError.Payload
	} else {
		m.LastErrorMessage = ""
		m.LastErrorHTTPStatus = 0
		m.LastErrorProviderCode = ""
		m.LastErrorAttempt = 0
		m.LastErrorAt = nil
		m.LastErrorPayload = ""
	}

	m.LastSyncedAt = record.LastSyncedAt
	m.CreatedAt = record.CreatedAt
	m.UpdatedAt = record.UpdatedAt
}

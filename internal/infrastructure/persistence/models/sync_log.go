package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/circletel/backend/internal/domain/sync"
)

// SyncLogModel is the GORM model for the append-only sync audit log
type SyncLogModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	RecordID       uuid.UUID `gorm:"type:uuid;not null;index"`
	EntityType     string    `gorm:"type:varchar(20);not null;index:idx_sync_log_entity,priority:1"`
	EntityID       uuid.UUID `gorm:"type:uuid;not null;index:idx_sync_log_entity,priority:2"`
	Target         string    `gorm:"type:varchar(30);not null"`
	Action         string    `gorm:"type:varchar(10);not null"`
	Success        bool      `gorm:"not null;index"`
	ExternalID     string    `gorm:"type:varchar(64)"`
	Message        string    `gorm:"type:text"`
	HTTPStatus     int       `gorm:"column:http_status"`
	ProviderCode   string    `gorm:"type:varchar(64)"`
	RequestPayload string    `gorm:"column:request_payload;type:text"`
	Attempt        int       `gorm:"not null;default:0"`
	DurationMS     int64     `gorm:"column:duration_ms"`
	CreatedAt      time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// ToDomain converts the model to a domain entity
func (m *SyncLogModel) ToDomain() *sync.SyncLogEntry {
	return &sync.SyncLogEntry{
		ID:             m.ID,
		RecordID:       m.RecordID,
		EntityType:     sync.EntityType(m.EntityType),
		EntityID:       m.EntityID,
		Target:         sync.SyncTarget(m.Target),
		Action:         sync.SyncAction(m.Action),
		Success:        m.Success,
		ExternalID:     m.ExternalID,
		Message:        m.Message,
		HTTPStatus:     m.HTTPStatus,
		ProviderCode:   m.ProviderCode,
		RequestPayload: m.RequestPayload,
		Attempt:        m.Attempt,
		Duration:       time.Duration(m.DurationMS) * time.Millisecond,
		CreatedAt:      m.CreatedAt,
	}
}

// FromDomain converts a domain entity to the model
func (m *SyncLogModel) FromDomain(entry *sync.SyncLogEntry) {
	m.ID = entry.ID
	m.RecordID = entry.RecordID
	m.EntityType = string(entry.EntityType)
	m.EntityID = entry.EntityID
	m.Target = string(entry.Target)
	m.Action = string(entry.Action)
	m.Success = entry.Success
	m.ExternalID = entry.ExternalID
	m.Message = entry.Message
	m.HTTPStatus = entry.HTTPStatus
	m.ProviderCode = entry.ProviderCode
	m.RequestPayload = entry.RequestPayload
	m.Attempt = entry.Attempt
	m.DurationMS = entry.Duration.Milliseconds()
	m.CreatedAt = entry.CreatedAt
}

package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/circletel/backend/internal/domain/trade"
)

// QuoteModel is the GORM model for quotes. Lines are stored as JSONB.
type QuoteModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	QuoteNumber string     `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	Subject     string     `gorm:"type:varchar(200)"`
	Stage       string     `gorm:"type:varchar(20);not null;default:'draft';index"`
	ValidUntil  *time.Time ``
	Lines       string     `gorm:"type:jsonb;not null;default:'[]'"`
	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (QuoteModel) TableName() string {
	return "quotes"
}

type quoteLineJSON struct {
	PackageID uuid.UUID       `json:"package_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ToDomain converts the model to a domain entity
func (m *QuoteModel) ToDomain() (*trade.Quote, error) {
	var rawLines []quoteLineJSON
	if m.Lines != "" {
		if err := json.Unmarshal([]byte(m.Lines), &rawLines); err != nil {
			return nil, fmt.Errorf("quote %s: parse lines: %w", m.ID, err)
		}
	}

	lines := make([]trade.QuoteLine, len(rawLines))
	for i, raw := range rawLines {
		lines[i] = trade.QuoteLine{
			PackageID: raw.PackageID,
			Quantity:  raw.Quantity,
			UnitPrice: raw.UnitPrice,
		}
	}

	return &trade.Quote{
		ID:          m.ID,
		QuoteNumber: m.QuoteNumber,
		CustomerID:  m.CustomerID,
		Subject:     m.Subject,
		Stage:       trade.QuoteStage(m.Stage),
		ValidUntil:  m.ValidUntil,
		Lines:       lines,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}, nil
}

// FromDomain converts a domain entity to the model
func (m *QuoteModel) FromDomain(quote *trade.Quote) error {
	rawLines := make([]quoteLineJSON, len(quote.Lines))
	for i, line := range quote.Lines {
		rawLines[i] = quoteLineJSON{
			PackageID: line.PackageID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
	}
	encoded, err := json.Marshal(rawLines)
	if err != nil {
		return fmt.Errorf("quote %s: encode lines: %w", quote.ID, err)
	}

	m.ID = quote.ID
	m.QuoteNumber = quote.QuoteNumber
	m.CustomerID = quote.CustomerID
	m.Subject = quote.Subject
	m.Stage = string(quote.Stage)
	m.ValidUntil = quote.ValidUntil
	m.Lines = string(encoded)
	m.CreatedAt = quote.CreatedAt
	m.UpdatedAt = quote.UpdatedAt
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/circletel/backend/internal/domain/catalog"
)

// ServicePackageModel is the GORM model for service packages
type ServicePackageModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SKU          string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name         string          `gorm:"type:varchar(200);not null"`
	Description  string          `gorm:"type:text"`
	MonthlyPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SetupFee     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status       string          `gorm:"type:varchar(20);not null;default:'active';index"`
	CreatedAt    time.Time       `gorm:"not null"`
	UpdatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ServicePackageModel) TableName() string {
	return "service_packages"
}

// ToDomain converts the model to a domain entity
func (m *ServicePackageModel) ToDomain() *catalog.ServicePackage {
	return &catalog.ServicePackage{
		ID:           m.ID,
		SKU:          m.SKU,
		Name:         m.Name,
		Description:  m.Description,
		MonthlyPrice: m.MonthlyPrice,
		SetupFee:     m.SetupFee,
		Status:       catalog.PackageStatus(m.Status),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// FromDomain converts a domain entity to the model
func (m *ServicePackageModel) FromDomain(pkg *catalog.ServicePackage) {
	m.ID = pkg.ID
	m.SKU = pkg.SKU
	m.Name = pkg.Name
	m.Description = pkg.Description
	m.MonthlyPrice = pkg.MonthlyPrice
	m.SetupFee = pkg.SetupFee
	m.Status = string(pkg.Status)
	m.CreatedAt = pkg.CreatedAt
	m.UpdatedAt = pkg.UpdatedAt
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/circletel/backend/internal/domain/partner"
)

// CustomerModel is the GORM model for customers
type CustomerModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email      string    `gorm:"type:varchar(200);not null;uniqueIndex"`
	FirstName  string    `gorm:"type:varchar(100);not null"`
	LastName   string    `gorm:"type:varchar(100);not null"`
	Phone      string    `gorm:"type:varchar(50)"`
	Street     string    `gorm:"type:varchar(200)"`
	City       string    `gorm:"type:varchar(100)"`
	Province   string    `gorm:"type:varchar(100)"`
	PostalCode string    `gorm:"type:varchar(20)"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the model to a domain entity
func (m *CustomerModel) ToDomain() *partner.Customer {
	return &partner.Customer{
		ID:         m.ID,
		Email:      m.Email,
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		Phone:      m.Phone,
		Street:     m.Street,
		City:       m.City,
		Province:   m.Province,
		PostalCode: m.PostalCode,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// FromDomain converts a domain entity to the model
func (m *CustomerModel) FromDomain(customer *partner.Customer) {
	m.ID = customer.ID
	m.Email = customer.Email
	m.FirstName = customer.FirstName
	m.LastName = customer.LastName
	m.Phone = customer.Phone
	m.Street = customer.Street
	m.City = customer.City
	m.Province = customer.Province
	m.PostalCode = customer.PostalCode
	m.CreatedAt = customer.CreatedAt
	m.UpdatedAt = customer.UpdatedAt
}

// CustomerServiceModel is the GORM model for customer services
type CustomerServiceModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CustomerID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	PackageID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status          string          `gorm:"type:varchar(30);not null;default:'pending_installation';index"`
	MonthlyPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	InstallationFee decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RouterFee       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ActivatedAt     *time.Time      ``
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CustomerServiceModel) TableName() string {
	return "customer_services"
}

// ToDomain converts the model to a domain entity
func (m *CustomerServiceModel) ToDomain() *partner.CustomerService {
	return &partner.CustomerService{
		ID:              m.ID,
		CustomerID:      m.CustomerID,
		PackageID:       m.PackageID,
		Status:          partner.ServiceStatus(m.Status),
		MonthlyPrice:    m.MonthlyPrice,
		InstallationFee: m.InstallationFee,
		RouterFee:       m.RouterFee,
		ActivatedAt:     m.ActivatedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain converts a domain entity to the model
func (m *CustomerServiceModel) FromDomain(service *partner.CustomerService) {
	m.ID = service.ID
	m.CustomerID = service.CustomerID
	m.PackageID = service.PackageID
	m.Status = string(service.Status)
	m.MonthlyPrice = service.MonthlyPrice
	m.InstallationFee = service.InstallationFee
	m.RouterFee = service.RouterFee
	m.ActivatedAt = service.ActivatedAt
	m.CreatedAt = service.CreatedAt
	m.UpdatedAt = service.UpdatedAt
}

// PaymentTransactionModel is the GORM model for payment transactions
type PaymentTransactionModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CustomerID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ServiceID  *uuid.UUID      `gorm:"type:uuid;index"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Method     string          `gorm:"type:varchar(20);not null"`
	Status     string          `gorm:"type:varchar(20);not null;index"`
	Reference  string          `gorm:"type:varchar(100)"`
	PaidAt     time.Time       `gorm:"not null"`
	CreatedAt  time.Time       `gorm:"not null"`
	UpdatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentTransactionModel) TableName() string {
	return "payment_transactions"
}

// ToDomain converts the model to a domain entity
func (m *PaymentTransactionModel) ToDomain() *partner.PaymentTransaction {
	return &partner.PaymentTransaction{
		ID:         m.ID,
		CustomerID: m.CustomerID,
		ServiceID:  m.ServiceID,
		Amount:     m.Amount,
		Method:     partner.PaymentMethod(m.Method),
		Status:     partner.PaymentStatus(m.Status),
		Reference:  m.Reference,
		PaidAt:     m.PaidAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// FromDomain converts a domain entity to the model
func (m *PaymentTransactionModel) FromDomain(payment *partner.PaymentTransaction) {
	m.ID = payment.ID
	m.CustomerID = payment.CustomerID
	m.ServiceID = payment.ServiceID
	m.Amount = payment.Amount
	m.Method = string(payment.Method)
	m.Status = string(payment.Status)
	m.Reference = payment.Reference
	m.PaidAt = payment.PaidAt
	m.CreatedAt = payment.CreatedAt
	m.UpdatedAt = payment.UpdatedAt
}

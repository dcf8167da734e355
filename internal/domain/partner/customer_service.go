package partner

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Domain errors for customer services.
var (
	ErrServiceNotFound    = errors.New("partner: customer service not found")
	ErrServiceNotActive   = errors.New("partner: customer service is not active")
	ErrMissingActivation  = errors.New("partner: customer service has no activation date")
	ErrInvalidServiceLink = errors.New("partner: customer and package references are required")
)

// ServiceStatus represents the provisioning status of a customer service
type ServiceStatus string

const (
	ServiceStatusPendingInstall ServiceStatus = "pending_installation"
	ServiceStatusActive         ServiceStatus = "active"
	ServiceStatusSuspended      ServiceStatus = "suspended"
	ServiceStatusCancelled      ServiceStatus = "cancelled"
)

// IsValid checks if the status is a known value
func (s ServiceStatus) IsValid() bool {
	switch s {
	case ServiceStatusPendingInstall, ServiceStatusActive, ServiceStatusSuspended, ServiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation
func (s ServiceStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// CustomerService Entity
// ---------------------------------------------------------------------------

// CustomerService links a customer to a service package. An active service
// with an activation date is the source for a billing subscription.
type CustomerService struct {
	// ID is the unique identifier
	ID uuid.UUID
	// CustomerID references the owning customer
	CustomerID uuid.UUID
	// PackageID references the subscribed service package
	PackageID uuid.UUID
	// Status is the provisioning status
	Status ServiceStatus
	// MonthlyPrice is the agreed recurring price, may differ from the
	// package list price when a promo applies
	MonthlyPrice decimal.Decimal
	// InstallationFee is the agreed once-off fee
	InstallationFee decimal.Decimal
	// RouterFee is the optional router charge, zero when customer-owned
	RouterFee decimal.Decimal
	// ActivatedAt is when the service went live, nil before installation
	ActivatedAt *time.Time
	// CreatedAt is when the service was created
	CreatedAt time.Time
	// UpdatedAt is when the service was last updated
	UpdatedAt time.Time
}

// NewCustomerService creates a service pending installation.
func NewCustomerService(customerID, packageID uuid.UUID, monthlyPrice, installationFee decimal.Decimal) (*CustomerService, error) {
	if customerID == uuid.Nil || packageID == uuid.Nil {
		return nil, ErrInvalidServiceLink
	}
	now := time.Now()
	return &CustomerService{
		ID:              uuid.New(),
		CustomerID:      customerID,
		PackageID:       packageID,
		Status:          ServiceStatusPendingInstall,
		MonthlyPrice:    monthlyPrice,
		InstallationFee: installationFee,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Activate marks the service live as of the given time.
func (s *CustomerService) Activate(at time.Time) {
	s.Status = ServiceStatusActive
	s.ActivatedAt = &at
	s.UpdatedAt = time.Now()
}

// IsBillable reports whether the service can back a subscription.
func (s *CustomerService) IsBillable() bool {
	return s.Status == ServiceStatusActive && s.ActivatedAt != nil
}

// HasRouter reports whether a router line should be invoiced.
func (s *CustomerService) HasRouter() bool {
	return s.RouterFee.IsPositive()
}

// ---------------------------------------------------------------------------
// CustomerServiceRepository Interface
// ---------------------------------------------------------------------------

// CustomerServiceReader defines the interface for reading services
type CustomerServiceReader interface {
	// FindByID finds a service by ID
	FindByID(ctx context.Context, id uuid.UUID) (*CustomerService, error)

	// FindByCustomer lists services for a customer
	FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]CustomerService, error)
}

// CustomerServiceWriter defines the interface for persisting services
type CustomerServiceWriter interface {
	// Save creates or updates a service
	Save(ctx context.Context, service *CustomerService) error
}

// CustomerServiceRepository defines the full persistence interface
type CustomerServiceRepository interface {
	CustomerServiceReader
	CustomerServiceWriter
}

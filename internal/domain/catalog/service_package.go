package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Domain errors for the catalog context.
var (
	ErrPackageNotFound    = errors.New("catalog: service package not found")
	ErrInvalidSKU         = errors.New("catalog: invalid SKU")
	ErrInvalidPackageName = errors.New("catalog: invalid package name")
	ErrInvalidPrice       = errors.New("catalog: price cannot be negative")
)

// PackageStatus represents the lifecycle status of a service package
type PackageStatus string

const (
	PackageStatusActive  PackageStatus = "active"
	PackageStatusRetired PackageStatus = "retired"
)

// IsValid checks if the status is a known value
func (s PackageStatus) IsValid() bool {
	switch s {
	case PackageStatusActive, PackageStatusRetired:
		return true
	}
	return false
}

// String returns the string representation
func (s PackageStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// ServicePackage Entity
// ---------------------------------------------------------------------------

// ServicePackage is a sellable connectivity package. The SKU is the business
// key used for provider-side deduplication.
type ServicePackage struct {
	// ID is the unique identifier
	ID uuid.UUID
	// SKU is the business key, unique across packages
	SKU string
	// Name is the customer-facing package name
	Name string
	// Description is the marketing description
	Description string
	// MonthlyPrice is the recurring price excluding VAT
	MonthlyPrice decimal.Decimal
	// SetupFee is the once-off installation fee excluding VAT
	SetupFee decimal.Decimal
	// Status is active or retired
	Status PackageStatus
	// CreatedAt is when the package was created
	CreatedAt time.Time
	// UpdatedAt is when the package was last updated
	UpdatedAt time.Time
}

// NewServicePackage creates an active service package.
func NewServicePackage(sku, name string, monthlyPrice, setupFee decimal.Decimal) (*ServicePackage, error) {
	if strings.TrimSpace(sku) == "" {
		return nil, ErrInvalidSKU
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidPackageName
	}
	if monthlyPrice.IsNegative() || setupFee.IsNegative() {
		return nil, ErrInvalidPrice
	}
	now := time.Now()
	return &ServicePackage{
		ID:           uuid.New(),
		SKU:          strings.ToUpper(strings.TrimSpace(sku)),
		Name:         name,
		MonthlyPrice: monthlyPrice,
		SetupFee:     setupFee,
		Status:       PackageStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// PlanCode derives the billing plan code from the SKU: lowercase with
// non-alphanumeric runs collapsed to a single dash.
func (p *ServicePackage) PlanCode() string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(p.SKU) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// IsActive reports whether the package is sellable.
func (p *ServicePackage) IsActive() bool {
	return p.Status == PackageStatusActive
}

// Retire marks the package as no longer sellable.
func (p *ServicePackage) Retire() {
	p.Status = PackageStatusRetired
	p.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// ServicePackageRepository Interface
// ---------------------------------------------------------------------------

// ServicePackageReader defines the interface for reading packages
type ServicePackageReader interface {
	// FindByID finds a package by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*ServicePackage, error)

	// FindBySKU finds a package by its business key
	FindBySKU(ctx context.Context, sku string) (*ServicePackage, error)
}

// ServicePackageFinder defines the interface for listing packages
type ServicePackageFinder interface {
	// FindAll lists packages, optionally restricted to active ones
	FindAll(ctx context.Context, activeOnly bool) ([]ServicePackage, error)

	// FindIDs lists all package IDs, active first
	FindIDs(ctx context.Context, activeOnly bool) ([]uuid.UUID, error)
}

// ServicePackageWriter defines the interface for persisting packages
type ServicePackageWriter interface {
	// Save creates or updates a package
	Save(ctx context.Context, pkg *ServicePackage) error
}

// ServicePackageRepository defines the full persistence interface
type ServicePackageRepository interface {
	ServicePackageReader
	ServicePackageFinder
	ServicePackageWriter
}

package partner

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Domain errors for the partner context.
var (
	ErrCustomerNotFound = errors.New("partner: customer not found")
	ErrInvalidEmail     = errors.New("partner: invalid email address")
	ErrInvalidName      = errors.New("partner: first and last name are required")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ---------------------------------------------------------------------------
// Customer Entity
// ---------------------------------------------------------------------------

// Customer is a subscriber. Email is the business key used for
// provider-side deduplication of contacts and billing customers.
type Customer struct {
	// ID is the unique identifier
	ID uuid.UUID
	// Email is the business key, unique across customers
	Email string
	// FirstName is the customer's first name
	FirstName string
	// LastName is the customer's last name
	LastName string
	// Phone is the contact number
	Phone string
	// Street is the installation address street line
	Street string
	// City is the installation address city
	City string
	// Province is the installation address province
	Province string
	// PostalCode is the installation address postal code
	PostalCode string
	// CreatedAt is when the customer was created
	CreatedAt time.Time
	// UpdatedAt is when the customer was last updated
	UpdatedAt time.Time
}

// NewCustomer creates a customer.
func NewCustomer(email, firstName, lastName string) (*Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return nil, ErrInvalidName
	}
	now := time.Now()
	return &Customer{
		ID:        uuid.New(),
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// DisplayName is the name shown on provider-side records.
func (c *Customer) DisplayName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// SetAddress sets the installation address.
func (c *Customer) SetAddress(street, city, province, postalCode string) {
	c.Street = street
	c.City = city
	c.Province = province
	c.PostalCode = postalCode
	c.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// CustomerRepository Interface
// ---------------------------------------------------------------------------

// CustomerReader defines the interface for reading customers
type CustomerReader interface {
	// FindByID finds a customer by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// FindByEmail finds a customer by business key
	FindByEmail(ctx context.Context, email string) (*Customer, error)
}

// CustomerWriter defines the interface for persisting customers
type CustomerWriter interface {
	// Save creates or updates a customer
	Save(ctx context.Context, customer *Customer) error
}

// CustomerRepository defines the full persistence interface
type CustomerRepository interface {
	CustomerReader
	CustomerWriter
}

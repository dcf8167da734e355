package partner

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Domain errors for payment transactions.
var (
	ErrPaymentNotFound  = errors.New("partner: payment transaction not found")
	ErrInvalidAmount    = errors.New("partner: payment amount must be positive")
	ErrPaymentNotLinked = errors.New("partner: payment has no customer reference")
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodEFT       PaymentMethod = "eft"
	PaymentMethodCard      PaymentMethod = "card"
	PaymentMethodDebit     PaymentMethod = "debit_order"
	PaymentMethodCashOther PaymentMethod = "other"
)

// IsValid checks if the method is a known value
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodEFT, PaymentMethodCard, PaymentMethodDebit, PaymentMethodCashOther:
		return true
	}
	return false
}

// String returns the string representation
func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentStatus represents the settlement status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// IsValid checks if the status is a known value
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation
func (s PaymentStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// PaymentTransaction Entity
// ---------------------------------------------------------------------------

// PaymentTransaction is a settled or pending customer payment. Completed
// payments linked to an invoice are pushed to the billing provider.
type PaymentTransaction struct {
	// ID is the unique identifier
	ID uuid.UUID
	// CustomerID references the paying customer
	CustomerID uuid.UUID
	// ServiceID references the service the payment relates to, optional
	ServiceID *uuid.UUID
	// Amount is the payment amount including VAT
	Amount decimal.Decimal
	// Method is how the payment was made
	Method PaymentMethod
	// Status is the settlement status
	Status PaymentStatus
	// Reference is the bank or gateway reference
	Reference string
	// PaidAt is when the payment settled
	PaidAt time.Time
	// CreatedAt is when the transaction was recorded
	CreatedAt time.Time
	// UpdatedAt is when the transaction was last updated
	UpdatedAt time.Time
}

// NewPaymentTransaction records a completed payment.
func NewPaymentTransaction(customerID uuid.UUID, amount decimal.Decimal, method PaymentMethod, reference string, paidAt time.Time) (*PaymentTransaction, error) {
	if customerID == uuid.Nil {
		return nil, ErrPaymentNotLinked
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	now := time.Now()
	return &PaymentTransaction{
		ID:         uuid.New(),
		CustomerID: customerID,
		Amount:     amount,
		Method:     method,
		Status:     PaymentStatusCompleted,
		Reference:  reference,
		PaidAt:     paidAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// IsSettled reports whether the payment can be pushed to the provider.
func (p *PaymentTransaction) IsSettled() bool {
	return p.Status == PaymentStatusCompleted
}

// ---------------------------------------------------------------------------
// PaymentTransactionRepository Interface
// ---------------------------------------------------------------------------

// PaymentTransactionReader defines the interface for reading payments
type PaymentTransactionReader interface {
	// FindByID finds a payment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentTransaction, error)

	// FindByCustomer lists payments for a customer, newest first
	FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]PaymentTransaction, error)
}

// PaymentTransactionWriter defines the interface for persisting payments
type PaymentTransactionWriter interface {
	// Save creates or updates a payment
	Save(ctx context.Context, payment *PaymentTransaction) error
}

// PaymentTransactionRepository defines the full persistence interface
type PaymentTransactionRepository interface {
	PaymentTransactionReader
	PaymentTransactionWriter
}

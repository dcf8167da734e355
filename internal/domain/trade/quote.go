package trade

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Domain errors for the trade context.
var (
	ErrQuoteNotFound      = errors.New("trade: quote not found")
	ErrInvalidQuoteNumber = errors.New("trade: invalid quote number")
	ErrQuoteWithoutLines  = errors.New("trade: quote requires at least one line")
	ErrInvalidQuoteLink   = errors.New("trade: customer reference is required")
)

// QuoteStage represents the sales stage of a quote
type QuoteStage string

const (
	QuoteStageDraft     QuoteStage = "draft"
	QuoteStageDelivered QuoteStage = "delivered"
	QuoteStageAccepted  QuoteStage = "accepted"
	QuoteStageDeclined  QuoteStage = "declined"
	QuoteStageExpired   QuoteStage = "expired"
)

// IsValid checks if the stage is a known value
func (s QuoteStage) IsValid() bool {
	switch s {
	case QuoteStageDraft, QuoteStageDelivered, QuoteStageAccepted, QuoteStageDeclined, QuoteStageExpired:
		return true
	}
	return false
}

// String returns the string representation
func (s QuoteStage) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Quote Entity
// ---------------------------------------------------------------------------

// QuoteLine is one quoted package line.
type QuoteLine struct {
	// PackageID references the quoted service package
	PackageID uuid.UUID
	// Quantity is the quoted quantity
	Quantity decimal.Decimal
	// UnitPrice is the quoted monthly price
	UnitPrice decimal.Decimal
}

// Quote is a customer proposal. The quote number is the business key used
// for provider-side deduplication.
type Quote struct {
	// ID is the unique identifier
	ID uuid.UUID
	// QuoteNumber is the business key, unique across quotes
	QuoteNumber string
	// CustomerID references the prospect customer
	CustomerID uuid.UUID
	// Subject is the proposal title
	Subject string
	// Stage is the sales stage
	Stage QuoteStage
	// ValidUntil is the expiry date of the proposal
	ValidUntil *time.Time
	// Lines are the quoted package lines
	Lines []QuoteLine
	// CreatedAt is when the quote was created
	CreatedAt time.Time
	// UpdatedAt is when the quote was last updated
	UpdatedAt time.Time
}

// NewQuote creates a draft quote.
func NewQuote(quoteNumber string, customerID uuid.UUID, subject string, lines []QuoteLine) (*Quote, error) {
	if strings.TrimSpace(quoteNumber) == "" {
		return nil, ErrInvalidQuoteNumber
	}
	if customerID == uuid.Nil {
		return nil, ErrInvalidQuoteLink
	}
	if len(lines) == 0 {
		return nil, ErrQuoteWithoutLines
	}
	now := time.Now()
	return &Quote{
		ID:          uuid.New(),
		QuoteNumber: strings.ToUpper(strings.TrimSpace(quoteNumber)),
		CustomerID:  customerID,
		Subject:     subject,
		Stage:       QuoteStageDraft,
		Lines:       lines,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Total is the monthly total across lines.
func (q *Quote) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range q.Lines {
		total = total.Add(line.UnitPrice.Mul(line.Quantity))
	}
	return total
}

// ---------------------------------------------------------------------------
// QuoteRepository Interface
// ---------------------------------------------------------------------------

// QuoteReader defines the interface for reading quotes
type QuoteReader interface {
	// FindByID finds a quote by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Quote, error)

	// FindByNumber finds a quote by business key
	FindByNumber(ctx context.Context, quoteNumber string) (*Quote, error)
}

// QuoteWriter defines the interface for persisting quotes
type QuoteWriter interface {
	// Save creates or updates a quote
	Save(ctx context.Context, quote *Quote) error
}

// QuoteRepository defines the full persistence interface
type QuoteRepository interface {
	QuoteReader
	QuoteWriter
}

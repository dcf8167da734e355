package sync

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Provider Ports
// ---------------------------------------------------------------------------
// The sync services talk to the provider exclusively through these
// interfaces. Implementations live in infrastructure and carry the
// authentication, throttling and retry-on-expiry mechanics.

// UpsertResult is the outcome of an idempotent create-or-update call.
type UpsertResult struct {
	// ExternalID is the provider-side identifier of the object
	ExternalID string
	// Created is true when the call created the object, false when it
	// updated an existing one found by business key
	Created bool
}

// Action maps the result onto the audit log vocabulary.
func (r UpsertResult) Action() SyncAction {
	if r.Created {
		return ActionCreate
	}
	return ActionUpdate
}

// ---------------------------------------------------------------------------
// CRM payloads
// ---------------------------------------------------------------------------

// CRMProduct is the payload for a CRM product record, keyed by SKU.
type CRMProduct struct {
	SKU         string
	Name        string
	Description string
	UnitPrice   decimal.Decimal
	Active      bool
}

// CRMContact is the payload for a CRM contact, keyed by email.
type CRMContact struct {
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	Street     string
	City       string
	Province   string
	PostalCode string
	Country    string
}

// CRMQuote is the payload for a CRM quote, keyed by quote number.
type CRMQuote struct {
	QuoteNumber string
	Subject     string
	ContactID   string
	Stage       string
	ValidUntil  *time.Time
	Lines       []CRMQuoteLine
}

// CRMQuoteLine is one quoted line item.
type CRMQuoteLine struct {
	ProductID string
	Quantity  decimal.Decimal
	ListPrice decimal.Decimal
}

// CRMPort is the provider CRM surface needed by the sync services.
type CRMPort interface {
	// UpsertProduct creates or updates a product by SKU
	UpsertProduct(ctx context.Context, product CRMProduct) (UpsertResult, error)

	// UpsertContact creates or updates a contact by email
	UpsertContact(ctx context.Context, contact CRMContact) (UpsertResult, error)

	// UpsertQuote creates or updates a quote by quote number
	UpsertQuote(ctx context.Context, quote CRMQuote) (UpsertResult, error)
}

// ---------------------------------------------------------------------------
// Billing payloads
// ---------------------------------------------------------------------------

// BillingPlan is a recurring plan, keyed by plan code.
type BillingPlan struct {
	PlanCode       string
	Name           string
	Description    string
	RecurringPrice decimal.Decimal
	// Interval is the billing cadence in IntervalUnit steps, 1 for monthly
	Interval     int
	IntervalUnit string
}

// BillingItem is a one-off chargeable item, keyed by SKU.
type BillingItem struct {
	SKU         string
	Name        string
	Description string
	Rate        decimal.Decimal
}

// BillingProduct is a billing-side product grouping, keyed by name.
type BillingProduct struct {
	Name        string
	Description string
}

// BillingCustomer is a billing customer, keyed by email.
type BillingCustomer struct {
	Email       string
	DisplayName string
	FirstName   string
	LastName    string
	Phone       string
	Street      string
	City        string
	Province    string
	PostalCode  string
	Country     string
}

// BillingSubscription is a recurring subscription for a customer.
type BillingSubscription struct {
	CustomerID string
	PlanCode   string
	PlanPrice  decimal.Decimal
	Quantity   int
	StartsAt   *time.Time
	// AutoCollect charges the stored payment method when true
	AutoCollect bool
}

// BillingInvoiceLine is one invoice line.
type BillingInvoiceLine struct {
	Description string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
}

// BillingInvoice is a one-off invoice for a customer.
type BillingInvoice struct {
	CustomerID string
	Lines      []BillingInvoiceLine
	// VATRate is the tax fraction applied across lines, 0.15 for 15%
	VATRate decimal.Decimal
	Date    time.Time
}

// BillingInvoiceResult is the provider response for a created invoice.
type BillingInvoiceResult struct {
	InvoiceID     string
	InvoiceNumber string
	Total         decimal.Decimal
	// URL is the provider-hosted invoice page
	URL string
}

// BillingPayment applies a payment against an invoice.
type BillingPayment struct {
	CustomerID  string
	InvoiceID   string
	Amount      decimal.Decimal
	Mode        string
	Reference   string
	Date        time.Time
	Description string
}

// BillingPort is the provider billing surface needed by the sync services.
type BillingPort interface {
	// UpsertPlan creates or updates a plan by plan code
	UpsertPlan(ctx context.Context, plan BillingPlan) (UpsertResult, error)

	// UpsertItem creates or updates an item by SKU
	UpsertItem(ctx context.Context, item BillingItem) (UpsertResult, error)

	// UpsertProduct creates or updates a billing product by name
	UpsertProduct(ctx context.Context, product BillingProduct) (UpsertResult, error)

	// UpsertCustomer creates or updates a customer by email
	UpsertCustomer(ctx context.Context, customer BillingCustomer) (UpsertResult, error)

	// CreateSubscription creates a subscription, returns its provider ID
	CreateSubscription(ctx context.Context, sub BillingSubscription) (string, error)

	// CreateInvoice creates a one-off invoice
	CreateInvoice(ctx context.Context, invoice BillingInvoice) (BillingInvoiceResult, error)

	// RecordPayment applies a payment to an invoice, returns the payment ID
	RecordPayment(ctx context.Context, payment BillingPayment) (string, error)
}

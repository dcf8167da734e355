package sync

import (
	"strings"

	"github.com/circletel/backend/internal/domain/catalog"
	"github.com/circletel/backend/internal/domain/partner"
	domainsync "github.com/circletel/backend/internal/domain/sync"
	"github.com/circletel/backend/internal/domain/trade"
)

// ---------------------------------------------------------------------------
// Entity to provider payload mapping
// ---------------------------------------------------------------------------
// Pure functions, no IO. Provider-side vocabulary (stage picklists, payment
// modes) is closed here so the clients stay dumb pipes.

// MapPackageToCRMProduct builds the CRM product payload for a package.
func MapPackageToCRMProduct(pkg *catalog.ServicePackage) domainsync.CRMProduct {
	return domainsync.CRMProduct{
		SKU:         pkg.SKU,
		Name:        pkg.Name,
		Description: pkg.Description,
		UnitPrice:   pkg.MonthlyPrice,
		Active:      pkg.IsActive(),
	}
}

// MapPackageToBillingPlan builds the recurring plan payload for a package.
// The plan code is derived from the SKU.
func MapPackageToBillingPlan(pkg *catalog.ServicePackage) domainsync.BillingPlan {
	return domainsync.BillingPlan{
		PlanCode:       pkg.PlanCode(),
		Name:           pkg.Name,
		Description:    pkg.Description,
		RecurringPrice: pkg.MonthlyPrice,
		Interval:       1,
		IntervalUnit:   "months",
	}
}

// MapPackageToBillingItem builds the one-off item payload for a package.
// Items back ad-hoc invoice lines, rated at the monthly price.
func MapPackageToBillingItem(pkg *catalog.ServicePackage) domainsync.BillingItem {
	return domainsync.BillingItem{
		SKU:         pkg.SKU,
		Name:        pkg.Name,
		Description: pkg.Description,
		Rate:        pkg.MonthlyPrice,
	}
}

// MapCustomerToCRMContact builds the CRM contact payload for a customer.
func MapCustomerToCRMContact(customer *partner.Customer) domainsync.CRMContact {
	return domainsync.CRMContact{
		Email:      customer.Email,
		FirstName:  customer.FirstName,
		LastName:   customer.LastName,
		Phone:      customer.Phone,
		Street:     customer.Street,
		City:       customer.City,
		Province:   customer.Province,
		PostalCode: customer.PostalCode,
		Country:    "South Africa",
	}
}

// MapCustomerToBillingCustomer builds the billing customer payload.
func MapCustomerToBillingCustomer(customer *partner.Customer) domainsync.BillingCustomer {
	return domainsync.BillingCustomer{
		Email:       customer.Email,
		DisplayName: customer.DisplayName(),
		FirstName:   customer.FirstName,
		LastName:    customer.LastName,
		Phone:       customer.Phone,
		Street:      customer.Street,
		City:        customer.City,
		Province:    customer.Province,
		PostalCode:  customer.PostalCode,
		Country:     "South Africa",
	}
}

// MapQuoteToCRMQuote builds the CRM quote payload. Line product IDs must be
// resolved by the caller before mapping.
func MapQuoteToCRMQuote(quote *trade.Quote, contactID string, lineProductIDs []string) domainsync.CRMQuote {
	lines := make([]domainsync.CRMQuoteLine, len(quote.Lines))
	for i, line := range quote.Lines {
		lines[i] = domainsync.CRMQuoteLine{
			ProductID: lineProductIDs[i],
			Quantity:  line.Quantity,
			ListPrice: line.UnitPrice,
		}
	}
	return domainsync.CRMQuote{
		QuoteNumber: quote.QuoteNumber,
		Subject:     quote.Subject,
		ContactID:   contactID,
		Stage:       MapQuoteStage(quote.Stage),
		ValidUntil:  quote.ValidUntil,
		Lines:       lines,
	}
}

// MapQuoteStage maps a quote stage onto the CRM quote stage picklist.
func MapQuoteStage(stage trade.QuoteStage) string {
	switch stage {
	case trade.QuoteStageDraft:
		return "Draft"
	case trade.QuoteStageDelivered:
		return "Delivered"
	case trade.QuoteStageAccepted:
		return "Closed Won"
	case trade.QuoteStageDeclined, trade.QuoteStageExpired:
		return "Closed Lost"
	}
	return "Draft"
}

// MapPaymentMode maps a payment method onto the billing payment mode
// vocabulary.
func MapPaymentMode(method partner.PaymentMethod) string {
	switch method {
	case partner.PaymentMethodEFT:
		return "banktransfer"
	case partner.PaymentMethodCard:
		return "creditcard"
	case partner.PaymentMethodDebit:
		return "autotransaction"
	}
	return "cash"
}

// ---------------------------------------------------------------------------
// Status normalization
// ---------------------------------------------------------------------------
// Inbound status strings (imports, admin requests) match the closed enums
// case-insensitively. Unknown values return false.

// NormalizeServiceStatus parses a service status string.
func NormalizeServiceStatus(raw string) (partner.ServiceStatus, bool) {
	status := partner.ServiceStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return "", false
	}
	return status, true
}

// NormalizeQuoteStage parses a quote stage string.
func NormalizeQuoteStage(raw string) (trade.QuoteStage, bool) {
	stage := trade.QuoteStage(strings.ToLower(strings.TrimSpace(raw)))
	if !stage.IsValid() {
		return "", false
	}
	return stage, true
}

// NormalizePaymentMethod parses a payment method string.
func NormalizePaymentMethod(raw string) (partner.PaymentMethod, bool) {
	method := partner.PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	if !method.IsValid() {
		return "", false
	}
	return method, true
}

// NormalizeEntityType parses an entity type string.
func NormalizeEntityType(raw string) (domainsync.EntityType, bool) {
	entityType := domainsync.EntityType(strings.ToLower(strings.TrimSpace(raw)))
	if !entityType.IsValid() {
		return "", false
	}
	return entityType, true
}

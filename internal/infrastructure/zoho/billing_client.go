package zoho

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	domainsync "github.com/circletel/backend/internal/domain/sync"
)

// organizationHeader scopes Billing calls to one organization. The query
// parameter carries the same value; the provider accepts either but some
// endpoints only honor the header.
const organizationHeader = "X-com-zoho-subscriptions-organizationid"

// BillingClient talks to the ZOHO Billing v1 API. Writes are
// upsert-by-business-key where the API supports lookups (plans by plan code,
// items by SKU, customers by email, products filtered by name in memory).
type BillingClient struct {
	core    *restCore
	baseURL string
	orgID   string
}

// NewBillingClient creates a Billing client sharing the token manager and limiter.
func NewBillingClient(cfg *Config, limiter *RateLimiter, tokens *TokenManager, logger *zap.Logger) *BillingClient {
	return &BillingClient{
		core: &restCore{
			httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
			limiter:    limiter,
			tokens:     tokens,
			class:      ClassBilling,
			logger:     logger.Named("zoho.billing"),
		},
		baseURL: cfg.BillingEndpoint(),
		orgID:   cfg.OrganizationID,
	}
}

func (c *BillingClient) do(ctx context.Context, method, path string, query map[string]string, body interface{}, out interface{}) error {
	q := map[string]string{"organization_id": c.orgID}
	for k, v := range query {
		q[k] = v
	}
	return c.core.doJSON(ctx, requestSpec{
		method: method,
		url:    c.baseURL + path,
		query:  q,
		header: map[string]string{organizationHeader: c.orgID},
		body:   body,
	}, out)
}

// billingEnvelope is the status pair every Billing response carries.
// A non-zero code inside a 2xx response is still a failure.
type billingEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e billingEnvelope) check() error {
	if e.Code != 0 {
		return &APIError{HTTPStatus: http.StatusOK, Code: fmt.Sprintf("%d", e.Code), Message: e.Message}
	}
	return nil
}

func isNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.HTTPStatus == http.StatusNotFound
}

// ---------------------------------------------------------------------------
// Plans
// ---------------------------------------------------------------------------

type billingPlanPayload struct {
	PlanCode       string  `json:"plan_code"`
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	RecurringPrice float64 `json:"recurring_price"`
	Interval       int     `json:"interval"`
	IntervalUnit   string  `json:"interval_unit"`
}

type billingPlanResponse struct {
	billingEnvelope
	Plan struct {
		PlanCode string `json:"plan_code"`
	} `json:"plan"`
}

// UpsertPlan creates or updates a plan keyed by plan code. The plan code is
// the provider-side identifier.
func (c *BillingClient) UpsertPlan(ctx context.Context, plan domainsync.BillingPlan) (domainsync.UpsertResult, error) {
	payload := billingPlanPayload{
		PlanCode:       plan.PlanCode,
		Name:           plan.Name,
		Description:    plan.Description,
		RecurringPrice: plan.RecurringPrice.InexactFloat64(),
		Interval:       plan.Interval,
		IntervalUnit:   plan.IntervalUnit,
	}

	var existing billingPlanResponse
	err := c.do(ctx, http.MethodGet, "/plans/"+plan.PlanCode, nil, nil, &existing)
	switch {
	case err == nil && existing.check() == nil:
		var resp billingPlanResponse
		if err := c.do(ctx, http.MethodPut, "/plans/"+plan.PlanCode, nil, payload, &resp); err != nil {
			return domainsync.UpsertResult{}, err
		}
		if err := resp.check(); err != nil {
			return domainsync.UpsertResult{}, err
		}
		return domainsync.UpsertResult{ExternalID: plan.PlanCode, Created: false}, nil
	case err != nil && !isNotFound(err):
		return domainsync.UpsertResult{}, err
	}

	var resp billingPlanResponse
	if err := c.do(ctx, http.MethodPost, "/plans", nil, payload, &resp); err != nil {
		return domainsync.UpsertResult{}, err
	}
	if err := resp.check(); err != nil {
		return domainsync.UpsertResult{}, err
	}
	return domainsync.UpsertResult{ExternalID: plan.PlanCode, Created: true}, nil
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

type billingItemPayload struct {
	Name        string  `json:"name"`
	SKU         string  `json:"sku"`
	Description string  `json:"description,omitempty"`
	Rate        float64 `json:"rate"`
}

type billingItemListResponse struct {
	billingEnvelope
	Items []struct {
		ItemID string `json:"item_id"`
		SKU    string `json:"sku"`
	} `json:"items"`
}

type billingItemResponse struct {
	billingEnvelope
	Item struct {
		ItemID string `json:"item_id"`
	} `json:"item"`
}

// UpsertItem creates or updates an item keyed by SKU. The list endpoint has
// no SKU filter, so candidates come from a text search and the exact match
// happens here.
func (c *BillingClient) UpsertItem(ctx context.Context, item domainsync.BillingItem) (domainsync.UpsertResult, error) {
	var list billingItemListResponse
	if err := c.do(ctx, http.MethodGet, "/items", map[string]string{"search_text": item.SKU}, nil, &list); err != nil {
		return domainsync.UpsertResult{}, err
	}
	if err := list.check(); err != nil {
		return domainsync.UpsertResult{}, err
	}

	existingID := ""
	for _, candidate := range list.Items {
		if strings.EqualFold(candidate.SKU, item.SKU) {
			existingID = candidate.ItemID
			break
		}
	}

	payload := billingItemPayload{
		Name:        item.Name,
		SKU:         item.SKU,
		Description: item.Description,
		Rate:        item.Rate.InexactFloat64(),
	}

	if existingID != "" {
		var resp billingItemResponse
		if err := c.do(ctx, http.MethodPut, "/items/"+existingID, nil, payload, &resp); err != nil {
			return domainsync.UpsertResult{}, err
		}
		if err := resp.check(); err != nil {
			return domainsync.UpsertResult{}, err
		}
		return domainsync.UpsertResult{ExternalID: existingID, Created: false}, nil
	}

	var resp billingItemResponse
	if err := c.do(ctx, http.MethodPost, "/items", nil, payload, &resp); err != nil {
		return domainsync.UpsertResult{}, err
	}
	if err := resp.check(); err != nil {
		return domainsync.UpsertResult{}, err
	}
	return domainsync.UpsertResult{ExternalID: resp.Item.ItemID, Created: true}, nil
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

type billingProductPayload struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type billingProductListResponse struct {
	billingEnvelope
	Products []struct {
		ProductID string `json:"product_id"`
		Name      string `json:"name"`
	} `json:"products"`
}

type billingProductResponse struct {
	billingEnvelope
	Product struct {
		ProductID string `json:"product_id"`
	} `json:"product"`
}

// UpsertProduct creates or updates a billing product keyed by name. The API
// offers no name lookup, so the full list is filtered in memory.
func (c *BillingClient) UpsertProduct(ctx context.Context, product domainsync.BillingProduct) (domainsync.UpsertResult, error) {
	var list billingProductListResponse
	if err := c.do(ctx, http.MethodGet, "/products", nil, nil, &list); err != nil {
		return domainsync.UpsertResult{}, err
	}
	if err := list.check(); err != nil {
		return domainsync.UpsertResult{}, err
	}

	existingID := ""
	for _, candidate := range list.Products {
		if strings.EqualFold(candidate.Name, product.Name) {
			existingID = candidate.ProductID
			break
		}
	}

	payload := billingProductPayload{Name: product.Name, Description: product.Description}

	if existingID != "" {
		var resp billingProductResponse
		if err := c.do(ctx, http.MethodPut, "/products/"+existingID, nil, payload, &resp); err != nil {
			return domainsync.UpsertResult{}, err
		}
		if err := resp.check(); err != nil {
			return domainsync.UpsertResult{}, err
		}
		return domainsync.UpsertResult{ExternalID: existingID, Created: false}, nil
	}

	var resp billingProductResponse
	if err := c.do(ctx, http.MethodPost, "/products", nil, payload, &resp); err != nil {
		return domainsync.UpsertResult{}, err
	}
	if err := resp.check(); err != nil {
		return domainsync.UpsertResult{}, err
	}
	return domainsync.UpsertResult{ExternalID: resp.Product.ProductID, Created: true}, nil
}

// ---------------------------------------------------------------------------
// Customers
// ---------------------------------------------------------------------------

type billingCustomerPayload struct {
	DisplayName    string                 `json:"display_name"`
	FirstName      string                 `json:"first_name,omitempty"`
	LastName       string                 `json:"last_name,omitempty"`
	Email          string                 `json:"email"`
	Phone          string                 `json:"phone,omitempty"`
	BillingAddress *billingAddressPayload `json:"billing_address,omitempty"`
}

type billingAddressPayload struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

type billingCustomerListResponse struct {
	billingEnvelope
	Customers []struct {
		CustomerID string `json:"customer_id"`
		Email      string `json:"email"`
	} `json:"customers"`
}

type billingCustomerResponse struct {
	billingEnvelope
	Customer struct {
		CustomerID string `json:"customer_id"`
	} `json:"customer"`
}

// UpsertCustomer creates or updates a customer keyed by email.
func (c *BillingClient) UpsertCustomer(ctx context.Context, customer domainsync.BillingCustomer) (domainsync.UpsertResult, error) {
	var list billingCustomerListResponse
	if err := c.do(ctx, http.MethodGet, "/customers", map[string]string{"email": customer.Email}, nil, &list); err != nil {
		return domainsync.UpsertResult{}, err
	}
	if err := list.check(); err != nil {
		return domainsync.UpsertResult{}, err
	}

	existingID := ""
	for _, candidate := range list.Customers {
		if strings.EqualFold(candidate.Email, customer.Email) {
			existingID = candidate.CustomerID
			break
		}
	}

	payload := billingCustomerPayload{
		DisplayName: customer.DisplayName,
		FirstName:   customer.FirstName,
		LastName:    customer.LastName,
		Email:       customer.Email,
		Phone:       customer.Phone,
	}
	if customer.Street != "" || customer.City != "" {
		payload.BillingAddress = &billingAddressPayload{
			Street:  customer.Street,
			City:    customer.City,
			State:   customer.Province,
			Zip:     customer.PostalCode,
			Country: customer.Country,
		}
	}

	if existingID != "" {
		var resp billingCustomerResponse
		if err := c.do(ctx, http.MethodPut, "/customers/"+existingID, nil, payload, &resp); err != nil {
			return domainsync.UpsertResult{}, err
		}
		if err := resp.check(); err != nil {
			return domainsync.UpsertResult{}, err
		}
		return domainsync.UpsertResult{ExternalID: existingID, Created: false}, nil
	}

	var resp billingCustomerResponse
	if err := c.do(ctx, http.MethodPost, "/customers", nil, payload, &resp); err != nil {
		return domainsync.UpsertResult{}, err
	}
	if err := resp.check(); err != nil {
		return domainsync.UpsertResult{}, err
	}
	return domainsync.UpsertResult{ExternalID: resp.Customer.CustomerID, Created: true}, nil
}

// ---------------------------------------------------------------------------
// Subscriptions
// ---------------------------------------------------------------------------

type billingSubscriptionPayload struct {
	CustomerID  string                  `json:"customer_id"`
	Plan        billingSubscriptionPlan `json:"plan"`
	StartsAt    string                  `json:"starts_at,omitempty"`
	AutoCollect bool                    `json:"auto_collect"`
}

type billingSubscriptionPlan struct {
	PlanCode string  `json:"plan_code"`
	Price    float64 `json:"price,omitempty"`
	Quantity int     `json:"quantity"`
}

type billingSubscriptionResponse struct {
	billingEnvelope
	Subscription struct {
		SubscriptionID string `json:"subscription_id"`
	} `json:"subscription"`
}

// CreateSubscription creates a recurring subscription.
func (c *BillingClient) CreateSubscription(ctx context.Context, sub domainsync.BillingSubscription) (string, error) {
	quantity := sub.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	payload := billingSubscriptionPayload{
		CustomerID: sub.CustomerID,
		Plan: billingSubscriptionPlan{
			PlanCode: sub.PlanCode,
			Price:    sub.PlanPrice.InexactFloat64(),
			Quantity: quantity,
		},
		AutoCollect: sub.AutoCollect,
	}
	if sub.StartsAt != nil {
		payload.StartsAt = sub.StartsAt.Format("2006-01-02")
	}

	var resp billingSubscriptionResponse
	if err := c.do(ctx, http.MethodPost, "/subscriptions", nil, payload, &resp); err != nil {
		return "", err
	}
	if err := resp.check(); err != nil {
		return "", err
	}
	return resp.Subscription.SubscriptionID, nil
}

// ---------------------------------------------------------------------------
// Invoices
// ---------------------------------------------------------------------------

type billingInvoicePayload struct {
	CustomerID   string               `json:"customer_id"`
	Date         string               `json:"date"`
	InvoiceItems []billingInvoiceItem `json:"invoice_items"`
}

type billingInvoiceItem struct {
	Description   string  `json:"description"`
	Rate          float64 `json:"rate"`
	Quantity      float64 `json:"quantity"`
	TaxPercentage float64 `json:"tax_percentage,omitempty"`
}

type billingInvoiceResponse struct {
	billingEnvelope
	Invoice struct {
		InvoiceID     string  `json:"invoice_id"`
		InvoiceNumber string  `json:"invoice_number"`
		Total         float64 `json:"total"`
		InvoiceURL    string  `json:"invoice_url"`
	} `json:"invoice"`
}

// CreateInvoice creates a one-off invoice with the VAT rate applied per line.
func (c *BillingClient) CreateInvoice(ctx context.Context, invoice domainsync.BillingInvoice) (domainsync.BillingInvoiceResult, error) {
	taxPct := invoice.VATRate.Mul(hundred).InexactFloat64()

	items := make([]billingInvoiceItem, 0, len(invoice.Lines))
	for _, line := range invoice.Lines {
		items = append(items, billingInvoiceItem{
			Description:   line.Description,
			Rate:          line.Rate.InexactFloat64(),
			Quantity:      line.Quantity.InexactFloat64(),
			TaxPercentage: taxPct,
		})
	}

	payload := billingInvoicePayload{
		CustomerID:   invoice.CustomerID,
		Date:         invoice.Date.Format("2006-01-02"),
		InvoiceItems: items,
	}

	var resp billingInvoiceResponse
	if err := c.do(ctx, http.MethodPost, "/invoices", nil, payload, &resp); err != nil {
		return domainsync.BillingInvoiceResult{}, err
	}
	if err := resp.check(); err != nil {
		return domainsync.BillingInvoiceResult{}, err
	}
	return domainsync.BillingInvoiceResult{
		InvoiceID:     resp.Invoice.InvoiceID,
		InvoiceNumber: resp.Invoice.InvoiceNumber,
		Total:         floatToDecimal(resp.Invoice.Total),
		URL:           resp.Invoice.InvoiceURL,
	}, nil
}

// ---------------------------------------------------------------------------
// Payments
// ---------------------------------------------------------------------------

type billingPaymentPayload struct {
	CustomerID      string                  `json:"customer_id"`
	Amount          float64                 `json:"amount"`
	PaymentMode     string                  `json:"payment_mode"`
	Date            string                  `json:"date"`
	ReferenceNumber string                  `json:"reference_number,omitempty"`
	Description     string                  `json:"description,omitempty"`
	Invoices        []billingPaymentInvoice `json:"invoices,omitempty"`
}

type billingPaymentInvoice struct {
	InvoiceID     string  `json:"invoice_id"`
	AmountApplied float64 `json:"amount_applied"`
}

type billingPaymentResponse struct {
	billingEnvelope
	Payment struct {
		PaymentID string `json:"payment_id"`
	} `json:"payment"`
}

// RecordPayment applies a payment to an invoice.
func (c *BillingClient) RecordPayment(ctx context.Context, payment domainsync.BillingPayment) (string, error) {
	payload := billingPaymentPayload{
		CustomerID:      payment.CustomerID,
		Amount:          payment.Amount.InexactFloat64(),
		PaymentMode:     payment.Mode,
		Date:            payment.Date.Format("2006-01-02"),
		ReferenceNumber: payment.Reference,
		Description:     payment.Description,
	}
	if payment.InvoiceID != "" {
		payload.Invoices = []billingPaymentInvoice{
			{InvoiceID: payment.InvoiceID, AmountApplied: payment.Amount.InexactFloat64()},
		}
	}

	var resp billingPaymentResponse
	if err := c.do(ctx, http.MethodPost, "/payments", nil, payload, &resp); err != nil {
		return "", err
	}
	if err := resp.check(); err != nil {
		return "", err
	}
	return resp.Payment.PaymentID, nil
}

// ---------------------------------------------------------------------------
// Organization probe
// ---------------------------------------------------------------------------

type billingOrganizationListResponse struct {
	billingEnvelope
	Organizations []struct {
		OrganizationID string `json:"organization_id"`
		Name           string `json:"name"`
	} `json:"organizations"`
}

// CheckOrganization verifies the configured organization is visible to the
// authenticated account. Used by health checks.
func (c *BillingClient) CheckOrganization(ctx context.Context) error {
	var resp billingOrganizationListResponse
	if err := c.do(ctx, http.MethodGet, "/organizations", nil, nil, &resp); err != nil {
		return err
	}
	if err := resp.check(); err != nil {
		return err
	}
	for _, org := range resp.Organizations {
		if org.OrganizationID == c.orgID {
			return nil
		}
	}
	return fmt.Errorf("organization %s not visible to the authenticated account", c.orgID)
}

var _ domainsync.BillingPort = (*BillingClient)(nil)

package zoho

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	domainsync "github.com/circletel/backend/internal/domain/sync"
)

// CRMClient talks to the ZOHO CRM v8 API. All writes are
// upsert-by-business-key: search on the key field first, then create or
// update, so replays and concurrent runners cannot produce duplicates.
type CRMClient struct {
	core    *restCore
	baseURL string
}

// NewCRMClient creates a CRM client sharing the token manager and limiter.
func NewCRMClient(cfg *Config, limiter *RateLimiter, tokens *TokenManager, logger *zap.Logger) *CRMClient {
	return &CRMClient{
		core: &restCore{
			httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
			limiter:    limiter,
			tokens:     tokens,
			class:      ClassCRM,
			logger:     logger.Named("zoho.crm"),
		},
		baseURL: cfg.CRMEndpoint(),
	}
}

// ---------------------------------------------------------------------------
// Generic record plumbing
// ---------------------------------------------------------------------------

type crmRecord map[string]interface{}

type crmSearchResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

type crmWriteResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
	} `json:"data"`
}

// searchByField finds a record ID by an exact criteria match. Returns empty
// when no record matches (the API answers 204 with no body).
func (c *CRMClient) searchByField(ctx context.Context, module, field, value string) (string, error) {
	var resp crmSearchResponse
	err := c.core.doJSON(ctx, requestSpec{
		method: http.MethodGet,
		url:    fmt.Sprintf("%s/%s/search", c.baseURL, module),
		query: map[string]string{
			"criteria": fmt.Sprintf("(%s:equals:%s)", field, value),
		},
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", nil
	}
	return resp.Data[0].ID, nil
}

func (c *CRMClient) createRecord(ctx context.Context, module string, record crmRecord) (string, error) {
	var resp crmWriteResponse
	err := c.core.doJSON(ctx, requestSpec{
		method: http.MethodPost,
		url:    fmt.Sprintf("%s/%s", c.baseURL, module),
		body:   map[string]interface{}{"data": []crmRecord{record}},
	}, &resp)
	if err != nil {
		return "", err
	}
	return parseCRMWrite(resp)
}

func (c *CRMClient) updateRecord(ctx context.Context, module, id string, record crmRecord) (string, error) {
	var resp crmWriteResponse
	err := c.core.doJSON(ctx, requestSpec{
		method: http.MethodPut,
		url:    fmt.Sprintf("%s/%s/%s", c.baseURL, module, id),
		body:   map[string]interface{}{"data": []crmRecord{record}},
	}, &resp)
	if err != nil {
		return "", err
	}
	return parseCRMWrite(resp)
}

// parseCRMWrite checks the per-record status the CRM API nests inside a 2xx
// response.
func parseCRMWrite(resp crmWriteResponse) (string, error) {
	if len(resp.Data) == 0 {
		return "", &APIError{HTTPStatus: http.StatusOK, Message: "crm write returned no records"}
	}
	row := resp.Data[0]
	if row.Code != "SUCCESS" {
		return "", &APIError{HTTPStatus: http.StatusOK, Code: row.Code, Message: row.Message}
	}
	return row.Details.ID, nil
}

func (c *CRMClient) upsert(ctx context.Context, module, keyField, keyValue string, record crmRecord) (domainsync.UpsertResult, error) {
	existingID, err := c.searchByField(ctx, module, keyField, keyValue)
	if err != nil {
		return domainsync.UpsertResult{}, err
	}

	if existingID != "" {
		id, err := c.updateRecord(ctx, module, existingID, record)
		if err != nil {
			return domainsync.UpsertResult{}, err
		}
		if id == "" {
			id = existingID
		}
		return domainsync.UpsertResult{ExternalID: id, Created: false}, nil
	}

	id, err := c.createRecord(ctx, module, record)
	if err != nil {
		return domainsync.UpsertResult{}, err
	}
	return domainsync.UpsertResult{ExternalID: id, Created: true}, nil
}

// ---------------------------------------------------------------------------
// Port implementation
// ---------------------------------------------------------------------------

// UpsertProduct creates or updates a CRM product keyed by SKU.
func (c *CRMClient) UpsertProduct(ctx context.Context, product domainsync.CRMProduct) (domainsync.UpsertResult, error) {
	record := crmRecord{
		"Product_Code":   product.SKU,
		"Product_Name":   product.Name,
		"Description":    product.Description,
		"Unit_Price":     product.UnitPrice.InexactFloat64(),
		"Product_Active": product.Active,
	}
	return c.upsert(ctx, "Products", "Product_Code", product.SKU, record)
}

// UpsertContact creates or updates a CRM contact keyed by email.
func (c *CRMClient) UpsertContact(ctx context.Context, contact domainsync.CRMContact) (domainsync.UpsertResult, error) {
	record := crmRecord{
		"Email":           contact.Email,
		"First_Name":      contact.FirstName,
		"Last_Name":       contact.LastName,
		"Phone":           contact.Phone,
		"Mailing_Street":  contact.Street,
		"Mailing_City":    contact.City,
		"Mailing_State":   contact.Province,
		"Mailing_Zip":     contact.PostalCode,
		"Mailing_Country": contact.Country,
	}
	return c.upsert(ctx, "Contacts", "Email", contact.Email, record)
}

// UpsertQuote creates or updates a CRM quote keyed by quote number.
func (c *CRMClient) UpsertQuote(ctx context.Context, quote domainsync.CRMQuote) (domainsync.UpsertResult, error) {
	items := make([]crmRecord, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		items = append(items, crmRecord{
			"Product_Name": crmRecord{"id": line.ProductID},
			"Quantity":     line.Quantity.InexactFloat64(),
			"List_Price":   line.ListPrice.InexactFloat64(),
		})
	}

	record := crmRecord{
		"Subject":         quote.Subject,
		"Quote_Number":    quote.QuoteNumber,
		"Quote_Stage":     quote.Stage,
		"Product_Details": items,
	}
	if quote.ContactID != "" {
		record["Contact_Name"] = crmRecord{"id": quote.ContactID}
	}
	if quote.ValidUntil != nil {
		record["Valid_Till"] = quote.ValidUntil.Format("2006-01-02")
	}
	return c.upsert(ctx, "Quotes", "Quote_Number", quote.QuoteNumber, record)
}

var _ domainsync.CRMPort = (*CRMClient)(nil)

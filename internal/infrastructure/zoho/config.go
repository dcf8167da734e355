package zoho

import (
	"errors"
	"fmt"
)

// Region selects the ZOHO data center all endpoints resolve against.
type Region string

const (
	RegionUS Region = "com"
	RegionEU Region = "eu"
	RegionIN Region = "in"
	RegionAU Region = "com.au"
	RegionCN Region = "com.cn"
)

// IsValid checks if the region is a known data center
func (r Region) IsValid() bool {
	switch r {
	case RegionUS, RegionEU, RegionIN, RegionAU, RegionCN:
		return true
	}
	return false
}

// AccountsBaseURL is the OAuth endpoint for the region.
func (r Region) AccountsBaseURL() string {
	return fmt.Sprintf("https://accounts.zoho.%s", string(r))
}

// CRMBaseURL is the CRM API root for the region.
func (r Region) CRMBaseURL() string {
	return fmt.Sprintf("https://www.zohoapis.%s/crm/v8", string(r))
}

// BillingBaseURL is the Billing API root for the region.
func (r Region) BillingBaseURL() string {
	return fmt.Sprintf("https://www.zohoapis.%s/billing/v1", string(r))
}

// Config holds the ZOHO credentials and tenancy settings.
type Config struct {
	// Region is the data center, defaults to com
	Region Region
	// ClientID is the OAuth client ID
	ClientID string
	// ClientSecret is the OAuth client secret
	ClientSecret string
	// RefreshToken is the long-lived OAuth refresh token
	RefreshToken string
	// OrganizationID scopes all Billing calls
	OrganizationID string
	// TimeoutSeconds bounds each outbound HTTP call
	TimeoutSeconds int

	// AccountsURL, CRMURL and BillingURL override the regional endpoints
	// when set. Used for tests and API sandboxes.
	AccountsURL string
	CRMURL      string
	BillingURL  string
}

// AccountsEndpoint resolves the OAuth endpoint, honoring overrides.
func (c *Config) AccountsEndpoint() string {
	if c.AccountsURL != "" {
		return c.AccountsURL
	}
	return c.Region.AccountsBaseURL()
}

// CRMEndpoint resolves the CRM API root, honoring overrides.
func (c *Config) CRMEndpoint() string {
	if c.CRMURL != "" {
		return c.CRMURL
	}
	return c.Region.CRMBaseURL()
}

// BillingEndpoint resolves the Billing API root, honoring overrides.
func (c *Config) BillingEndpoint() string {
	if c.BillingURL != "" {
		return c.BillingURL
	}
	return c.Region.BillingBaseURL()
}

// Validate checks that credentials required at startup are present.
func (c *Config) Validate() error {
	if c.Region == "" {
		c.Region = RegionUS
	}
	if !c.Region.IsValid() {
		return fmt.Errorf("zoho: unknown region %q", c.Region)
	}
	if c.ClientID == "" {
		return errors.New("zoho: client ID is required")
	}
	if c.ClientSecret == "" {
		return errors.New("zoho: client secret is required")
	}
	if c.RefreshToken == "" {
		return errors.New("zoho: refresh token is required")
	}
	if c.OrganizationID == "" {
		return errors.New("zoho: organization ID is required")
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

package zoho

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	domainsync "github.com/circletel/backend/internal/domain/sync"
)

// APIError is a non-2xx response from a ZOHO API, parsed into the provider's
// error envelope where possible.
type APIError struct {
	// HTTPStatus is the response status code
	HTTPStatus int
	// Code is the provider error code ("INVALID_TOKEN", numeric codes on Billing)
	Code string
	// Message is the provider error message
	Message string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("zoho: api error %d (%s): %s", e.HTTPStatus, e.Code, e.Message)
	}
	return fmt.Sprintf("zoho: api error %d: %s", e.HTTPStatus, e.Message)
}

// Unwrap maps provider failures onto the domain sentinels so callers can use
// errors.Is without knowing the wire format.
func (e *APIError) Unwrap() error {
	switch {
	case e.HTTPStatus == http.StatusUnauthorized:
		return domainsync.ErrUnauthorized
	case e.isRateLimit():
		return domainsync.ErrRateLimited
	}
	return nil
}

func (e *APIError) isRateLimit() bool {
	if e.HTTPStatus == http.StatusTooManyRequests {
		return true
	}
	return isRateLimitSignature(e.Code, e.Message)
}

// isRateLimitSignature recognizes quota rejections that arrive without a 429.
// The substring check on the message is a compatibility shim for older
// gateway responses; the status and code checks are authoritative.
func isRateLimitSignature(code, message string) bool {
	if code == "4820" || strings.EqualFold(code, "TOO_MANY_REQUESTS") {
		return true
	}
	return strings.Contains(strings.ToLower(message), "too many requests")
}

// StatusCode implements sync.ProviderFailure
func (e *APIError) StatusCode() int {
	return e.HTTPStatus
}

// ErrorCode implements sync.ProviderFailure
func (e *APIError) ErrorCode() string {
	return e.Code
}

var _ domainsync.ProviderFailure = (*APIError)(nil)

// AsAPIError extracts an APIError if err carries one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

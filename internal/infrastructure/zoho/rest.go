package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// maxResponseSize bounds response bodies read from ZOHO APIs (10MB)
const maxResponseSize = 10 * 1024 * 1024

// restCore is the transport shared by the CRM and Billing clients: quota
// wait, auth header, JSON codec, typed errors and the single retry after the
// provider invalidates a token that looked valid locally.
type restCore struct {
	httpClient *http.Client
	limiter    *RateLimiter
	tokens     *TokenManager
	class      APIClass
	logger     *zap.Logger
}

type requestSpec struct {
	method string
	url    string
	query  map[string]string
	header map[string]string
	body   interface{}
}

// doJSON executes one API call. out may be nil when the response body is
// irrelevant. A 401 triggers exactly one forced token refresh and replay;
// a second rejection propagates.
func (c *restCore) doJSON(ctx context.Context, spec requestSpec, out interface{}) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	err = c.attempt(ctx, spec, token, out)
	if apiErr, ok := AsAPIError(err); ok && apiErr.HTTPStatus == http.StatusUnauthorized {
		c.logger.Warn("token rejected, forcing refresh", zap.String("url", spec.url))
		token, err = c.tokens.ForceRefresh(ctx)
		if err != nil {
			return err
		}
		return c.attempt(ctx, spec, token, out)
	}
	return err
}

func (c *restCore) attempt(ctx context.Context, spec requestSpec, token string, out interface{}) error {
	if err := c.limiter.WaitForSlot(ctx, c.class); err != nil {
		return err
	}

	var bodyReader io.Reader
	if spec.body != nil {
		encoded, err := json.Marshal(spec.body)
		if err != nil {
			return fmt.Errorf("zoho: encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, spec.method, spec.url, bodyReader)
	if err != nil {
		return fmt.Errorf("zoho: build request: %w", err)
	}

	q := req.URL.Query()
	for k, v := range spec.query {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	if spec.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range spec.header {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("zoho: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("zoho: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("zoho: parse response: %w", err)
		}
	}
	return nil
}

// flexCode accepts both error code shapes: CRM sends strings
// ("INVALID_TOKEN"), Billing sends numbers (4820).
type flexCode string

func (c *flexCode) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*c = flexCode(asString)
		return nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err != nil {
		return err
	}
	*c = flexCode(asNumber.String())
	return nil
}

// errorEnvelope covers both API error shapes: CRM returns a data array with
// per-record codes, Billing returns a top-level code and message.
type errorEnvelope struct {
	Code    flexCode `json:"code"`
	Message string   `json:"message"`
	Data    []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"data"`
}

func parseAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{HTTPStatus: status, Message: string(raw)}

	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if envelope.Code != "" && envelope.Code != "0" {
			apiErr.Code = string(envelope.Code)
		}
		if envelope.Message != "" {
			apiErr.Message = envelope.Message
		}
		if len(envelope.Data) > 0 && envelope.Data[0].Code != "" {
			apiErr.Code = envelope.Data[0].Code
			if envelope.Data[0].Message != "" {
				apiErr.Message = envelope.Data[0].Message
			}
		}
	}
	return apiErr
}

package zoho

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// expiryBuffer is subtracted from the provider TTL so a token is refreshed
// before it can expire mid-request.
const expiryBuffer = 5 * time.Minute

// refreshCooldown is how long refreshes are suspended after the OAuth
// endpoint rejects us for quota reasons.
const refreshCooldown = 5 * time.Minute

// Token is a cached access token with its hard expiry.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid reports whether the token is usable beyond the expiry buffer.
func (t Token) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt.Add(-expiryBuffer))
}

// TokenStore persists tokens across process restarts. Implementations must
// tolerate concurrent use; failures are treated as cache misses.
type TokenStore interface {
	// Load returns the stored token, ok=false when none is stored
	Load(ctx context.Context) (Token, bool, error)

	// Store saves the token with a TTL matching its expiry
	Store(ctx context.Context, token Token) error
}

// TokenManager caches the OAuth access token and refreshes it through the
// refresh-token grant. Concurrent callers share a single in-flight refresh.
type TokenManager struct {
	cfg        *Config
	limiter    *RateLimiter
	store      TokenStore
	httpClient *http.Client
	logger     *zap.Logger

	group singleflight.Group

	mu            sync.Mutex
	cached        Token
	cooldownUntil time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewTokenManager creates a token manager. store may be nil, in which case
// tokens live only in process memory.
func NewTokenManager(cfg *Config, limiter *RateLimiter, store TokenStore, logger *zap.Logger) *TokenManager {
	return &TokenManager{
		cfg:     cfg,
		limiter: limiter,
		store:   store,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		logger: logger.Named("zoho.token"),
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// AccessToken returns a valid access token, refreshing if needed.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	now := m.now()

	m.mu.Lock()
	cached := m.cached
	m.mu.Unlock()
	if cached.Valid(now) {
		return cached.AccessToken, nil
	}

	if token, ok := m.loadStored(ctx, now); ok {
		return token.AccessToken, nil
	}

	return m.refresh(ctx, false)
}

// ForceRefresh discards the cached token and fetches a fresh one. Used after
// the provider rejects a token that looked valid locally.
func (m *TokenManager) ForceRefresh(ctx context.Context) (string, error) {
	return m.refresh(ctx, true)
}

func (m *TokenManager) loadStored(ctx context.Context, now time.Time) (Token, bool) {
	if m.store == nil {
		return Token{}, false
	}
	token, ok, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("token store load failed", zap.Error(err))
		return Token{}, false
	}
	if !ok || !token.Valid(now) {
		return Token{}, false
	}
	m.mu.Lock()
	m.cached = token
	m.mu.Unlock()
	return token, true
}

// refresh funnels all callers through one singleflight slot so at most one
// refresh-token grant is in flight per process.
func (m *TokenManager) refresh(ctx context.Context, force bool) (string, error) {
	v, err, _ := m.group.Do("refresh", func() (interface{}, error) {
		now := m.now()

		if !force {
			// A late joiner may find the token already refreshed.
			m.mu.Lock()
			cached := m.cached
			m.mu.Unlock()
			if cached.Valid(now) {
				return cached.AccessToken, nil
			}
		}

		if err := m.waitCooldown(ctx, now); err != nil {
			return nil, err
		}

		token, err := m.exchange(ctx)
		if err != nil {
			if apiErr, ok := AsAPIError(err); ok && apiErr.isRateLimit() {
				m.startCooldown()
				return nil, fmt.Errorf("zoho: token refresh rate limited, cooling down: %w", err)
			}
			return nil, err
		}

		m.mu.Lock()
		m.cached = token
		m.mu.Unlock()

		if m.store != nil {
			if storeErr := m.store.Store(ctx, token); storeErr != nil {
				m.logger.Warn("token store save failed", zap.Error(storeErr))
			}
		}

		m.logger.Info("access token refreshed", zap.Time("expires_at", token.ExpiresAt))
		return token.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *TokenManager) waitCooldown(ctx context.Context, now time.Time) error {
	m.mu.Lock()
	until := m.cooldownUntil
	m.mu.Unlock()

	if remaining := until.Sub(now); remaining > 0 {
		m.logger.Warn("refresh in cooldown, waiting", zap.Duration("remaining", remaining))
		return m.sleep(ctx, remaining)
	}
	return nil
}

func (m *TokenManager) startCooldown() {
	m.mu.Lock()
	m.cooldownUntil = m.now().Add(refreshCooldown)
	m.mu.Unlock()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

// exchange performs the refresh-token grant against the regional accounts
// endpoint, counted against the oauth quota class.
func (m *TokenManager) exchange(ctx context.Context) (Token, error) {
	if err := m.limiter.WaitForSlot(ctx, ClassOAuth); err != nil {
		return Token{}, err
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {m.cfg.ClientID},
		"client_secret": {m.cfg.ClientSecret},
		"refresh_token": {m.cfg.RefreshToken},
	}

	endpoint := m.cfg.AccountsEndpoint() + "/oauth/v2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("zoho: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("zoho: token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Token{}, fmt.Errorf("zoho: read token response: %w", err)
	}

	var parsed tokenResponse
	if jsonErr := json.Unmarshal(body, &parsed); jsonErr != nil && resp.StatusCode < 300 {
		return Token{}, fmt.Errorf("zoho: parse token response: %w", jsonErr)
	}

	if resp.StatusCode >= 300 || parsed.Error != "" || parsed.AccessToken == "" {
		return Token{}, &APIError{
			HTTPStatus: resp.StatusCode,
			Code:       parsed.Error,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	return Token{
		AccessToken: parsed.AccessToken,
		ExpiresAt:   m.now().Add(time.Duration(parsed.ExpiresIn) * time.Second),
	}, nil
}

// ---------------------------------------------------------------------------
// In-memory TokenStore
// ---------------------------------------------------------------------------

// MemoryTokenStore keeps the token in process memory. Used when no shared
// store is configured.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token Token
	set   bool
}

// NewMemoryTokenStore creates an empty in-memory store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Load returns the stored token
func (s *MemoryTokenStore) Load(_ context.Context) (Token, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.set, nil
}

// Store saves the token
func (s *MemoryTokenStore) Store(_ context.Context, token Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.set = true
	return nil
}

var _ TokenStore = (*MemoryTokenStore)(nil)

package zoho

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(accountsURL string) *Config {
	return &Config{
		Region:         RegionUS,
		ClientID:       "client-id",
		ClientSecret:   "client-secret",
		RefreshToken:   "refresh-token",
		OrganizationID: "org-1",
		TimeoutSeconds: 5,
		AccountsURL:    accountsURL,
	}
}

func unlimitedLimiter() *RateLimiter {
	return NewRateLimiter(map[APIClass]ClassLimit{})
}

func TestTokenManager_RefreshAndCache(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "client-id", r.Form.Get("client_id"))
		assert.Equal(t, "refresh-token", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"token-1","expires_in":3600}`))
	}))
	defer server.Close()

	manager := NewTokenManager(testConfig(server.URL), unlimitedLimiter(), nil, zap.NewNop())

	token, err := manager.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	// Second call is served from cache.
	token, err = manager.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTokenManager_ExpiryBufferForcesRefresh(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		// 4 minutes is inside the 5 minute buffer, so every call refreshes.
		_, _ = w.Write([]byte(`{"access_token":"short-lived","expires_in":240}`))
	}))
	defer server.Close()

	manager := NewTokenManager(testConfig(server.URL), unlimitedLimiter(), nil, zap.NewNop())

	_, err := manager.AccessToken(context.Background())
	require.NoError(t, err)
	_, err = manager.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "token inside the buffer is not reused")
}

func TestTokenManager_SingleFlight(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		_, _ = w.Write([]byte(`{"access_token":"token-1","expires_in":3600}`))
	}))
	defer server.Close()

	manager := NewTokenManager(testConfig(server.URL), unlimitedLimiter(), nil, zap.NewNop())

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := manager.AccessToken(context.Background())
			assert.NoError(t, err)
			results[i] = token
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "concurrent callers share one refresh")
	for _, token := range results {
		assert.Equal(t, "token-1", token)
	}
}

func TestTokenManager_RateLimitStartsCooldown(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Access Denied: too many requests"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"token-2","expires_in":3600}`))
	}))
	defer server.Close()

	manager := NewTokenManager(testConfig(server.URL), unlimitedLimiter(), nil, zap.NewNop())

	fixed := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return fixed }

	var slept time.Duration
	manager.sleep = func(_ context.Context, d time.Duration) error {
		slept += d
		return nil
	}

	_, err := manager.AccessToken(context.Background())
	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.HTTPStatus)

	// The next refresh waits out the cooldown before calling again.
	token, err := manager.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)
	assert.Equal(t, refreshCooldown, slept)
}

func TestTokenManager_NonRateLimitFailurePropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer server.Close()

	manager := NewTokenManager(testConfig(server.URL), unlimitedLimiter(), nil, zap.NewNop())

	var slept time.Duration
	manager.sleep = func(_ context.Context, d time.Duration) error {
		slept += d
		return nil
	}

	_, err := manager.AccessToken(context.Background())
	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid_client", apiErr.Code)
	assert.Zero(t, slept, "auth failures do not start a cooldown")
}

func TestTokenManager_StoreHit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("refresh endpoint must not be called when the store has a valid token")
	}))
	defer server.Close()

	store := NewMemoryTokenStore()
	require.NoError(t, store.Store(context.Background(), Token{
		AccessToken: "stored-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	manager := NewTokenManager(testConfig(server.URL), unlimitedLimiter(), store, zap.NewNop())

	token, err := manager.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stored-token", token)
}

func TestIsRateLimitSignature(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		message string
		want    bool
	}{
		{name: "billing quota code", code: "4820", want: true},
		{name: "named code", code: "TOO_MANY_REQUESTS", want: true},
		{name: "legacy message shim", message: "You have made Too Many Requests", want: true},
		{name: "unrelated error", code: "INVALID_DATA", message: "bad field", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRateLimitSignature(tt.code, tt.message))
		})
	}
}

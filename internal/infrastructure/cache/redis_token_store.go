package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/circletel/backend/internal/infrastructure/zoho"
)

// RedisTokenStore implements zoho.TokenStore using Redis
// This is suitable for distributed deployments where multiple instances
// need to share one access token and one refresh budget
type RedisTokenStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisTokenStore creates a new Redis-based token store
func NewRedisTokenStore(cfg RedisConfig) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisTokenStore{
		client:    client,
		keyPrefix: "zoho:token:",
	}, nil
}

// NewRedisTokenStoreWithClient creates a store with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisTokenStoreWithClient(client *redis.Client, keyPrefix string) *RedisTokenStore {
	if keyPrefix == "" {
		keyPrefix = "zoho:token:"
	}
	return &RedisTokenStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Load returns the stored token, ok=false when none is stored or the payload
// cannot be decoded
func (s *RedisTokenStore) Load(ctx context.Context) (zoho.Token, bool, error) {
	raw, err := s.client.Get(ctx, s.keyPrefix+"access").Result()
	if err == redis.Nil {
		return zoho.Token{}, false, nil
	}
	if err != nil {
		return zoho.Token{}, false, fmt.Errorf("failed to load token: %w", err)
	}

	var token zoho.Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return zoho.Token{}, false, fmt.Errorf("failed to decode stored token: %w", err)
	}
	return token, true, nil
}

// Store saves the token with a TTL matching its expiry so Redis drops it
// on its own once it can no longer be used
func (s *RedisTokenStore) Store(ctx context.Context, token zoho.Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := s.client.Set(ctx, s.keyPrefix+"access", raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisTokenStore) GetClient() *redis.Client {
	return s.client
}

// Ensure RedisTokenStore implements zoho.TokenStore
var _ zoho.TokenStore = (*RedisTokenStore)(nil)

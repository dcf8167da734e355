package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/circletel/backend/internal/infrastructure/config"
	"github.com/circletel/backend/internal/infrastructure/zoho"
)

// TokenStoreFactory creates token stores based on configuration
type TokenStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// TokenStoreFactoryOption is a functional option for configuring the factory
type TokenStoreFactoryOption func(*TokenStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) TokenStoreFactoryOption {
	return func(f *TokenStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory store
// when Redis is unavailable. Default is true (allow fallback)
func WithInMemoryFallback(allow bool) TokenStoreFactoryOption {
	return func(f *TokenStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewTokenStoreFactory creates a new factory
func NewTokenStoreFactory(cfg config.RedisConfig, opts ...TokenStoreFactoryOption) *TokenStoreFactory {
	f := &TokenStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore creates a Redis-based token store
func (f *TokenStoreFactory) CreateRedisStore() (zoho.TokenStore, error) {
	store, err := NewRedisTokenStore(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis token store: %w", err)
	}

	return store, nil
}

// CreateStore creates a token store based on whether Redis is available.
// It tries Redis first and falls back to an in-memory store when Redis is
// not available and AllowInMemoryFallback is true.
//
// WARNING: in-memory stores do not share the token across process instances,
// so every instance burns its own refresh against the OAuth quota.
func (f *TokenStoreFactory) CreateStore() (zoho.TokenStore, error) {
	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("using Redis token store")
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for token sharing but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory token store. "+
		"Each instance will refresh tokens independently against the OAuth quota.",
		zap.Error(err),
	)
	return zoho.NewMemoryTokenStore(), nil
}

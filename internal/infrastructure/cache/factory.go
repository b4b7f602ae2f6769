package cache

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	apppossync "github.com/posledger/backend/internal/application/possync"
	"github.com/posledger/backend/internal/infrastructure/config"
)

// TenantLeaseFactory creates tenant lease stores based on configuration
type TenantLeaseFactory struct {
	redisConfig           config.RedisConfig
	ttl                   time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// TenantLeaseFactoryOption is a functional option for configuring the factory
type TenantLeaseFactoryOption func(*TenantLeaseFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) TenantLeaseFactoryOption {
	return func(f *TenantLeaseFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory store
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) TenantLeaseFactoryOption {
	return func(f *TenantLeaseFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewTenantLeaseFactory creates a new factory
func NewTenantLeaseFactory(cfg config.RedisConfig, ttl time.Duration, opts ...TenantLeaseFactoryOption) *TenantLeaseFactory {
	f := &TenantLeaseFactory{
		redisConfig:           cfg,
		ttl:                   ttl,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore creates a Redis-based tenant lease store
func (f *TenantLeaseFactory) CreateRedisStore() (apppossync.TenantLocker, error) {
	redisCfg := RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}

	store, err := NewRedisTenantLeaseStore(redisCfg, f.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis tenant lease store: %w", err)
	}

	return store, nil
}

// CreateInMemoryStore creates an in-memory tenant lease store.
// WARNING: in-memory leases do not serialize tenants across process
// instances, which can lead to overlapping syncs in distributed deployments.
func (f *TenantLeaseFactory) CreateInMemoryStore() apppossync.TenantLocker {
	return NewInMemoryTenantLeaseStore(f.ttl)
}

// CreateStore tries to create a Redis store first and falls back to
// in-memory when Redis is unavailable and fallback is allowed.
func (f *TenantLeaseFactory) CreateStore() (apppossync.TenantLocker, error) {
	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("using Redis tenant lease store")
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for tenant leases but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory tenant lease store. "+
		"Overlapping tenant syncs are possible in distributed deployments.",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}

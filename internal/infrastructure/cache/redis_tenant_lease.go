package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apppossync "github.com/posledger/backend/internal/application/possync"
)

// RedisTenantLeaseStore implements TenantLocker using Redis. It is suitable
// for distributed deployments where multiple instances must not sync the
// same tenant concurrently.
type RedisTenantLeaseStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisTenantLeaseStore creates a new Redis-based tenant lease store
func NewRedisTenantLeaseStore(cfg RedisConfig, ttl time.Duration) (*RedisTenantLeaseStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisTenantLeaseStoreWithClient(client, "", ttl), nil
}

// NewRedisTenantLeaseStoreWithClient creates a store with an existing Redis
// client. Useful for testing or when sharing a client across components.
func NewRedisTenantLeaseStoreWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisTenantLeaseStore {
	if keyPrefix == "" {
		keyPrefix = "possync:lease:"
	}
	return &RedisTenantLeaseStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// TryAcquire takes the tenant's lease without blocking. Uses SETNX with a
// TTL so a crashed holder cannot block the tenant forever.
func (s *RedisTenantLeaseStore) TryAcquire(ctx context.Context, tenantID uuid.UUID) (func(), bool, error) {
	key := s.keyPrefix + tenantID.String()
	token := uuid.NewString()

	acquired, err := s.client.SetNX(ctx, key, token, s.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire tenant lease: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}

	release := func() {
		// Only delete the lease if we still hold it; an expired lease may
		// already belong to another run.
		releaseScript.Run(context.Background(), s.client, []string{key}, token)
	}
	return release, true, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Close closes the Redis client
func (s *RedisTenantLeaseStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisTenantLeaseStore) GetClient() *redis.Client {
	return s.client
}

// Ensure RedisTenantLeaseStore implements TenantLocker
var _ apppossync.TenantLocker = (*RedisTenantLeaseStore)(nil)

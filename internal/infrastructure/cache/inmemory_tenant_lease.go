package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apppossync "github.com/posledger/backend/internal/application/possync"
)

// lease represents a held tenant lease with expiration
type lease struct {
	token     string
	expiresAt time.Time
}

// InMemoryTenantLeaseStore implements TenantLocker using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryTenantLeaseStore struct {
	mu     sync.Mutex
	leases map[uuid.UUID]lease
	ttl    time.Duration
}

// NewInMemoryTenantLeaseStore creates a new in-memory tenant lease store
func NewInMemoryTenantLeaseStore(ttl time.Duration) *InMemoryTenantLeaseStore {
	return &InMemoryTenantLeaseStore{
		leases: make(map[uuid.UUID]lease),
		ttl:    ttl,
	}
}

// TryAcquire takes the tenant's lease without blocking
func (s *InMemoryTenantLeaseStore) TryAcquire(_ context.Context, tenantID uuid.UUID) (func(), bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, held := s.leases[tenantID]; held && time.Now().Before(l.expiresAt) {
		return nil, false, nil
	}

	token := uuid.NewString()
	s.leases[tenantID] = lease{
		token:     token,
		expiresAt: time.Now().Add(s.ttl),
	}

	release := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// Only delete the lease if this run still holds it
		if l, held := s.leases[tenantID]; held && l.token == token {
			delete(s.leases, tenantID)
		}
	}
	return release, true, nil
}

// Size returns the number of held leases (for testing/monitoring)
func (s *InMemoryTenantLeaseStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leases)
}

// Ensure InMemoryTenantLeaseStore implements TenantLocker
var _ apppossync.TenantLocker = (*InMemoryTenantLeaseStore)(nil)

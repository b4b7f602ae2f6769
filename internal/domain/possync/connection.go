package possync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// POS Systems
// ---------------------------------------------------------------------------

// POSSystem identifies an external point-of-sale platform
type POSSystem string

const (
	POSSystemSquare  POSSystem = "SQUARE"
	POSSystemClover  POSSystem = "CLOVER"
	POSSystemToast   POSSystem = "TOAST"
	POSSystemGeneric POSSystem = "GENERIC"
)

// IsValid returns true if the POS system code is recognized
func (p POSSystem) IsValid() bool {
	switch p {
	case POSSystemSquare, POSSystemClover, POSSystemToast, POSSystemGeneric:
		return true
	default:
		return false
	}
}

// String returns the string representation of the POS system code
func (p POSSystem) String() string {
	return string(p)
}

// ---------------------------------------------------------------------------
// POSConnection
// ---------------------------------------------------------------------------

// ConnectionStatus represents the lifecycle state of a tenant-POS connection
type ConnectionStatus string

const (
	ConnectionStatusActive   ConnectionStatus = "ACTIVE"
	ConnectionStatusInactive ConnectionStatus = "INACTIVE"
)

// POSConnection is one tenant's link to an external POS system. It carries
// the ambient sync state: the last time a full pipeline run succeeded.
//
// LastSyncTime is advanced only by the orchestrator after a run fully
// succeeds (write-after-success). A crashed run leaves it stale, which makes
// the next resolved window re-cover everything the crashed run touched.
type POSConnection struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	System         POSSystem
	ExternalHandle string
	LastSyncTime   *time.Time
	Status         ConnectionStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewPOSConnection creates an active connection with no sync history
func NewPOSConnection(tenantID uuid.UUID, system POSSystem, externalHandle string) *POSConnection {
	now := time.Now()
	return &POSConnection{
		ID:             uuid.New(),
		TenantID:       tenantID,
		System:         system,
		ExternalHandle: externalHandle,
		Status:         ConnectionStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsActive returns true if the connection participates in scheduled syncs
func (c *POSConnection) IsActive() bool {
	return c.Status == ConnectionStatusActive
}

// Disable takes the connection out of the scheduled rotation
func (c *POSConnection) Disable() {
	c.Status = ConnectionStatusInactive
	c.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// ConnectionRepository
// ---------------------------------------------------------------------------

// ConnectionRepository persists tenant-POS connections
type ConnectionRepository interface {
	// FindByTenant finds a connection for a tenant and POS system.
	// Returns ErrConnectionNotFound when none exists.
	FindByTenant(ctx context.Context, tenantID uuid.UUID, system POSSystem) (*POSConnection, error)

	// FindAllActive returns every connection with status ACTIVE
	FindAllActive(ctx context.Context) ([]POSConnection, error)

	// Save creates or updates a connection
	Save(ctx context.Context, conn *POSConnection) error

	// MarkSynced advances last_sync_time. Called only after the tenant's
	// whole pipeline (sync, categorization, aggregation) has committed.
	MarkSynced(ctx context.Context, tenantID uuid.UUID, system POSSystem, at time.Time) error
}

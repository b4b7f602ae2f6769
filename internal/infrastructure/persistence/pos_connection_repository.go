package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/posledger/backend/internal/domain/possync"
	"github.com/posledger/backend/internal/infrastructure/persistence/models"
)

// GormPOSConnectionRepository implements ConnectionRepository using GORM
type GormPOSConnectionRepository struct {
	db *gorm.DB
}

// NewGormPOSConnectionRepository creates a new GormPOSConnectionRepository
func NewGormPOSConnectionRepository(db *gorm.DB) *GormPOSConnectionRepository {
	return &GormPOSConnectionRepository{db: db}
}

// FindByTenant finds the connection for a tenant and POS system
func (r *GormPOSConnectionRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, system possync.POSSystem) (*possync.POSConnection, error) {
	var model models.POSConnectionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND system = ?", tenantID, system.String()).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, possync.ErrConnectionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllActive returns every active connection ordered by tenant
func (r *GormPOSConnectionRepository) FindAllActive(ctx context.Context) ([]possync.POSConnection, error) {
	var rows []models.POSConnectionModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(possync.ConnectionStatusActive)).
		Order("tenant_id ASC, system ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	conns := make([]possync.POSConnection, len(rows))
	for i := range rows {
		conns[i] = *rows[i].ToDomain()
	}
	return conns, nil
}

// Save creates or updates a connection
func (r *GormPOSConnectionRepository) Save(ctx context.Context, conn *possync.POSConnection) error {
	var model models.POSConnectionModel
	model.FromDomain(conn)
	return r.db.WithContext(ctx).Save(&model).Error
}

// MarkSynced advances last_sync_time for the connection. The caller stamps
// the run's start time, never its completion time, so the next incremental
// window covers everything written while the run was in flight.
func (r *GormPOSConnectionRepository) MarkSynced(ctx context.Context, tenantID uuid.UUID, system possync.POSSystem, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.POSConnectionModel{}).
		Where("tenant_id = ? AND system = ?", tenantID, system.String()).
		Updates(map[string]interface{}{
			"last_sync_time": at,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return possync.ErrConnectionNotFound
	}
	return nil
}

// Ensure GormPOSConnectionRepository implements ConnectionRepository
var _ possync.ConnectionRepository = (*GormPOSConnectionRepository)(nil)

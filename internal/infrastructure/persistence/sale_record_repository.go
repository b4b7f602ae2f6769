package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/posledger/backend/internal/domain/possync"
	"github.com/posledger/backend/internal/infrastructure/persistence/models"
)

const insertBatchSize = 500

// GormSaleRecordRepository implements SaleRecordRepository using GORM
type GormSaleRecordRepository struct {
	db *gorm.DB
}

// NewGormSaleRecordRepository creates a new GormSaleRecordRepository
func NewGormSaleRecordRepository(db *gorm.DB) *GormSaleRecordRepository {
	return &GormSaleRecordRepository{db: db}
}

// ReplaceWindow atomically swaps the ledger rows for one tenant, system and
// window. Delete and insert run in one transaction so readers never observe
// a partially synced window. A nil window replaces the tenant's full history.
func (r *GormSaleRecordRepository) ReplaceWindow(ctx context.Context, tenantID uuid.UUID, system possync.POSSystem, window *possync.SyncWindow, records []possync.SaleRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("tenant_id = ? AND system = ?", tenantID, system.String())
		if window != nil {
			del = del.Where("sale_date BETWEEN ? AND ?", window.StartDate, window.EndDate)
		}
		if err := del.Delete(&models.SaleRecordModel{}).Error; err != nil {
			return err
		}

		if len(records) == 0 {
			return nil
		}

		rows := make([]models.SaleRecordModel, len(records))
		now := time.Now().UTC()
		for i := range records {
			rows[i].FromDomain(&records[i])
			rows[i].CreatedAt = now
		}
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
}

// FindByDate returns all ledger rows for one tenant and calendar date
func (r *GormSaleRecordRepository) FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) ([]possync.SaleRecord, error) {
	var rows []models.SaleRecordModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sale_date = ?", tenantID, possync.DateOf(date)).
		Order("sale_time ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainRecords(rows), nil
}

// FindByIDs returns the ledger rows with the given ids, scoped to the tenant
func (r *GormSaleRecordRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]possync.SaleRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []models.SaleRecordModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainRecords(rows), nil
}

// ApplySuggestions writes category suggestions in one transaction. Rows with
// an approved category are left untouched.
func (r *GormSaleRecordRepository) ApplySuggestions(ctx context.Context, tenantID uuid.UUID, suggestions map[uuid.UUID]string) error {
	if len(suggestions) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, category := range suggestions {
			if err := tx.Model(&models.SaleRecordModel{}).
				Where("tenant_id = ? AND id = ? AND approved_category = ''", tenantID, id).
				Updates(map[string]interface{}{
					"suggested_category": category,
					"categorized":        true,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func toDomainRecords(rows []models.SaleRecordModel) []possync.SaleRecord {
	records := make([]possync.SaleRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return records
}

// Ensure GormSaleRecordRepository implements SaleRecordRepository
var _ possync.SaleRecordRepository = (*GormSaleRecordRepository)(nil)

package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/posledger/backend/internal/domain/possync"
	"github.com/posledger/backend/internal/domain/shared"
	"github.com/posledger/backend/internal/infrastructure/persistence/models"
)

// GormDailyAggregateRepository implements DailyAggregateRepository using GORM
type GormDailyAggregateRepository struct {
	db *gorm.DB
}

// NewGormDailyAggregateRepository creates a new GormDailyAggregateRepository
func NewGormDailyAggregateRepository(db *gorm.DB) *GormDailyAggregateRepository {
	return &GormDailyAggregateRepository{db: db}
}

// Upsert writes the aggregate, replacing any existing row for (tenant, date)
func (r *GormDailyAggregateRepository) Upsert(ctx context.Context, agg *possync.DailyAggregate) error {
	var model models.DailyAggregateModel
	model.FromDomain(agg)

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"gross_sales", "discounts", "voids", "net_sales", "tax", "tips", "computed_at",
			}),
		}).
		Create(&model).Error
}

// FindByDate returns the aggregate for one tenant and calendar date
func (r *GormDailyAggregateRepository) FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (*possync.DailyAggregate, error) {
	var model models.DailyAggregateModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND date = ?", tenantID, possync.DateOf(date)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRange returns aggregates for the inclusive date range ordered by date
func (r *GormDailyAggregateRepository) FindRange(ctx context.Context, tenantID uuid.UUID, startDate, endDate time.Time) ([]possync.DailyAggregate, error) {
	var rows []models.DailyAggregateModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND date BETWEEN ? AND ?", tenantID, possync.DateOf(startDate), possync.DateOf(endDate)).
		Order("date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	aggs := make([]possync.DailyAggregate, len(rows))
	for i := range rows {
		aggs[i] = *rows[i].ToDomain()
	}
	return aggs, nil
}

// Ensure GormDailyAggregateRepository implements DailyAggregateRepository
var _ possync.DailyAggregateRepository = (*GormDailyAggregateRepository)(nil)

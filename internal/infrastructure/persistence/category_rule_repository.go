package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/posledger/backend/internal/domain/possync"
	"github.com/posledger/backend/internal/infrastructure/persistence/models"
)

// GormCategoryRuleRepository implements CategoryRuleRepository using GORM
type GormCategoryRuleRepository struct {
	db *gorm.DB
}

// NewGormCategoryRuleRepository creates a new GormCategoryRuleRepository
func NewGormCategoryRuleRepository(db *gorm.DB) *GormCategoryRuleRepository {
	return &GormCategoryRuleRepository{db: db}
}

// FindForTenant returns the tenant's rules ordered by priority. Ties break
// on keyword so suggestion results stay deterministic across runs.
func (r *GormCategoryRuleRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID) ([]possync.CategoryRule, error) {
	var rows []models.CategoryRuleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("priority ASC, keyword ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	rules := make([]possync.CategoryRule, len(rows))
	for i := range rows {
		rules[i] = rows[i].ToDomain()
	}
	return rules, nil
}

// Save creates or updates a rule
func (r *GormCategoryRuleRepository) Save(ctx context.Context, rule *possync.CategoryRule) error {
	var model models.CategoryRuleModel
	model.FromDomain(rule)
	return r.db.WithContext(ctx).Save(&model).Error
}

// SaveBatch inserts a set of rules in one transaction
func (r *GormCategoryRuleRepository) SaveBatch(ctx context.Context, rules []possync.CategoryRule) error {
	if len(rules) == 0 {
		return nil
	}
	rows := make([]models.CategoryRuleModel, len(rules))
	for i := range rules {
		rows[i].FromDomain(&rules[i])
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// ReplaceForTenant swaps the tenant's rule set atomically. Used by CSV
// imports in replace mode so a failed insert never leaves the tenant
// without rules.
func (r *GormCategoryRuleRepository) ReplaceForTenant(ctx context.Context, tenantID uuid.UUID, rules []possync.CategoryRule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.CategoryRuleModel{}, "tenant_id = ?", tenantID).Error; err != nil {
			return err
		}
		if len(rules) == 0 {
			return nil
		}
		rows := make([]models.CategoryRuleModel, len(rules))
		for i := range rules {
			rows[i].FromDomain(&rules[i])
		}
		return tx.Create(&rows).Error
	})
}

// Delete removes a rule
func (r *GormCategoryRuleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&models.CategoryRuleModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// Ensure GormCategoryRuleRepository implements CategoryRuleRepository
var _ possync.CategoryRuleRepository = (*GormCategoryRuleRepository)(nil)

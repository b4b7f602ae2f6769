package possync

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posledger/backend/internal/domain/possync"
)

// CategorizationService assigns category suggestions to newly written ledger
// rows in one batch pass. It replaces per-row insert triggers: the executor
// writes rows uncategorized, then this runs exactly once per sync.
//
// The pass is idempotent and order-independent: suggestions are a pure
// function of (rules, row), and rows carrying an approved category are never
// overwritten.
type CategorizationService struct {
	rules  possync.CategoryRuleRepository
	ledger possync.SaleRecordRepository
	logger *zap.Logger
}

// NewCategorizationService creates a categorization batch applier
func NewCategorizationService(
	rules possync.CategoryRuleRepository,
	ledger possync.SaleRecordRepository,
	logger *zap.Logger,
) *CategorizationService {
	return &CategorizationService{
		rules:  rules,
		ledger: ledger,
		logger: logger,
	}
}

// Apply suggests categories for the given ledger row ids. Returns the number
// of rows that received a suggestion.
func (s *CategorizationService) Apply(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	rules, err := s.rules.FindForTenant(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	if len(rules) == 0 {
		return 0, nil
	}

	records, err := s.ledger.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return 0, err
	}

	suggestions := make(map[uuid.UUID]string)
	for i := range records {
		rec := &records[i]
		if rec.ApprovedCategory != "" {
			continue
		}
		if category, ok := possync.SuggestCategory(rules, rec); ok {
			suggestions[rec.ID] = category
		}
	}

	if len(suggestions) == 0 {
		return 0, nil
	}

	if err := s.ledger.ApplySuggestions(ctx, tenantID, suggestions); err != nil {
		return 0, err
	}

	s.logger.Debug("Category suggestions applied",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("rows_considered", len(records)),
		zap.Int("rows_suggested", len(suggestions)),
	)

	return len(suggestions), nil
}

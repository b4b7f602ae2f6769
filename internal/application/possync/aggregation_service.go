package possync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posledger/backend/internal/domain/possync"
)

// AggregationService recomputes daily aggregates from current ledger state.
// It runs strictly after the executor's transaction and the categorization
// batch have committed, so it always reads fully replaced windows.
type AggregationService struct {
	ledger     possync.SaleRecordRepository
	aggregates possync.DailyAggregateRepository
	logger     *zap.Logger
}

// NewAggregationService creates an aggregation engine
func NewAggregationService(
	ledger possync.SaleRecordRepository,
	aggregates possync.DailyAggregateRepository,
	logger *zap.Logger,
) *AggregationService {
	return &AggregationService{
		ledger:     ledger,
		aggregates: aggregates,
		logger:     logger,
	}
}

// RecomputeDates rebuilds the aggregate for every given date from scratch.
// A failure on one date is recorded and the remaining dates still run; the
// joined error carries every per-date failure.
func (s *AggregationService) RecomputeDates(ctx context.Context, tenantID uuid.UUID, dates []time.Time) error {
	var errs []error
	for _, date := range dates {
		if err := s.recomputeDate(ctx, tenantID, date); err != nil {
			errs = append(errs, fmt.Errorf("date %s: %w", date.Format("2006-01-02"), err))
			s.logger.Error("Daily aggregate recompute failed",
				zap.String("tenant_id", tenantID.String()),
				zap.String("date", date.Format("2006-01-02")),
				zap.Error(err),
			)
		}
	}
	return errors.Join(errs...)
}

// recomputeDate rebuilds one (tenant, date) aggregate from the ledger
func (s *AggregationService) recomputeDate(ctx context.Context, tenantID uuid.UUID, date time.Time) error {
	records, err := s.ledger.FindByDate(ctx, tenantID, date)
	if err != nil {
		return err
	}

	agg, err := possync.BuildDailyAggregate(tenantID, date, records)
	if err != nil {
		return err
	}
	if !agg.Reconciles() {
		return fmt.Errorf("%w: net %s does not reconcile", possync.ErrAggregationMismatch, agg.NetSales)
	}

	return s.aggregates.Upsert(ctx, agg)
}

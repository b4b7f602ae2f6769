package possync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posledger/backend/internal/domain/possync"
)

// defaultPageSize is the raw-order page size requested from POS gateways
const defaultPageSize = 100

// SyncOutcome reports what a sync execution wrote
type SyncOutcome struct {
	// RowsWritten is the number of ledger rows inserted
	RowsWritten int
	// SkippedRows counts raw rows dropped by per-row transform failures
	SkippedRows int
	// WrittenIDs are the ids of the newly written ledger rows, in insert
	// order; the categorization batch applier consumes them.
	WrittenIDs []uuid.UUID
	// DatesTouched are the sale dates whose ledger state may have changed;
	// the aggregation engine recomputes exactly these.
	DatesTouched []time.Time
}

// SyncService runs sync executions against the unified sales ledger. The
// scoped and full entry points share one execution path; the only difference
// is the window value (nil = all history).
type SyncService struct {
	connections possync.ConnectionRepository
	ledger      possync.SaleRecordRepository
	gateways    possync.POSGatewayRegistry
	pageSize    int
	logger      *zap.Logger
}

// NewSyncService creates a sync service
func NewSyncService(
	connections possync.ConnectionRepository,
	ledger possync.SaleRecordRepository,
	gateways possync.POSGatewayRegistry,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		connections: connections,
		ledger:      ledger,
		gateways:    gateways,
		pageSize:    defaultPageSize,
		logger:      logger,
	}
}

// ScopedSync replaces the ledger rows for one tenant inside an inclusive
// date window. The whole window's delete+insert commits atomically or not at
// all.
func (s *SyncService) ScopedSync(ctx context.Context, tenantID uuid.UUID, system possync.POSSystem, window possync.SyncWindow) (*SyncOutcome, error) {
	conn, err := s.connections.FindByTenant(ctx, tenantID, system)
	if err != nil {
		return nil, err
	}
	return s.executeSync(ctx, conn, &window)
}

// FullResync replaces the tenant's entire ledger history. Administrative
// repair path only; the scheduled driver never reaches it.
func (s *SyncService) FullResync(ctx context.Context, tenantID uuid.UUID, system possync.POSSystem) (*SyncOutcome, error) {
	conn, err := s.connections.FindByTenant(ctx, tenantID, system)
	if err != nil {
		return nil, err
	}
	return s.executeSync(ctx, conn, nil)
}

// executeSync is the shared executor: fetch raw data, transform, replace.
// A nil window means all history.
func (s *SyncService) executeSync(ctx context.Context, conn *possync.POSConnection, window *possync.SyncWindow) (*SyncOutcome, error) {
	gateway, err := s.gateways.Gateway(conn.System)
	if err != nil {
		return nil, err
	}

	var records []possync.SaleRecord
	skipped := 0

	pageNo := 1
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", possync.ErrTransientSource, ctx.Err())
		default:
		}

		resp, err := gateway.FetchOrders(ctx, &possync.OrderFetchRequest{
			TenantID:       conn.TenantID,
			System:         conn.System,
			ExternalHandle: conn.ExternalHandle,
			Window:         window,
			PageNo:         pageNo,
			PageSize:       s.pageSize,
		})
		if err != nil {
			// Any fetch failure aborts the run before the ledger is
			// touched; the stale last_sync_time re-covers this window
			// on the next tick.
			return nil, fmt.Errorf("%w: %v", possync.ErrTransientSource, err)
		}

		for i := range resp.Orders {
			order := &resp.Orders[i]
			if window != nil && !window.Contains(order.PlacedAt) {
				continue
			}

			rows, failures := possync.TransformOrder(conn.TenantID, conn.System, order)
			for _, f := range failures {
				skipped++
				s.logger.Warn("Skipping untransformable row",
					zap.String("tenant_id", conn.TenantID.String()),
					zap.String("pos_system", conn.System.String()),
					zap.String("external_order_id", f.ExternalOrderID),
					zap.String("external_item_id", f.ExternalItemID),
					zap.String("reason", f.Reason),
				)
			}
			records = append(records, rows...)
		}

		if !resp.HasMore || len(resp.Orders) == 0 {
			break
		}
		pageNo = resp.NextPageNo
	}

	// Delete-then-insert for the window in one transaction
	if err := s.ledger.ReplaceWindow(ctx, conn.TenantID, conn.System, window, records); err != nil {
		return nil, fmt.Errorf("replacing ledger window: %w", err)
	}

	outcome := &SyncOutcome{
		RowsWritten:  len(records),
		SkippedRows:  skipped,
		WrittenIDs:   make([]uuid.UUID, 0, len(records)),
		DatesTouched: touchedDates(window, records),
	}
	for i := range records {
		outcome.WrittenIDs = append(outcome.WrittenIDs, records[i].ID)
	}

	s.logger.Info("Ledger window replaced",
		zap.String("tenant_id", conn.TenantID.String()),
		zap.String("pos_system", conn.System.String()),
		zap.String("window", windowLabel(window)),
		zap.Int("rows_written", outcome.RowsWritten),
		zap.Int("rows_skipped", skipped),
		zap.Int("dates_touched", len(outcome.DatesTouched)),
	)

	return outcome, nil
}

// touchedDates returns the dates whose ledger state the replacement may have
// changed. A scoped run deletes every date in its window, so dates that lost
// all their rows still need their aggregate recomputed; an unbounded run has
// no fixed window, so the written rows define the set.
func touchedDates(window *possync.SyncWindow, records []possync.SaleRecord) []time.Time {
	if window != nil {
		return window.Dates()
	}
	seen := make(map[time.Time]struct{}, len(records))
	var dates []time.Time
	for i := range records {
		d := possync.DateOf(records[i].SaleDate)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	return dates
}

func windowLabel(window *possync.SyncWindow) string {
	if window == nil {
		return "all-history"
	}
	return window.String()
}

package possync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posledger/backend/internal/domain/possync"
)

// ---------------------------------------------------------------------------
// Per-Tenant Mutual Exclusion
// ---------------------------------------------------------------------------

// TenantLocker serializes sync work per tenant. Two executions for one
// tenant (scoped or full) must never overlap, since both delete+insert
// against overlapping ledger state.
type TenantLocker interface {
	// TryAcquire takes the tenant's lease without blocking. When acquired
	// is true the caller must invoke release exactly once.
	TryAcquire(ctx context.Context, tenantID uuid.UUID) (release func(), acquired bool, err error)
}

// ---------------------------------------------------------------------------
// Orchestrator
// ---------------------------------------------------------------------------

// RunReport summarizes one orchestrator pass over all active connections
type RunReport struct {
	Started     time.Time
	Connections int
	Succeeded   int
	Failed      int
	Skipped     int
}

// Orchestrator is the periodic driver: for every active connection it
// resolves the incremental window, runs the scoped executor, applies the
// categorization batch, recomputes aggregates for the touched dates, and
// only then advances last_sync_time.
//
// Failures are isolated per connection; one tenant's failure never prevents
// the others in the same pass from completing.
type Orchestrator struct {
	connections possync.ConnectionRepository
	sync        *SyncService
	categorizer *CategorizationService
	aggregator  *AggregationService
	locks       TenantLocker
	logger      *zap.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewOrchestrator creates the incremental sync orchestrator
func NewOrchestrator(
	connections possync.ConnectionRepository,
	sync *SyncService,
	categorizer *CategorizationService,
	aggregator *AggregationService,
	locks TenantLocker,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		connections: connections,
		sync:        sync,
		categorizer: categorizer,
		aggregator:  aggregator,
		locks:       locks,
		logger:      logger,
		now:         time.Now,
	}
}

// RunOnce executes one pass over every active connection
func (o *Orchestrator) RunOnce(ctx context.Context) *RunReport {
	report := &RunReport{Started: o.now()}

	conns, err := o.connections.FindAllActive(ctx)
	if err != nil {
		o.logger.Error("Failed to list active POS connections", zap.Error(err))
		return report
	}
	report.Connections = len(conns)

	for i := range conns {
		conn := &conns[i]
		switch err := o.runConnection(ctx, conn); {
		case err == nil:
			report.Succeeded++
		case errors.Is(err, errLeaseHeld):
			report.Skipped++
			o.logger.Info("Tenant sync already in progress, skipping",
				zap.String("tenant_id", conn.TenantID.String()),
				zap.String("pos_system", conn.System.String()),
			)
		default:
			report.Failed++
			o.logger.Error("Tenant sync failed",
				zap.String("tenant_id", conn.TenantID.String()),
				zap.String("pos_system", conn.System.String()),
				zap.Error(err),
			)
		}
	}

	o.logger.Info("Sync pass completed",
		zap.Int("connections", report.Connections),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Duration("elapsed", o.now().Sub(report.Started)),
	)

	return report
}

var errLeaseHeld = errors.New("possync: tenant lease held by another run")

// runConnection drives one tenant's full pipeline under its lease
func (o *Orchestrator) runConnection(ctx context.Context, conn *possync.POSConnection) error {
	release, acquired, err := o.locks.TryAcquire(ctx, conn.TenantID)
	if err != nil {
		return err
	}
	if !acquired {
		return errLeaseHeld
	}
	defer release()

	startedAt := o.now()

	window, err := possync.ResolveWindow(conn, startedAt)
	if err != nil {
		// Non-fatal: the resolver already fell back to the backfill window
		o.logger.Warn("Sync window fell back to initial backfill",
			zap.String("tenant_id", conn.TenantID.String()),
			zap.Error(err),
		)
	}

	outcome, err := o.sync.ScopedSync(ctx, conn.TenantID, conn.System, window)
	if err != nil {
		return err
	}

	if _, err := o.categorizer.Apply(ctx, conn.TenantID, outcome.WrittenIDs); err != nil {
		return err
	}

	if err := o.aggregator.RecomputeDates(ctx, conn.TenantID, outcome.DatesTouched); err != nil {
		// Aggregates for the failed dates stay stale; last_sync_time is
		// not advanced so the next tick re-covers the whole window.
		return err
	}

	// Write-after-success: only a fully completed pipeline moves the mark
	if err := o.connections.MarkSynced(ctx, conn.TenantID, conn.System, startedAt); err != nil {
		return err
	}

	o.logger.Info("Tenant sync succeeded",
		zap.String("tenant_id", conn.TenantID.String()),
		zap.String("pos_system", conn.System.String()),
		zap.String("window", window.String()),
		zap.Int("rows_written", outcome.RowsWritten),
		zap.Int("rows_skipped", outcome.SkippedRows),
	)

	return nil
}

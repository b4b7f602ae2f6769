package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	apppossync "github.com/posledger/backend/internal/application/possync"
	"github.com/posledger/backend/internal/domain/possync"
)

// PipelineExecutor runs queued jobs through the same pipeline as the
// scheduled driver: sync, categorize, recompute aggregates, then advance
// last_sync_time. It takes the tenant lease so a queued job can never
// overlap a scheduled pass for the same tenant.
type PipelineExecutor struct {
	connections possync.ConnectionRepository
	sync        *apppossync.SyncService
	categorizer *apppossync.CategorizationService
	aggregator  *apppossync.AggregationService
	locks       apppossync.TenantLocker
	logger      *zap.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewPipelineExecutor creates the executor backing the sync scheduler
func NewPipelineExecutor(
	connections possync.ConnectionRepository,
	sync *apppossync.SyncService,
	categorizer *apppossync.CategorizationService,
	aggregator *apppossync.AggregationService,
	locks apppossync.TenantLocker,
	logger *zap.Logger,
) *PipelineExecutor {
	return &PipelineExecutor{
		connections: connections,
		sync:        sync,
		categorizer: categorizer,
		aggregator:  aggregator,
		locks:       locks,
		logger:      logger,
		now:         time.Now,
	}
}

// Execute runs one job end to end under the tenant's lease
func (e *PipelineExecutor) Execute(ctx context.Context, job *SyncJob) error {
	release, acquired, err := e.locks.TryAcquire(ctx, job.TenantID)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrSyncAlreadyInProgress
	}
	defer release()

	startedAt := e.now()

	var outcome *apppossync.SyncOutcome
	switch job.Kind {
	case SyncJobKindWindow:
		outcome, err = e.sync.ScopedSync(ctx, job.TenantID, job.System, *job.Window)
	default:
		outcome, err = e.sync.FullResync(ctx, job.TenantID, job.System)
	}
	if err != nil {
		return err
	}

	categorized, err := e.categorizer.Apply(ctx, job.TenantID, outcome.WrittenIDs)
	if err != nil {
		return err
	}

	if err := e.aggregator.RecomputeDates(ctx, job.TenantID, outcome.DatesTouched); err != nil {
		return err
	}

	if err := e.connections.MarkSynced(ctx, job.TenantID, job.System, startedAt); err != nil {
		return err
	}

	job.Complete(outcome.RowsWritten, outcome.SkippedRows, categorized, len(outcome.DatesTouched))
	return nil
}

// Ensure PipelineExecutor implements SyncExecutor
var _ SyncExecutor = (*PipelineExecutor)(nil)

package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	apppossync "github.com/posledger/backend/internal/application/possync"
)

// SyncRunner is the incremental pass the trigger fires on every tick
type SyncRunner interface {
	RunOnce(ctx context.Context) *apppossync.RunReport
}

// SyncTriggerConfig holds configuration for the periodic sync trigger
type SyncTriggerConfig struct {
	// Interval is how often to run an incremental pass
	Interval time.Duration
	// RunOnStart fires an immediate pass when the trigger starts
	RunOnStart bool
}

// DefaultSyncTriggerConfig returns default trigger configuration
func DefaultSyncTriggerConfig() SyncTriggerConfig {
	return SyncTriggerConfig{
		Interval:   time.Hour,
		RunOnStart: false,
	}
}

// SyncTrigger fires the incremental orchestrator pass on a fixed interval
type SyncTrigger struct {
	config SyncTriggerConfig
	runner SyncRunner
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSyncTrigger creates a new periodic sync trigger
func NewSyncTrigger(config SyncTriggerConfig, runner SyncRunner, logger *zap.Logger) (*SyncTrigger, error) {
	if config.Interval <= 0 {
		return nil, ErrInvalidConfig
	}
	return &SyncTrigger{
		config: config,
		runner: runner,
		logger: logger,
	}, nil
}

// Start starts the trigger loop
func (t *SyncTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Sync trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Bool("run_on_start", t.config.RunOnStart),
	)

	return nil
}

// Stop stops the trigger
func (t *SyncTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop fires the incremental pass on every tick
func (t *SyncTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	if t.config.RunOnStart {
		t.fire(ctx)
	}

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.fire(ctx)
		}
	}
}

func (t *SyncTrigger) fire(ctx context.Context) {
	report := t.runner.RunOnce(ctx)
	if report.Failed > 0 {
		t.logger.Warn("Incremental sync pass had failures",
			zap.Int("connections", report.Connections),
			zap.Int("failed", report.Failed),
		)
	}
}

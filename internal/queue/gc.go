package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const purgeTimeout = 2 * time.Minute

// GarbageCollector keeps the dead-letter queue from growing without bound by dropping
// failed analysis jobs once they are older than retention.
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger

	purged atomic.Int64
}

// NewGarbageCollector builds a collector. A nil purger turns every sweep into a no-op.
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GarbageCollector{purger: purger, interval: interval, retention: retention, logger: logger}
}

// Start sweeps once immediately and then on every interval until ctx is done.
// Sweep failures are logged and do not stop the loop.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	gc.sweepAndLog(ctx)

	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			gc.sweepAndLog(ctx)
		}
	}
}

// Purged reports how many dead letters this collector has removed so far
func (gc *GarbageCollector) Purged() int64 {
	return gc.purged.Load()
}

func (gc *GarbageCollector) sweepAndLog(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := gc.sweep(ctx); err != nil {
		gc.logger.Error("dlq_gc_failed", zap.Error(err), zap.Duration("retention", gc.retention))
	}
}

func (gc *GarbageCollector) sweep(ctx context.Context) error {
	if gc.purger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()

	n, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return fmt.Errorf("failed to purge dead letters: %w", err)
	}
	if n == 0 {
		return nil
	}
	total := gc.purged.Add(int64(n))
	gc.logger.Info("dlq_gc_purged",
		zap.Int("purged", n),
		zap.Int64("purged_total", total),
		zap.Duration("retention", gc.retention),
	)
	return nil
}

package keyspace

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically evicts elapsed entries to reclaim memory.
//
// It never changes what a reader observes: only entries that Get would
// already report as absent are removed.
type Sweeper struct {
	store    *Store
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a sweeper running every interval.
func NewSweeper(store *Store, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps on every tick until ctx is cancelled. A non-positive interval
// disables sweeping and Run returns immediately.
func (w *Sweeper) Run(ctx context.Context) {
	if w.interval <= 0 {
		return
	}

	t := time.NewTicker(w.interval)
	defer t.Stop()

	w.logger.Debug("keyspace sweeper started", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("keyspace sweeper stopped")
			return
		case <-t.C:
			if n := w.store.SweepExpired(); n > 0 {
				w.logger.Debug("swept expired keys", "count", n)
			}
		}
	}
}

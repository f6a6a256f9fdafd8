package background

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredStateSweeper is implemented by the auth service: it drops expired
// reset tokens and expired lockouts from the in-memory tables.
type ExpiredStateSweeper interface {
	SweepExpired(now time.Time) (resetTokens, lockouts int)
}

// SweepManager periodically prunes expired auth state so that long-idle
// entries do not accumulate for the life of the process. Expiry itself is
// enforced lazily on access; the sweep only bounds memory growth.
type SweepManager struct {
	sweeper  ExpiredStateSweeper
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSweepManager creates a new sweep manager
func NewSweepManager(sweeper ExpiredStateSweeper, logger *slog.Logger, interval time.Duration) *SweepManager {
	return &SweepManager{
		sweeper:  sweeper,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep task
func (sm *SweepManager) Start(ctx context.Context) {
	ticker := time.NewTicker(sm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sm.runSweep()
		case <-sm.stopCh:
			sm.logger.Info("sweep manager stopped")
			return
		case <-ctx.Done():
			sm.logger.Info("sweep manager context cancelled")
			return
		}
	}
}

func (sm *SweepManager) runSweep() {
	resetTokens, lockouts := sm.sweeper.SweepExpired(time.Now())

	if resetTokens > 0 || lockouts > 0 {
		sm.logger.Info("expired auth state sweep completed",
			slog.Int("reset_tokens_removed", resetTokens),
			slog.Int("lockouts_removed", lockouts))
	}
}

// Stop signals the sweep manager to stop
func (sm *SweepManager) Stop() {
	close(sm.stopCh)
}

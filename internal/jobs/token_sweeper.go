// token_sweeper.go implements the TokenSweeper background job, which
// periodically deletes expired bearer tokens from the database. Expired tokens
// are already rejected at resolution time, so the sweep is pure hygiene: it
// keeps the user_tokens table from growing without bound.
package jobs

import (
	"context"
	"log/slog"
	"time"
)

// TokenPurger deletes tokens that expired before the cutoff and reports how
// many rows went. Implemented by repositories.UserRepository.
type TokenPurger interface {
	DeleteExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenSweeper periodically purges expired bearer tokens.
type TokenSweeper struct {
	purger   TokenPurger
	interval time.Duration
	logger   *slog.Logger
	stopChan chan struct{}
}

// NewTokenSweeper creates a sweeper. interval controls how often the purge
// runs; zero or negative defaults to one hour.
func NewTokenSweeper(purger TokenPurger, interval time.Duration, logger *slog.Logger) *TokenSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenSweeper{
		purger:   purger,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background purge loop. It runs an initial sweep
// immediately, then repeats on the configured interval. The loop exits when
// ctx is cancelled or Stop() is called.
func (s *TokenSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("token sweeper started", "interval", s.interval)

	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			s.logger.Info("token sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("token sweeper context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (s *TokenSweeper) Stop() {
	close(s.stopChan)
}

func (s *TokenSweeper) sweep(ctx context.Context) {
	deleted, err := s.purger.DeleteExpiredTokens(ctx, time.Now())
	if err != nil {
		s.logger.Error("token sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("purged expired tokens", "count", deleted)
	}
}

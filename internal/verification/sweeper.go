package verification

import (
	"context"
	"io"
	"log"
	"time"
)

// DefaultSweepInterval is how often expired codes are purged.
const DefaultSweepInterval = 5 * time.Minute

// Sweeper purges expired codes on a fixed interval until its context ends.
type Sweeper struct {
	store    Store
	interval time.Duration
	logger   *log.Logger
}

func NewSweeper(store Store, interval time.Duration, logger *log.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Sweeper{store: store, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	removed, err := s.store.Sweep(ctx)
	if err != nil {
		s.logger.Printf("verification: sweep err=%v", err)
		return
	}
	if removed > 0 {
		s.logger.Printf("verification: sweep removed=%d", removed)
	}
}

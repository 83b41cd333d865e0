package calls

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const minSweepInterval = time.Second

// Sweeper periodically expires calls left ringing past the timeout
type Sweeper struct {
	machine  *Machine
	timeout  time.Duration
	interval time.Duration
	logger   zerolog.Logger
}

// NewSweeper creates a sweeper that checks every interval
func NewSweeper(machine *Machine, timeout, interval time.Duration, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = max(timeout/2, minSweepInterval)
	}
	return &Sweeper{
		machine:  machine,
		timeout:  timeout,
		interval: interval,
		logger:   logger.With().Str("component", "call-sweeper").Logger(),
	}
}

// Run blocks until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.machine.ExpireStale(ctx, s.timeout)
			if err != nil {
				s.logger.Error().Err(err).Msg("failed to expire ringing calls")
				continue
			}
			if n > 0 {
				s.logger.Info().Int("expired", n).Msg("expired ringing calls")
			}
		}
	}
}

// Package sweeper runs the expired-slot sweep on a timer. It is optional:
// with no interval configured, end-of-session cleanup happens only through
// the explicit end-session endpoint.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicq/clinicq/internal/domain/scheduling"
)

type Sweeper struct {
	svc      *scheduling.Service
	interval time.Duration
	logger   zerolog.Logger
}

func New(svc *scheduling.Service, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{svc: svc, interval: interval, logger: logger}
}

// Run sweeps once immediately, then on every tick until the context ends.
// Blocks; callers start it in a goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	s.logger.Info().Dur("interval", s.interval).Msg("slot sweeper started")

	s.sweep(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("slot sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	swept, err := s.svc.SweepExpiredSlots(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("slot sweep failed")
		return
	}
	if swept > 0 {
		s.logger.Info().Int("slots", swept).Msg("slot sweep closed expired slots")
	}
}

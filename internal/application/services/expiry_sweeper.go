package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ExpirySweeper periodically expires booking requests past their TTL
type ExpirySweeper struct {
	bookings *BookingService
	every    time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewExpirySweeper creates a sweeper running every interval
func NewExpirySweeper(bookings *BookingService, every time.Duration) *ExpirySweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &ExpirySweeper{
		bookings: bookings,
		every:    every,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the sweep loop
func (s *ExpirySweeper) Start() {
	s.wg.Add(1)
	go s.run()
	log.Info().Dur("every", s.every).Msg("booking expiry sweeper started")
}

// Stop stops the sweep loop and waits for the current sweep
func (s *ExpirySweeper) Stop() {
	s.cancel()
	s.wg.Wait()
	log.Info().Msg("booking expiry sweeper stopped")
}

func (s *ExpirySweeper) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			n, err := s.bookings.ExpireStaleRequests(s.ctx, s.bookings.now().UTC())
			if err != nil {
				log.Error().Err(err).Msg("booking expiry sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int("expired", n).Msg("expired stale booking requests")
			}
		}
	}
}

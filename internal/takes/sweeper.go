package takes

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/takeshq/takes/internal/metrics"
)

// Sweeper runs both notification sweep passes on a fixed interval. The
// passes run back to back in one loop iteration, so runs never overlap.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
	logger   zerolog.Logger
	stopChan chan struct{}
}

// NewSweeper creates a sweeper around an engine.
func NewSweeper(engine *Engine, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		engine:   engine,
		interval: interval,
		logger:   logger.With().Str("component", "sweeper").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start begins the sweep loop
func (s *Sweeper) Start() {
	go s.run()
	s.logger.Info().Dur("interval", s.interval).Msg("Notification sweeper started")
}

// Stop stops the sweep loop
func (s *Sweeper) Stop() {
	close(s.stopChan)
	s.logger.Info().Msg("Notification sweeper stopped")
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Sweeper) runOnce() {
	start := time.Now()
	s.engine.RunPauseExpirySweep()
	s.engine.RunLowTimeSweep()
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
}

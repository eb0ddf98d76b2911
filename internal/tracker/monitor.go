package tracker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Monitor periodically enforces the block cap on the running activity.
type Monitor struct {
	tracker  *Tracker
	interval time.Duration
	logger   zerolog.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// NewMonitor creates a monitor that checks every interval.
func NewMonitor(tracker *Tracker, interval time.Duration, logger zerolog.Logger) *Monitor {
	return &Monitor{
		tracker:  tracker,
		interval: interval,
		logger:   logger.With().Str("component", "monitor").Logger(),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the monitor loop
func (m *Monitor) Start() {
	go m.run()
	m.logger.Info().
		Dur("interval", m.interval).
		Msg("Activity monitor started")
}

// Stop stops the monitor and waits for a running check to finish
func (m *Monitor) Stop() {
	close(m.stopChan)
	<-m.done
	m.logger.Info().Msg("Activity monitor stopped")
}

func (m *Monitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check()
	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stopChan:
			return
		}
	}
}

// check runs one cap enforcement, bounded by the tick interval.
func (m *Monitor) check() {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	defer cancel()

	status, err := m.tracker.EnforceCap(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to enforce block limit")
		return
	}

	if status.Capped {
		event := m.logger.Info().Str("segment_id", status.Active.ID)
		if status.Continued != nil {
			event = event.Str("continued_id", status.Continued.ID)
		}
		event.Msg("Running activity split at the block limit")
	}
}

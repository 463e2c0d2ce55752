// Package viewer serves camera configuration and live agent status to the
// browser camera viewer.
package viewer

import (
	"context"
	"time"

	"github.com/neumerance/kerberos-swarm/internal/models"
	"github.com/rs/zerolog"
)

// Monitor refreshes every camera status on a fixed interval and pushes the
// result into the gRPC health service.
type Monitor struct {
	checker  *StatusChecker
	reporter *HealthReporter
	interval time.Duration
	logger   zerolog.Logger
}

const DefaultRefreshInterval = 15 * time.Second

// NewMonitor falls back to DefaultRefreshInterval when interval is not positive.
func NewMonitor(checker *StatusChecker, reporter *HealthReporter, interval time.Duration, logger zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Monitor{
		checker:  checker,
		reporter: reporter,
		interval: interval,
		logger:   logger,
	}
}

// Run refreshes once immediately and then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.refresh(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refresh(ctx)
		}
	}
}

func (m *Monitor) refresh(ctx context.Context) []models.CameraStatus {
	statuses := m.checker.Refresh(ctx)
	if m.reporter != nil {
		m.reporter.Update(statuses)
	}

	live := 0
	for _, s := range statuses {
		if s.Status == models.AgentLive {
			live++
		}
	}
	m.logger.Debug().Int("cameras", len(statuses)).Int("live", live).Msg("refreshed agent status")

	return statuses
}

package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/observability"
)

// StaleSweeper is the repository slice the monitor drives: one atomic
// mark-and-return sweep.
type StaleSweeper interface {
	SweepStale(ctx context.Context, cutoff time.Time) ([]string, error)
}

// OfflineAnnouncer fans a completed sweep out to downstream consumers.
// Optional; announcement failure never fails the sweep.
type OfflineAnnouncer interface {
	PublishOfflineEvent(ctx context.Context, sensorIDs []string, sweptAt time.Time) error
}

// Monitor periodically marks sensors offline when they have been silent
// longer than the stale bound. It is the only writer of the offline status;
// the ingest pipeline clears it again on the next accepted reading.
type Monitor struct {
	sweeper    StaleSweeper
	announcer  OfflineAnnouncer
	interval   time.Duration
	staleBound time.Duration
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *zap.Logger
	cron       *cron.Cron
}

func NewMonitor(
	sweeper StaleSweeper,
	announcer OfflineAnnouncer,
	interval, staleBound time.Duration,
	clock clockwork.Clock,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Monitor {
	return &Monitor{
		sweeper:    sweeper,
		announcer:  announcer,
		interval:   interval,
		staleBound: staleBound,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
	}
}

// Start schedules the periodic sweep. Call Stop to halt it.
func (m *Monitor) Start() error {
	if m.cron != nil {
		return fmt.Errorf("health monitor already started")
	}

	m.cron = cron.New()
	spec := fmt.Sprintf("@every %s", m.interval)
	if _, err := m.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.interval)
		defer cancel()

		if _, err := m.Sweep(ctx); err != nil {
			m.logger.Error("Health sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule health sweep: %w", err)
	}

	m.cron.Start()
	m.logger.Info("Health monitor started",
		zap.Duration("interval", m.interval),
		zap.Duration("stale_bound", m.staleBound),
	)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (m *Monitor) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
	m.cron = nil
}

// Sweep runs one offline pass: every active sensor whose last reading is
// older than the stale bound flips to offline. Returns the ids that
// transitioned this pass.
func (m *Monitor) Sweep(ctx context.Context) ([]string, error) {
	now := m.clock.Now()
	cutoff := now.Add(-m.staleBound)

	ids, err := m.sweeper.SweepStale(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("stale sweep failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	m.metrics.SensorsOffline.Add(float64(len(ids)))
	m.logger.Warn("Sensors marked offline",
		zap.Strings("sensor_ids", ids),
		zap.Time("cutoff", cutoff),
	)

	if m.announcer != nil {
		if err := m.announcer.PublishOfflineEvent(ctx, ids, now); err != nil {
			m.logger.Error("Failed to announce offline sensors", zap.Error(err))
		}
	}

	return ids, nil
}

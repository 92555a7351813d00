package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/config"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/models"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/observability"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/telemetry"
)

// SensorStore resolves sensor profiles and refreshes liveness fields.
type SensorStore interface {
	// GetSensorProfile returns the active sensor's profile, or nil when the
	// sensor is unregistered or inactive.
	GetSensorProfile(ctx context.Context, sensorID string) (*models.SensorProfile, error)
	// UpdateSensorHealth sets the sensor's status and last_data_time. A fresh
	// reading passing through here clears an offline flag.
	UpdateSensorHealth(ctx context.Context, sensorID string, status models.SensorStatus, lastData time.Time) error
}

// ObservationStore appends accepted observations and serves the velocity
// window lookup.
type ObservationStore interface {
	Append(ctx context.Context, obs *models.Observation) (int64, error)
	// FindNearestByTimeWindow returns the sensor's observation with created_at
	// in [notBefore, notAfter] nearest to target, or nil when none exists.
	FindNearestByTimeWindow(ctx context.Context, sensorID string, notBefore, notAfter, target time.Time) (*models.Observation, error)
}

// SubscriberFinder locates emergency subscribers around a position.
type SubscriberFinder interface {
	FindSubscribers(ctx context.Context, pos models.Position, radiusMeters float64) ([]models.Subscriber, error)
}

// Notifier hands an eligible alert to the external dispatch service.
type Notifier interface {
	NotifyEligible(ctx context.Context, profile models.SensorProfile, obs models.Observation, subscribers []models.Subscriber) error
}

// ObservationPublisher pushes a processed observation to downstream consumers
// (realtime cache, output stream). Best effort; failures never fail the
// pipeline.
type ObservationPublisher interface {
	PublishObservation(ctx context.Context, profile models.SensorProfile, obs models.Observation) error
}

// Pipeline is the per-message ingestion state machine:
//
//	received → integrity-checked → range-filtered → estimated → leveled →
//	velocity-computed → classified → persisted → health-updated
//
// Terminal on first failure, with no partial writes on any drop path.
type Pipeline struct {
	cfg          *config.Config
	filters      *telemetry.FilterRegistry
	sensors      SensorStore
	observations ObservationStore
	subscribers  SubscriberFinder
	notifier     Notifier
	publisher    ObservationPublisher
	clock        clockwork.Clock
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// New wires a pipeline. notifier, publisher and subscribers may be nil when
// the deployment has no dispatch service or cache attached.
func New(
	cfg *config.Config,
	filters *telemetry.FilterRegistry,
	sensors SensorStore,
	observations ObservationStore,
	subscribers SubscriberFinder,
	notifier Notifier,
	publisher ObservationPublisher,
	clock clockwork.Clock,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:          cfg,
		filters:      filters,
		sensors:      sensors,
		observations: observations,
		subscribers:  subscribers,
		notifier:     notifier,
		publisher:    publisher,
		clock:        clock,
		metrics:      metrics,
		logger:       logger,
	}
}

// FilterRange rejects physically impossible raw distances. No side effects on
// rejection.
func FilterRange(value, maxPlausible float64) error {
	if value <= 0 || value > maxPlausible {
		return fmt.Errorf("%w: %.2fcm outside (0, %.0f]", ErrRejectedAsNoise, value, maxPlausible)
	}
	return nil
}

// Process runs one reading through the full pipeline and returns the
// persisted observation. Any returned error means the message was dropped (or
// the store failed); the caller logs and moves on, redelivery is the sensor's
// own re-transmission.
func (p *Pipeline) Process(ctx context.Context, reading models.SensorReading) (*models.Observation, error) {
	start := p.clock.Now()

	obs, err := p.process(ctx, reading)
	if err != nil {
		p.metrics.MessagesDropped.WithLabelValues(DropReason(err)).Inc()
		return nil, err
	}

	p.metrics.MessagesProcessed.Inc()
	p.metrics.ProcessingTime.Observe(p.clock.Since(start).Seconds())
	return obs, nil
}

func (p *Pipeline) process(ctx context.Context, reading models.SensorReading) (*models.Observation, error) {
	if err := VerifyIntegrity(reading); err != nil {
		return nil, err
	}

	if err := FilterRange(reading.Value, p.cfg.Telemetry.MaxPlausibleDistance); err != nil {
		return nil, err
	}

	profile, err := p.sensors.GetSensorProfile(ctx, reading.SensorID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sensor %s: %w", reading.SensorID, err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSensor, reading.SensorID)
	}

	// Estimator-and-beyond stages run under the per-sensor lock: the filter
	// state and the velocity window lookup must not interleave for the same
	// sensor.
	var obs *models.Observation
	err = p.filters.Locked(reading.SensorID, func(f *telemetry.KalmanFilter) error {
		filtered := f.Update(reading.Value)
		level := math.Max(0, profile.InstallationHeight-filtered)
		now := p.clock.Now()

		velocity, err := ComputeVelocity(ctx, p.observations, reading.SensorID, level, now,
			p.cfg.Telemetry.VelocityMinAgo,
			p.cfg.Telemetry.VelocityMaxAgo,
			p.cfg.Telemetry.VelocityTargetAgo,
		)
		if err != nil {
			return err
		}

		status := ClassifyStatus(level, p.thresholds(profile))

		o := &models.Observation{
			SensorID:    reading.SensorID,
			RawDistance: filtered,
			WaterLevel:  level,
			Velocity:    velocity,
			Status:      status,
			CreatedAt:   now,
		}

		id, err := p.observations.Append(ctx, o)
		if err != nil {
			return fmt.Errorf("failed to append observation: %w", err)
		}
		o.ID = id

		if err := p.sensors.UpdateSensorHealth(ctx, reading.SensorID, status, now); err != nil {
			return fmt.Errorf("failed to refresh sensor health: %w", err)
		}

		obs = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.publish(ctx, *profile, *obs)
	p.evaluateNotification(ctx, *profile, *obs)

	vel := "-"
	if obs.Velocity != nil {
		vel = fmt.Sprintf("%.2f", *obs.Velocity)
	}
	p.logger.Info("Processed sensor reading",
		zap.String("sensor_id", obs.SensorID),
		zap.Float64("water_level", obs.WaterLevel),
		zap.String("status", string(obs.Status)),
		zap.String("velocity_cm_min", vel),
	)

	return obs, nil
}

func (p *Pipeline) thresholds(profile *models.SensorProfile) Thresholds {
	th := Thresholds{
		Warning: p.cfg.Telemetry.DefaultWarningThreshold,
		Danger:  p.cfg.Telemetry.DefaultDangerThreshold,
	}
	if profile.WarningThreshold != nil && profile.DangerThreshold != nil {
		th.Warning = *profile.WarningThreshold
		th.Danger = *profile.DangerThreshold
	}
	return th
}

func (p *Pipeline) publish(ctx context.Context, profile models.SensorProfile, obs models.Observation) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishObservation(ctx, profile, obs); err != nil {
		p.logger.Warn("Failed to publish observation",
			zap.String("sensor_id", obs.SensorID),
			zap.Error(err),
		)
	}
}

// evaluateNotification checks alert eligibility: danger outright, or warning
// combined with a rapid rise. Dispatch is external; this only resolves the
// subscriber set and hands it over. Failures are logged, never fatal.
func (p *Pipeline) evaluateNotification(ctx context.Context, profile models.SensorProfile, obs models.Observation) {
	if p.subscribers == nil || p.notifier == nil {
		return
	}

	rapidRise := obs.Velocity != nil && *obs.Velocity > p.cfg.Telemetry.RapidRiseVelocity
	if obs.Status != models.StatusDanger && !(obs.Status == models.StatusWarning && rapidRise) {
		return
	}

	subs, err := p.subscribers.FindSubscribers(ctx, profile.Position, p.cfg.Telemetry.AlertRadiusMeters)
	if err != nil {
		p.logger.Error("Failed to find alert subscribers",
			zap.String("sensor_id", obs.SensorID),
			zap.Error(err),
		)
		return
	}
	if len(subs) == 0 {
		return
	}

	if err := p.notifier.NotifyEligible(ctx, profile, obs, subs); err != nil {
		p.logger.Error("Failed to hand off emergency alert",
			zap.String("sensor_id", obs.SensorID),
			zap.Int("subscribers", len(subs)),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("Emergency alert handed off",
		zap.String("sensor_id", obs.SensorID),
		zap.String("status", string(obs.Status)),
		zap.Int("subscribers", len(subs)),
	)
}

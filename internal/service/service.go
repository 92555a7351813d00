package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/cache"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/config"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/consumer"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/crowd"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/health"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/notifier"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/observability"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/pipeline"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/repository"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/telemetry"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/pkg/database"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/pkg/mqtt"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/pkg/redisclient"
)

// Service assembles the telemetry and crowd-validation engine: database,
// cache, broker consumer, ingestion pipeline, health monitor and crowd
// service, with one Start/Stop lifecycle.
type Service struct {
	cfg    *config.Config
	logger *zap.Logger

	db     *sql.DB
	redis  *redisclient.Client
	broker *mqtt.Client

	consumer *consumer.Consumer
	monitor  *health.Monitor
	Crowd    *crowd.Service
	Pipeline *pipeline.Pipeline

	// read-side accessors for the API layer
	FloodLogs *repository.FloodLogRepository
	Reports   *repository.CrowdReportRepository
	Realtime  *cache.RealtimeCache
}

// New connects all backing stores and wires the engine. Fails fast: a
// missing database or broker at startup is a deployment problem, not
// something to limp through.
func New(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	redisClient := redisclient.NewRedisClient(&cfg.Redis)
	if err := redisclient.Ping(context.Background(), redisClient); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// unique client id per instance, or the broker kicks replicas off
	mqttCfg := cfg.MQTT
	mqttCfg.ClientID = fmt.Sprintf("%s-%s", cfg.MQTT.ClientID, uuid.NewString()[:8])
	broker, err := mqtt.NewClient(&mqttCfg)
	if err != nil {
		redisclient.Close(redisClient)
		database.Close(db)
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()

	sensors := repository.NewSensorRepository(db, logger)
	floodLogs := repository.NewFloodLogRepository(db, logger)
	reports := repository.NewCrowdReportRepository(db, logger)
	subscriptions := repository.NewSubscriptionRepository(db, logger)

	realtime := cache.NewRealtimeCache(redisClient, cfg, logger)

	var dispatch pipeline.Notifier
	if cfg.Notifier.URL != "" {
		dispatch = notifier.NewClient(cfg.Notifier.URL, cfg.Notifier.Timeout, logger)
	} else {
		logger.Warn("No dispatch service configured, alerts will not be delivered")
	}

	filters := telemetry.NewFilterRegistry(cfg.Telemetry.ProcessNoise, cfg.Telemetry.MeasurementNoise)
	pipe := pipeline.New(cfg, filters, sensors, floodLogs, subscriptions, dispatch, realtime,
		clock, metrics, logger)

	scorer := crowd.NewReliabilityScorer(reports,
		cfg.Crowd.DefaultReliability, cfg.Crowd.VerifiedReward, cfg.Crowd.InaccuratePenalty,
		logger)
	crowdSvc := crowd.NewService(cfg, reports, sensors, scorer, clock, metrics, logger)

	monitor := health.NewMonitor(sensors, realtime,
		cfg.Health.SweepInterval, cfg.Health.StaleBound,
		clock, metrics, logger)

	cons := consumer.New(cfg, broker, pipe, metrics, logger)

	return &Service{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		redis:     redisClient,
		broker:    broker,
		consumer:  cons,
		monitor:   monitor,
		Crowd:     crowdSvc,
		Pipeline:  pipe,
		FloodLogs: floodLogs,
		Reports:   reports,
		Realtime:  realtime,
	}, nil
}

// Start begins consuming telemetry and sweeping for offline sensors.
func (s *Service) Start() error {
	if err := s.monitor.Start(); err != nil {
		return err
	}
	if err := s.consumer.Start(); err != nil {
		s.monitor.Stop()
		return err
	}

	s.logger.Info("Floodwatch engine started",
		zap.String("mqtt_topic", s.cfg.MQTT.Topic),
		zap.Duration("health_sweep", s.cfg.Health.SweepInterval),
	)
	return nil
}

// Stop shuts the engine down in reverse order: stop intake first, then the
// sweeper, then close connections.
func (s *Service) Stop() {
	if err := s.consumer.Stop(); err != nil {
		s.logger.Warn("Failed to stop telemetry consumer", zap.Error(err))
	}
	s.monitor.Stop()
	s.broker.Disconnect()

	if err := redisclient.Close(s.redis); err != nil {
		s.logger.Warn("Failed to close redis client", zap.Error(err))
	}
	if err := database.Close(s.db); err != nil {
		s.logger.Warn("Failed to close database", zap.Error(err))
	}

	s.logger.Info("Floodwatch engine stopped")
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/config"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/models"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/pkg/redisclient"
)

// RealtimeCache keeps the latest observation per sensor in Redis for map
// reads, and fans processed observations out on a stream for downstream
// consumers. Both writes are best effort: Postgres stays the source of truth.
type RealtimeCache struct {
	client *redis.Client
	cfg    *config.Config
	logger *zap.Logger
}

func NewRealtimeCache(client *redis.Client, cfg *config.Config, logger *zap.Logger) *RealtimeCache {
	return &RealtimeCache{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// realtimeEntry is the cached JSON document for one sensor.
type realtimeEntry struct {
	SensorID     string              `json:"sensor_id"`
	LocationName string              `json:"location_name"`
	Position     models.Position     `json:"position"`
	WaterLevel   float64             `json:"water_level"`
	Velocity     *float64            `json:"velocity"`
	Status       models.SensorStatus `json:"status"`
	ObservedAt   time.Time           `json:"observed_at"`
}

// offlineEvent is the stream message emitted when the health monitor marks
// sensors offline.
type offlineEvent struct {
	Event     string    `json:"event"`
	SensorIDs []string  `json:"sensor_ids"`
	SweptAt   time.Time `json:"swept_at"`
}

func (c *RealtimeCache) key(sensorID string) string {
	return c.cfg.Cache.RealtimeKeyPrefix + sensorID + c.cfg.Cache.RealtimeSuffix
}

// PublishObservation caches the observation under the sensor's realtime key
// and appends it to the output stream.
func (c *RealtimeCache) PublishObservation(ctx context.Context, profile models.SensorProfile, obs models.Observation) error {
	entry := realtimeEntry{
		SensorID:     obs.SensorID,
		LocationName: profile.LocationName,
		Position:     profile.Position,
		WaterLevel:   obs.WaterLevel,
		Velocity:     obs.Velocity,
		Status:       obs.Status,
		ObservedAt:   obs.CreatedAt,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime entry: %w", err)
	}

	if err := c.client.Set(ctx, c.key(obs.SensorID), data, c.cfg.Cache.RealtimeTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache realtime entry: %w", err)
	}

	if _, err := redisclient.PublishJSONToStream(ctx, c.client, c.cfg.Cache.OutputStream, entry); err != nil {
		return fmt.Errorf("failed to publish to output stream: %w", err)
	}

	return nil
}

// GetRealtime returns the cached latest observation for a sensor, or nil on a
// miss (expired or never cached).
func (c *RealtimeCache) GetRealtime(ctx context.Context, sensorID string) (*models.RealtimeSensorData, error) {
	data, err := c.client.Get(ctx, c.key(sensorID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read realtime cache: %w", err)
	}

	var entry realtimeEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal realtime entry: %w", err)
	}

	status := entry.Status
	observedAt := entry.ObservedAt
	return &models.RealtimeSensorData{
		SensorID:     entry.SensorID,
		LocationName: entry.LocationName,
		Position:     entry.Position,
		SensorStatus: entry.Status,
		WaterLevel:   &entry.WaterLevel,
		Velocity:     entry.Velocity,
		LogStatus:    &status,
		ObservedAt:   &observedAt,
	}, nil
}

// PublishOfflineEvent announces sensors the health monitor just marked
// offline, and drops their realtime keys so stale levels do not linger on the
// map.
func (c *RealtimeCache) PublishOfflineEvent(ctx context.Context, sensorIDs []string, sweptAt time.Time) error {
	if len(sensorIDs) == 0 {
		return nil
	}

	keys := make([]string, len(sensorIDs))
	for i, id := range sensorIDs {
		keys[i] = c.key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Failed to drop realtime keys for offline sensors", zap.Error(err))
	}

	event := offlineEvent{
		Event:     "sensors_offline",
		SensorIDs: sensorIDs,
		SweptAt:   sweptAt,
	}
	if _, err := redisclient.PublishJSONToStream(ctx, c.client, c.cfg.Cache.OutputStream, event); err != nil {
		return fmt.Errorf("failed to publish offline event: %w", err)
	}

	return nil
}

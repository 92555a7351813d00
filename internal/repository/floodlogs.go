package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/models"
)

// FloodLogRepository is the append-only observation history. One row per
// accepted reading; nothing here is ever updated.
type FloodLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewFloodLogRepository(db *sql.DB, logger *zap.Logger) *FloodLogRepository {
	return &FloodLogRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts one observation and returns its id.
func (r *FloodLogRepository) Append(ctx context.Context, obs *models.Observation) (int64, error) {
	query := `
		INSERT INTO flood_logs (sensor_id, raw_distance, water_level, velocity, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var velocity sql.NullFloat64
	if obs.Velocity != nil {
		velocity = sql.NullFloat64{Float64: *obs.Velocity, Valid: true}
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		obs.SensorID,
		obs.RawDistance,
		obs.WaterLevel,
		velocity,
		string(obs.Status),
		obs.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to append flood log: %w", err)
	}

	return id, nil
}

// FindNearestByTimeWindow returns the sensor's observation with created_at in
// [notBefore, notAfter] nearest to target, or nil when the band is empty.
// Ties resolve to the row the database orders first.
func (r *FloodLogRepository) FindNearestByTimeWindow(ctx context.Context, sensorID string, notBefore, notAfter, target time.Time) (*models.Observation, error) {
	query := `
		SELECT id, sensor_id, raw_distance, water_level, velocity, status, created_at
		FROM flood_logs
		WHERE sensor_id = $1
		  AND created_at >= $2
		  AND created_at <= $3
		ORDER BY ABS(EXTRACT(EPOCH FROM (created_at - $4::timestamptz))) ASC
		LIMIT 1
	`

	obs, err := r.scanOne(r.db.QueryRowContext(ctx, query, sensorID, notBefore, notAfter, target))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find observation in window: %w", err)
	}

	return obs, nil
}

// LatestFor returns the sensor's most recent observation, or nil when the
// sensor has never reported.
func (r *FloodLogRepository) LatestFor(ctx context.Context, sensorID string) (*models.Observation, error) {
	query := `
		SELECT id, sensor_id, raw_distance, water_level, velocity, status, created_at
		FROM flood_logs
		WHERE sensor_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	obs, err := r.scanOne(r.db.QueryRowContext(ctx, query, sensorID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest observation: %w", err)
	}

	return obs, nil
}

// GetRealTimeFloodData returns the current flood picture: every active sensor
// joined with its latest observation. Sensors that have never reported still
// appear, with nil observation fields.
func (r *FloodLogRepository) GetRealTimeFloodData(ctx context.Context) ([]models.RealtimeSensorData, error) {
	query := `
		SELECT
			s.sensor_id,
			s.location_name,
			ST_X(s.location::geometry) AS lng,
			ST_Y(s.location::geometry) AS lat,
			s.status,
			s.last_data_time,
			fl.water_level,
			fl.velocity,
			fl.status AS log_status,
			fl.created_at AS observed_at
		FROM sensors s
		LEFT JOIN LATERAL (
			SELECT water_level, velocity, status, created_at
			FROM flood_logs
			WHERE sensor_id = s.sensor_id
			ORDER BY created_at DESC
			LIMIT 1
		) fl ON true
		WHERE s.is_active = true
		ORDER BY s.sensor_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get realtime flood data: %w", err)
	}
	defer rows.Close()

	var result []models.RealtimeSensorData
	for rows.Next() {
		var d models.RealtimeSensorData
		var lastData, observedAt sql.NullTime
		var waterLevel, velocity sql.NullFloat64
		var logStatus sql.NullString

		if err := rows.Scan(
			&d.SensorID,
			&d.LocationName,
			&d.Position.Lng,
			&d.Position.Lat,
			&d.SensorStatus,
			&lastData,
			&waterLevel,
			&velocity,
			&logStatus,
			&observedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan realtime row: %w", err)
		}

		if lastData.Valid {
			d.LastDataTime = &lastData.Time
		}
		if observedAt.Valid {
			d.ObservedAt = &observedAt.Time
		}
		if waterLevel.Valid {
			d.WaterLevel = &waterLevel.Float64
		}
		if velocity.Valid {
			d.Velocity = &velocity.Float64
		}
		if logStatus.Valid {
			st := models.SensorStatus(logStatus.String)
			d.LogStatus = &st
		}

		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate realtime rows: %w", err)
	}

	return result, nil
}

func (r *FloodLogRepository) scanOne(row *sql.Row) (*models.Observation, error) {
	var obs models.Observation
	var velocity sql.NullFloat64

	err := row.Scan(
		&obs.ID,
		&obs.SensorID,
		&obs.RawDistance,
		&obs.WaterLevel,
		&velocity,
		&obs.Status,
		&obs.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if velocity.Valid {
		obs.Velocity = &velocity.Float64
	}

	return &obs, nil
}

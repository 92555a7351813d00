package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/models"
)

// SensorRepository reads sensor registrations and writes liveness state.
// Registration CRUD belongs to the admin service; the engine only reads
// calibration and thresholds and updates status/last_data_time.
type SensorRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSensorRepository(db *sql.DB, logger *zap.Logger) *SensorRepository {
	return &SensorRepository{
		db:     db,
		logger: logger,
	}
}

// GetSensorProfile returns the sensor's profile when it is registered and
// active, nil otherwise. Inactive sensors are invisible to ingestion.
func (r *SensorRepository) GetSensorProfile(ctx context.Context, sensorID string) (*models.SensorProfile, error) {
	if sensorID == "" {
		return nil, fmt.Errorf("sensor_id is required")
	}

	query := `
		SELECT
			sensor_id,
			location_name,
			ST_X(location::geometry) AS lng,
			ST_Y(location::geometry) AS lat,
			installation_height,
			warning_threshold,
			danger_threshold,
			is_active,
			status,
			last_data_time
		FROM sensors
		WHERE sensor_id = $1
		  AND is_active = true
	`

	var profile models.SensorProfile
	var warning, danger sql.NullFloat64
	var lastData sql.NullTime

	err := r.db.QueryRowContext(ctx, query, sensorID).Scan(
		&profile.SensorID,
		&profile.LocationName,
		&profile.Position.Lng,
		&profile.Position.Lat,
		&profile.InstallationHeight,
		&warning,
		&danger,
		&profile.IsActive,
		&profile.Status,
		&lastData,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sensor profile: %w", err)
	}

	if warning.Valid {
		profile.WarningThreshold = &warning.Float64
	}
	if danger.Valid {
		profile.DangerThreshold = &danger.Float64
	}
	if lastData.Valid {
		profile.LastDataTime = &lastData.Time
	}

	return &profile, nil
}

// UpdateSensorHealth writes the classified status and the reading's arrival
// time. Called once per accepted reading, so an offline sensor flips back as
// soon as it speaks again.
func (r *SensorRepository) UpdateSensorHealth(ctx context.Context, sensorID string, status models.SensorStatus, lastData time.Time) error {
	query := `
		UPDATE sensors
		SET status = $2,
		    last_data_time = $3,
		    updated_at = $3
		WHERE sensor_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, sensorID, string(status), lastData)
	if err != nil {
		return fmt.Errorf("failed to update sensor health: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("sensor not found: %s", sensorID)
	}

	return nil
}

// SweepStale marks every active sensor silent since cutoff as offline in one
// atomic statement, and returns the ids that actually transitioned. Sensors
// already offline are excluded so repeated sweeps stay idempotent.
func (r *SensorRepository) SweepStale(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := `
		UPDATE sensors
		SET status = 'offline',
		    updated_at = NOW()
		WHERE is_active = true
		  AND status != 'offline'
		  AND (last_data_time IS NULL OR last_data_time < $1)
		RETURNING sensor_id
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep stale sensors: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan swept sensor id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate swept sensors: %w", err)
	}

	return ids, nil
}

// FindSensorsInRadius returns active sensors within radiusMeters of the point,
// each joined with its latest observation, nearest first. Used by the cross
// validator and the public proximity query.
func (r *SensorRepository) FindSensorsInRadius(ctx context.Context, pos models.Position, radiusMeters float64) ([]models.SensorInRadius, error) {
	query := `
		SELECT
			s.sensor_id,
			s.location_name,
			COALESCE(fl.water_level, 0) AS water_level,
			COALESCE(fl.status, '') AS status,
			ST_Distance(s.location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) AS distance
		FROM sensors s
		LEFT JOIN LATERAL (
			SELECT water_level, status
			FROM flood_logs
			WHERE sensor_id = s.sensor_id
			ORDER BY created_at DESC
			LIMIT 1
		) fl ON true
		WHERE s.is_active = true
		  AND ST_DWithin(s.location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY distance ASC
	`

	rows, err := r.db.QueryContext(ctx, query, pos.Lng, pos.Lat, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("failed to find sensors in radius: %w", err)
	}
	defer rows.Close()

	var sensors []models.SensorInRadius
	for rows.Next() {
		var s models.SensorInRadius
		if err := rows.Scan(
			&s.SensorID,
			&s.LocationName,
			&s.WaterLevel,
			&s.Status,
			&s.DistanceMeters,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sensor in radius: %w", err)
		}
		sensors = append(sensors, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sensors in radius: %w", err)
	}

	return sensors, nil
}

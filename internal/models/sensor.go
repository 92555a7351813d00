package models

import "time"

// Position is a WGS84 point. Stored as PostGIS geography in Postgres.
type Position struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// SensorProfile is the registered configuration and liveness state of one
// flood sensor. Rows are managed externally; the engine reads calibration and
// thresholds, and writes only status and last_data_time.
type SensorProfile struct {
	SensorID     string   `json:"sensor_id"`
	LocationName string   `json:"location_name"`
	Position     Position `json:"position"`
	// InstallationHeight is the calibration constant: distance from the sensor
	// to the ground when dry, in cm.
	InstallationHeight float64 `json:"installation_height"`
	// WarningThreshold < DangerThreshold, enforced by the admin service.
	// Both nil when the sensor has no configured thresholds.
	WarningThreshold *float64     `json:"warning_threshold"`
	DangerThreshold  *float64     `json:"danger_threshold"`
	IsActive         bool         `json:"is_active"`
	Status           SensorStatus `json:"status"`
	LastDataTime     *time.Time   `json:"last_data_time"`
}

// SensorInRadius is a proximity query result: a sensor plus its latest
// observation, ordered by distance from the query point.
type SensorInRadius struct {
	SensorID     string  `json:"sensor_id"`
	LocationName string  `json:"location_name"`
	WaterLevel   float64 `json:"water_level"`
	// Status is the latest observation's classified status; empty when the
	// sensor has never reported.
	Status         SensorStatus `json:"status"`
	DistanceMeters float64      `json:"distance"`
}

// RealtimeSensorData is the joined real-time flood picture for one sensor:
// profile fields plus the latest observation. Cached in Redis for map reads.
type RealtimeSensorData struct {
	SensorID     string        `json:"sensor_id"`
	LocationName string        `json:"location_name"`
	Position     Position      `json:"position"`
	SensorStatus SensorStatus  `json:"sensor_status"`
	WaterLevel   *float64      `json:"water_level"`
	Velocity     *float64      `json:"velocity"`
	LogStatus    *SensorStatus `json:"log_status"`
	LastDataTime *time.Time    `json:"last_data_time"`
	ObservedAt   *time.Time    `json:"observed_at"`
}

// Subscriber is an emergency-subscription holder inside an alert radius.
// Dispatch itself is handled by the external notification service.
type Subscriber struct {
	UserID              int64   `json:"user_id"`
	Email               string  `json:"email"`
	Phone               string  `json:"phone"`
	FullName            string  `json:"full_name"`
	NotificationMethods string  `json:"notification_methods"`
	DistanceMeters      float64 `json:"distance"`
}

package models

import "time"

// SensorStatus is the severity/liveness state of a sensor or observation.
type SensorStatus string

const (
	StatusNormal  SensorStatus = "normal"
	StatusWarning SensorStatus = "warning"
	StatusDanger  SensorStatus = "danger"
	// StatusOffline is assigned only by the health monitor, never by the
	// classifier. A fresh reading always overwrites it.
	StatusOffline SensorStatus = "offline"
)

// SensorReading is one inbound telemetry message. It is consumed synchronously
// by the ingestion pipeline and never persisted as-is.
type SensorReading struct {
	SensorID string `json:"sensor_id"`
	// Value is the raw distance from the sensor to the water surface, in cm.
	Value float64 `json:"value"`
	// Checksum is an optional integrity token: the first 16 hex characters of
	// SHA-256 over the canonical message fields. Absent for older firmware.
	Checksum string `json:"checksum,omitempty"`
	// Timestamp is the optional client-side capture time (unix seconds).
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Observation is one accepted reading after filtering and derivation,
// append-only in flood_logs.
type Observation struct {
	ID       int64  `json:"id"`
	SensorID string `json:"sensor_id"`
	// RawDistance is the Kalman-filtered distance, in cm.
	RawDistance float64 `json:"raw_distance"`
	// WaterLevel is derived flood depth in cm, clamped to >= 0.
	WaterLevel float64 `json:"water_level"`
	// Velocity is the rate of rise in cm/min, signed, nil when no comparison
	// sample existed in the lookup window.
	Velocity  *float64     `json:"velocity"`
	Status    SensorStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

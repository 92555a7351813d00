package pipeline

import "errors"

// Drop reasons. Any of these halts the pipeline for that message with no
// partial writes; the message is logged and never retried (sensors
// re-transmit at their own cadence).
var (
	// ErrRejectedAsNoise marks a raw distance outside the physical bounds.
	ErrRejectedAsNoise = errors.New("reading rejected as noise")

	// ErrUnknownSensor marks a reading whose calibration cannot be resolved,
	// because the sensor is unregistered or inactive.
	ErrUnknownSensor = errors.New("unknown or inactive sensor")

	// ErrIntegrityMismatch marks a message carrying a checksum that does not
	// match its payload. Treated as potential tampering.
	ErrIntegrityMismatch = errors.New("message integrity mismatch")
)

// DropReason maps a pipeline error to a metrics label. Transient store
// failures fall through to "store".
func DropReason(err error) string {
	switch {
	case errors.Is(err, ErrRejectedAsNoise):
		return "noise"
	case errors.Is(err, ErrUnknownSensor):
		return "unknown_sensor"
	case errors.Is(err, ErrIntegrityMismatch):
		return "integrity"
	default:
		return "store"
	}
}

package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/models"
)

// canonicalPayload is the exact field set and order the firmware hashes.
type canonicalPayload struct {
	SensorID  string  `json:"sensor_id"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// ComputeChecksum returns the integrity token for a reading: the first 16 hex
// characters of SHA-256 over the canonical JSON of the message fields.
func ComputeChecksum(reading models.SensorReading) string {
	data, err := json.Marshal(canonicalPayload{
		SensorID:  reading.SensorID,
		Value:     reading.Value,
		Timestamp: reading.Timestamp,
	})
	if err != nil {
		return ""
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// VerifyIntegrity checks the optional token. A missing token is accepted for
// compatibility with older firmware; a present but wrong one is tampering.
func VerifyIntegrity(reading models.SensorReading) error {
	if reading.Checksum == "" {
		return nil
	}
	if ComputeChecksum(reading) != reading.Checksum {
		return ErrIntegrityMismatch
	}
	return nil
}

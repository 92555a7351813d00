package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"
)

// ComputeVelocity derives the rate of rise in cm/min by comparing the current
// level against the sensor's prior observation nearest to targetAgo within
// [minAgo, maxAgo] before now. Returns nil when no comparison sample exists:
// that is a legitimate state, not an error. The divisor is the actual
// measured gap, not the nominal target, so irregular sampling does not bias
// the rate.
func ComputeVelocity(ctx context.Context, store ObservationStore, sensorID string, currentLevel float64, now time.Time, minAgo, maxAgo, targetAgo time.Duration) (*float64, error) {
	prior, err := store.FindNearestByTimeWindow(ctx,
		sensorID,
		now.Add(-maxAgo),
		now.Add(-minAgo),
		now.Add(-targetAgo),
	)
	if err != nil {
		return nil, fmt.Errorf("velocity lookup failed: %w", err)
	}
	if prior == nil {
		return nil, nil
	}

	elapsedMinutes := now.Sub(prior.CreatedAt).Minutes()
	if elapsedMinutes <= 0 {
		return nil, nil
	}

	velocity := math.Round((currentLevel-prior.WaterLevel)/elapsedMinutes*100) / 100
	return &velocity, nil
}

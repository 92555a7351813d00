package telemetry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKalmanFilter_FirstMeasurementReturnedUnchanged(t *testing.T) {
	f := NewKalmanFilter(0.01, 0.25)

	got := f.Update(142.5)
	assert.Equal(t, 142.5, got)

	est, ok := f.Estimate()
	require.True(t, ok)
	assert.Equal(t, 142.5, est)
}

func TestKalmanFilter_ConvergesToConstantInput(t *testing.T) {
	f := NewKalmanFilter(0.01, 0.25)

	f.Update(100)
	target := 120.0

	prevDistance := math.Abs(f.Update(target) - target)
	for i := 0; i < 50; i++ {
		est := f.Update(target)
		distance := math.Abs(est - target)
		assert.LessOrEqual(t, distance, prevDistance,
			"estimate must approach a constant input monotonically")
		prevDistance = distance
	}

	assert.InDelta(t, target, f.Update(target), 0.5)
}

func TestKalmanFilter_SmoothsOutliers(t *testing.T) {
	f := NewKalmanFilter(0.01, 0.25)

	f.Update(150)
	f.Update(150)
	f.Update(150)

	// a single spike must not drag the estimate far from the baseline
	est := f.Update(300)
	assert.Less(t, est, 200.0)
	assert.Greater(t, est, 150.0)
}

func TestKalmanFilter_Reset(t *testing.T) {
	f := NewKalmanFilter(0.01, 0.25)

	f.Update(100)
	f.Update(110)
	f.Reset()

	_, ok := f.Estimate()
	assert.False(t, ok)

	// bootstrap again after reset
	assert.Equal(t, 55.0, f.Update(55.0))
}

package telemetry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterRegistry_CreatesOnFirstUse(t *testing.T) {
	r := NewFilterRegistry(0.01, 0.25)
	assert.Equal(t, 0, r.Size())

	err := r.Locked("S01", func(f *KalmanFilter) error {
		assert.Equal(t, 140.0, f.Update(140))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Size())
}

func TestFilterRegistry_StateIsPerSensor(t *testing.T) {
	r := NewFilterRegistry(0.01, 0.25)

	_ = r.Locked("S01", func(f *KalmanFilter) error {
		f.Update(100)
		return nil
	})

	// a different sensor bootstraps independently
	_ = r.Locked("S02", func(f *KalmanFilter) error {
		assert.Equal(t, 300.0, f.Update(300))
		return nil
	})

	_ = r.Locked("S01", func(f *KalmanFilter) error {
		est, ok := f.Estimate()
		require.True(t, ok)
		assert.InDelta(t, 100.0, est, 0.001)
		return nil
	})
}

func TestFilterRegistry_ResetAndForget(t *testing.T) {
	r := NewFilterRegistry(0.01, 0.25)

	_ = r.Locked("S01", func(f *KalmanFilter) error {
		f.Update(100)
		return nil
	})

	r.Reset("S01")
	_ = r.Locked("S01", func(f *KalmanFilter) error {
		_, ok := f.Estimate()
		assert.False(t, ok)
		return nil
	})
	assert.Equal(t, 1, r.Size())

	r.Forget("S01")
	assert.Equal(t, 0, r.Size())
}

func TestFilterRegistry_ConcurrentSensorsDoNotRace(t *testing.T) {
	r := NewFilterRegistry(0.01, 0.25)

	var wg sync.WaitGroup
	for _, id := range []string{"S01", "S02", "S03", "S04"} {
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(sensorID string, v float64) {
				defer wg.Done()
				_ = r.Locked(sensorID, func(f *KalmanFilter) error {
					f.Update(v)
					return nil
				})
			}(id, float64(100+i))
		}
	}
	wg.Wait()

	assert.Equal(t, 4, r.Size())
}

package telemetry

import "sync"

// FilterRegistry owns one Kalman filter per sensor, created on first use and
// retained until the sensor is explicitly forgotten. It also provides the
// per-sensor serialization the filters require: Locked runs fn while holding
// that sensor's lock, so readings for one sensor are processed one at a time
// while different sensors proceed in parallel.
type FilterRegistry struct {
	processNoise     float64
	measurementNoise float64

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	mu     sync.Mutex
	filter *KalmanFilter
}

// NewFilterRegistry creates an empty registry with shared tuning constants.
func NewFilterRegistry(processNoise, measurementNoise float64) *FilterRegistry {
	return &FilterRegistry{
		processNoise:     processNoise,
		measurementNoise: measurementNoise,
		entries:          make(map[string]*registryEntry),
	}
}

func (r *FilterRegistry) entry(sensorID string) *registryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[sensorID]
	if !ok {
		e = &registryEntry{filter: NewKalmanFilter(r.processNoise, r.measurementNoise)}
		r.entries[sensorID] = e
	}
	return e
}

// Locked runs fn with exclusive access to the sensor's filter. The estimator
// state and everything derived from it must be computed inside fn.
func (r *FilterRegistry) Locked(sensorID string, fn func(f *KalmanFilter) error) error {
	e := r.entry(sensorID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.filter)
}

// Reset puts the sensor's filter back in the bootstrap state, keeping the
// entry registered.
func (r *FilterRegistry) Reset(sensorID string) {
	e := r.entry(sensorID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filter.Reset()
}

// Forget drops the sensor's filter entirely. Call on deregistration so the
// registry does not grow without bound.
func (r *FilterRegistry) Forget(sensorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sensorID)
}

// Size returns the number of live filters, for diagnostics.
func (r *FilterRegistry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

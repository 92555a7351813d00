package telemetry

// KalmanFilter is a scalar (1-D) recursive estimator smoothing a noisy
// distance stream. Fixed noise constants, no covariance matrix, no control
// input. Not safe for concurrent use; the registry serializes access per
// sensor.
type KalmanFilter struct {
	processNoise     float64
	measurementNoise float64

	estimate        float64
	hasEstimate     bool
	errorCovariance float64
}

// NewKalmanFilter creates a filter in the bootstrap state: the first
// measurement becomes the estimate unchanged.
func NewKalmanFilter(processNoise, measurementNoise float64) *KalmanFilter {
	return &KalmanFilter{
		processNoise:     processNoise,
		measurementNoise: measurementNoise,
		errorCovariance:  1.0,
	}
}

// Update feeds one measurement through the filter and returns the new
// estimate.
func (f *KalmanFilter) Update(measurement float64) float64 {
	if !f.hasEstimate {
		f.estimate = measurement
		f.hasEstimate = true
		return measurement
	}

	// Prediction step
	predictedCovariance := f.errorCovariance + f.processNoise

	// Update step
	gain := predictedCovariance / (predictedCovariance + f.measurementNoise)
	f.estimate += gain * (measurement - f.estimate)
	f.errorCovariance = (1 - gain) * predictedCovariance

	return f.estimate
}

// Reset returns the filter to the bootstrap state, e.g. after a suspected
// sensor fault or redeployment.
func (f *KalmanFilter) Reset() {
	f.estimate = 0
	f.hasEstimate = false
	f.errorCovariance = 1.0
}

// Estimate returns the current estimate and whether one exists yet.
func (f *KalmanFilter) Estimate() (float64, bool) {
	return f.estimate, f.hasEstimate
}

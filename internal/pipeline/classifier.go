package pipeline

import (
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/models"
)

// Thresholds are the per-sensor classification bounds in cm, warning strictly
// below danger (enforced by the admin service).
type Thresholds struct {
	Warning float64
	Danger  float64
}

// ClassifyStatus maps a water level to a severity status. First match wins:
// danger, then warning, then normal. The offline status is never assigned
// here; only the health monitor writes it.
func ClassifyStatus(level float64, th Thresholds) models.SensorStatus {
	if level >= th.Danger {
		return models.StatusDanger
	}
	if level >= th.Warning {
		return models.StatusWarning
	}
	return models.StatusNormal
}

package crowd

import (
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/models"
)

// ValidationOutcome is the cross-validation verdict for a new report.
type ValidationOutcome struct {
	Status           string
	VerifiedBySensor bool
	// NearestSensorID is the sensor that decided the outcome, empty when no
	// sensor was in range.
	NearestSensorID string
}

// CrossValidate compares a claimed severity against the nearest sensor's
// latest reading. sensors must be ordered nearest first (the proximity query
// guarantees this); only the nearest one decides.
//
// The sensor corroborates when it classified warning or danger and its level
// reaches the tolerance fraction of the severity's expected level. A sensor
// reading normal with a near-dry level contradicts the claim, but
// contradiction is not rejection: the report stays pending for a human
// moderator either way.
func CrossValidate(level models.SeverityLevel, sensors []models.SensorInRadius, tolerance float64) ValidationOutcome {
	if len(sensors) == 0 {
		return ValidationOutcome{Status: models.ValidationPending}
	}

	nearest := sensors[0]
	outcome := ValidationOutcome{
		Status:          models.ValidationPending,
		NearestSensorID: nearest.SensorID,
	}

	elevated := nearest.Status == models.StatusWarning || nearest.Status == models.StatusDanger
	if elevated && nearest.WaterLevel >= tolerance*level.ExpectedWaterLevel() {
		outcome.Status = models.ValidationVerified
		outcome.VerifiedBySensor = true
	}

	return outcome
}

package models

import "time"

// SeverityLevel is the ordinal flood severity a citizen can report.
type SeverityLevel string

const (
	// SeverityLight is ankle-deep water, roughly 10 cm.
	SeverityLight SeverityLevel = "light"
	// SeverityMedium is knee-deep water, roughly 30 cm.
	SeverityMedium SeverityLevel = "medium"
	// SeverityHeavy is water halfway up a motorbike, roughly 50 cm.
	SeverityHeavy SeverityLevel = "heavy"
)

// ValidLevels lists accepted severity values in ascending order.
var ValidLevels = []SeverityLevel{SeverityLight, SeverityMedium, SeverityHeavy}

// ExpectedWaterLevel maps a claimed severity to the water level (cm) a nearby
// sensor would be expected to corroborate. Unit-compatible with the
// classifier thresholds.
func (l SeverityLevel) ExpectedWaterLevel() float64 {
	switch l {
	case SeverityLight:
		return 10
	case SeverityMedium:
		return 30
	case SeverityHeavy:
		return 50
	default:
		return 0
	}
}

// Valid reports whether the level is one of the accepted ordinals.
func (l SeverityLevel) Valid() bool {
	for _, v := range ValidLevels {
		if l == v {
			return true
		}
	}
	return false
}

// Validation and moderation statuses of a crowd report.
const (
	ValidationPending  = "pending"
	ValidationVerified = "cross_verified"

	ModerationPending  = "pending"
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
)

// CrowdReport is a citizen flood report. Created pending/pending; the cross
// validator may set validation_status at creation time, moderation finalizes
// moderation_status later.
type CrowdReport struct {
	ID           int64  `json:"id"`
	ReporterName string `json:"reporter_name"`
	// ReporterID is nil for anonymous reports.
	ReporterID *string       `json:"reporter_id"`
	Level      SeverityLevel `json:"flood_level"`
	Position   Position      `json:"position"`
	// ReliabilityScore is the reporter's trust score snapshot at creation,
	// kept consistent across all of the reporter's rows by the scorer.
	ReliabilityScore float64    `json:"reliability_score"`
	ValidationStatus string     `json:"validation_status"`
	VerifiedBySensor bool       `json:"verified_by_sensor"`
	PhotoURL         *string    `json:"photo_url"`
	ModerationStatus string     `json:"moderation_status"`
	ModeratedBy      *int64     `json:"moderated_by"`
	ModeratedAt      *time.Time `json:"moderated_at"`
	RejectionReason  *string    `json:"rejection_reason"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ReliabilityRank is one row of the reporter trust ranking aggregate.
type ReliabilityRank struct {
	ReporterID     string  `json:"reporter_id"`
	ReporterName   string  `json:"reporter_name"`
	TotalReports   int     `json:"total_reports"`
	AvgReliability float64 `json:"avg_reliability"`
	VerifiedCount  int     `json:"verified_count"`
	ApprovedCount  int     `json:"approved_count"`
}

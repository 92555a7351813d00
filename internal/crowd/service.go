package crowd

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/config"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/models"
	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/observability"
)

// ReportStore is the persistence surface of the crowd service.
type ReportStore interface {
	ScoreStore
	CreateReport(ctx context.Context, report *models.CrowdReport) (*models.CrowdReport, error)
	GetReportByID(ctx context.Context, id int64) (*models.CrowdReport, error)
	// ModerateReport writes the verdict onto a still-pending row; false means
	// the row was no longer pending (or missing).
	ModerateReport(ctx context.Context, id int64, status string, moderatorID int64, reason *string, moderatedAt time.Time) (bool, error)
	GetPendingModerationReports(ctx context.Context, limit int) ([]models.CrowdReport, error)
	GetRecentReports(ctx context.Context, since time.Time, limit int) ([]models.CrowdReport, error)
	GetReliabilityRanking(ctx context.Context, limit int) ([]models.ReliabilityRank, error)
}

// SensorFinder locates validating sensors around a report position.
type SensorFinder interface {
	FindSensorsInRadius(ctx context.Context, pos models.Position, radiusMeters float64) ([]models.SensorInRadius, error)
}

// NewReport is the citizen-facing input for a crowd report.
type NewReport struct {
	ReporterName string
	// ReporterID is nil for anonymous reports; anonymous reports carry no
	// trust score history and never earn one.
	ReporterID *string
	Level      models.SeverityLevel
	Position   models.Position
	PhotoURL   *string
}

// Service runs the crowd-report lifecycle: creation with cross-validation and
// scoring, then moderation.
type Service struct {
	cfg     *config.Config
	reports ReportStore
	sensors SensorFinder
	scorer  *ReliabilityScorer
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *zap.Logger
}

func NewService(
	cfg *config.Config,
	reports ReportStore,
	sensors SensorFinder,
	scorer *ReliabilityScorer,
	clock clockwork.Clock,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		cfg:     cfg,
		reports: reports,
		sensors: sensors,
		scorer:  scorer,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateReport validates a citizen report against nearby sensors, snapshots
// the reporter's trust score, stores the report pending moderation, and
// rewards the reporter when a sensor corroborated the claim.
func (s *Service) CreateReport(ctx context.Context, input NewReport) (*models.CrowdReport, error) {
	if !input.Level.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLevel, input.Level)
	}

	sensors, err := s.sensors.FindSensorsInRadius(ctx, input.Position, s.cfg.Crowd.SensorSearchRadiusMeters)
	if err != nil {
		return nil, fmt.Errorf("failed to find validating sensors: %w", err)
	}

	outcome := CrossValidate(input.Level, sensors, s.cfg.Crowd.LevelTolerance)

	report := &models.CrowdReport{
		ReporterName:     input.ReporterName,
		ReporterID:       input.ReporterID,
		Level:            input.Level,
		Position:         input.Position,
		ReliabilityScore: s.cfg.Crowd.DefaultReliability,
		ValidationStatus: outcome.Status,
		VerifiedBySensor: outcome.VerifiedBySensor,
		PhotoURL:         input.PhotoURL,
		ModerationStatus: models.ModerationPending,
		CreatedAt:        s.clock.Now(),
	}

	var created *models.CrowdReport
	if input.ReporterID == nil {
		created, err = s.reports.CreateReport(ctx, report)
		if err != nil {
			return nil, err
		}
	} else {
		// snapshot, insert and reward run under the reporter's lock so two
		// concurrent reports from the same person cannot interleave the
		// read-modify-write
		err = s.scorer.Locked(*input.ReporterID, func() error {
			score, err := s.scorer.Snapshot(ctx, *input.ReporterID)
			if err != nil {
				return err
			}
			report.ReliabilityScore = score

			created, err = s.reports.CreateReport(ctx, report)
			if err != nil {
				return err
			}

			if outcome.VerifiedBySensor {
				newScore, err := s.scorer.Reward(ctx, *input.ReporterID)
				if err != nil {
					return err
				}
				created.ReliabilityScore = newScore
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	s.metrics.ReportsCreated.Inc()
	if outcome.VerifiedBySensor {
		s.metrics.ReportsVerified.Inc()
	} else {
		s.metrics.ReportsPending.Inc()
	}

	s.logger.Info("Crowd report created",
		zap.Int64("report_id", created.ID),
		zap.String("flood_level", string(created.Level)),
		zap.String("validation_status", created.ValidationStatus),
		zap.String("nearest_sensor", outcome.NearestSensorID),
	)

	return created, nil
}

// Moderate finalizes a pending report. A verdict is terminal: once approved
// or rejected the report cannot be re-moderated. Rejection requires a reason
// and docks the reporter's trust score.
func (s *Service) Moderate(ctx context.Context, reportID int64, verdict string, moderatorID int64, reason *string) (*models.CrowdReport, error) {
	if verdict != models.ModerationApproved && verdict != models.ModerationRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVerdict, verdict)
	}
	if verdict == models.ModerationRejected && (reason == nil || *reason == "") {
		return nil, ErrReasonRequired
	}

	report, err := s.reports.GetReportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, fmt.Errorf("%w: %d", ErrReportNotFound, reportID)
	}
	if report.ModerationStatus != models.ModerationPending {
		return nil, fmt.Errorf("%w: report %d is %s", ErrAlreadyModerated, reportID, report.ModerationStatus)
	}

	won, err := s.reports.ModerateReport(ctx, reportID, verdict, moderatorID, reason, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !won {
		// lost the race to another moderator
		return nil, fmt.Errorf("%w: %d", ErrAlreadyModerated, reportID)
	}

	if verdict == models.ModerationRejected && report.ReporterID != nil {
		if _, err := s.scorer.Penalize(ctx, *report.ReporterID); err != nil {
			// the verdict already stands; scoring failure must not undo it
			s.logger.Error("Failed to penalize reporter after rejection",
				zap.Int64("report_id", reportID),
				zap.String("reporter_id", *report.ReporterID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Crowd report moderated",
		zap.Int64("report_id", reportID),
		zap.String("verdict", verdict),
		zap.Int64("moderator_id", moderatorID),
	)

	return s.reports.GetReportByID(ctx, reportID)
}

// PendingModeration lists reports awaiting a verdict, oldest first.
func (s *Service) PendingModeration(ctx context.Context, limit int) ([]models.CrowdReport, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.reports.GetPendingModerationReports(ctx, limit)
}

// RecentReports lists non-rejected reports from the last window.
func (s *Service) RecentReports(ctx context.Context, window time.Duration, limit int) ([]models.CrowdReport, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.reports.GetRecentReports(ctx, s.clock.Now().Add(-window), limit)
}

// ReliabilityRanking returns the most trusted identified reporters.
func (s *Service) ReliabilityRanking(ctx context.Context, limit int) ([]models.ReliabilityRank, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.reports.GetReliabilityRanking(ctx, limit)
}
